package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mangafeed/internal/domain"
)

// Wire keys of the upstream "info" document. Key lookup is exact: the series
// level uses last_update while chapters use updatedAt.
const (
	envelopeKey   = "data"
	keyOID        = "oid"
	keyName       = "name"
	keyLastUpdate = "last_update"
	keyChapters   = "chapters"
	keyUpdatedAt  = "updatedAt"
)

type object map[string]json.RawMessage

// JSONParser decodes an upstream series document into a domain.Series.
type JSONParser struct {
	log *slog.Logger
}

func NewJSONParser(log *slog.Logger) *JSONParser {
	return &JSONParser{
		log: log,
	}
}

// Parse reads the whole document and decodes the series held under the
// envelope key. Unknown fields are ignored. Any structural problem yields a
// *domain.ParseError and a zero Series.
func (p *JSONParser) Parse(ctx context.Context, reader io.Reader) (domain.Series, error) {
	if err := ctx.Err(); err != nil {
		return domain.Series{}, err
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.Series{}, fmt.Errorf("failed to read body: %w", err)
	}
	series, err := decodeSeries(raw)
	if err != nil {
		p.log.Warn(
			"Error decoding series document",
			slog.String("component", "parser"),
			slog.Any("error", err),
		)
		return domain.Series{}, err
	}
	return series, nil
}

func decodeSeries(raw []byte) (domain.Series, error) {
	var envelope object
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.Series{}, &domain.ParseError{Reason: "invalid JSON document", Err: err}
	}
	var payload object
	if err := requireField(envelope, envelopeKey, &payload); err != nil {
		return domain.Series{}, err
	}

	var (
		oid        string
		name       string
		lastUpdate int64
	)
	if err := requireField(payload, keyOID, &oid); err != nil {
		return domain.Series{}, err
	}
	if oid == "" {
		return domain.Series{}, &domain.ParseError{Reason: "series oid is empty"}
	}
	if err := requireField(payload, keyName, &name); err != nil {
		return domain.Series{}, err
	}
	if err := requireField(payload, keyLastUpdate, &lastUpdate); err != nil {
		return domain.Series{}, err
	}

	var rawChapters []object
	if err := optionalField(payload, keyChapters, &rawChapters); err != nil {
		return domain.Series{}, err
	}
	chapters := make([]domain.Chapter, 0, len(rawChapters))
	for i, rc := range rawChapters {
		chapter, err := decodeChapter(rc)
		if err != nil {
			return domain.Series{}, &domain.ParseError{Reason: fmt.Sprintf("chapter %d", i), Err: err}
		}
		chapters = append(chapters, chapter)
	}

	return domain.Series{
		ID:         domain.SeriesID(oid),
		Name:       name,
		LastUpdate: domain.Timestamp(lastUpdate),
		Chapters:   chapters,
	}, nil
}

func decodeChapter(obj object) (domain.Chapter, error) {
	if obj == nil {
		return domain.Chapter{}, &domain.ParseError{Reason: "chapter is null"}
	}
	var (
		oid       string
		name      string
		updatedAt int64
	)
	if err := requireField(obj, keyOID, &oid); err != nil {
		return domain.Chapter{}, err
	}
	if oid == "" {
		return domain.Chapter{}, &domain.ParseError{Reason: "chapter oid is empty"}
	}
	if err := requireField(obj, keyName, &name); err != nil {
		return domain.Chapter{}, err
	}
	if err := requireField(obj, keyUpdatedAt, &updatedAt); err != nil {
		return domain.Chapter{}, err
	}
	return domain.Chapter{
		ID:        domain.ChapterID(oid),
		Name:      name,
		UpdatedAt: domain.Timestamp(updatedAt),
	}, nil
}

// requireField decodes obj[key] into dst. An absent key or a JSON null is
// reported as missing.
func requireField(obj object, key string, dst any) error {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return &domain.ParseError{Reason: fmt.Sprintf("missing field %q", key)}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &domain.ParseError{Reason: fmt.Sprintf("field %q has wrong type", key), Err: err}
	}
	return nil
}

// optionalField is requireField without the presence requirement.
func optionalField(obj object, key string, dst any) error {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &domain.ParseError{Reason: fmt.Sprintf("field %q has wrong type", key), Err: err}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
