package parser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mangafeed/internal/domain"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const borutoDocument = `{
	"code": 0,
	"data": {
		"mid": 553712,
		"oid": "mrs-serie-35593",
		"name": "Boruto: Naruto Next Generations",
		"author": "Ukyo Kodachi",
		"rank": 199,
		"completed": false,
		"last_update": 1555711356,
		"total_chapters": 35,
		"categories": [1, 2, 3, 4, 5, 8, 27, 41],
		"chapters": [{
			"cid": 28834048,
			"oid": "mrs-chapter-100410084",
			"order": 31,
			"name": "Vol.TBD Chapter 31: Monster...!",
			"updatedAt": 1548474140
		}, {
			"cid": 28983642,
			"oid": "mrs-chapter-100426942",
			"order": 32,
			"name": "Vol.TBD Chapter 32: A Sense of Duty",
			"updatedAt": 1550854922
		}, {
			"cid": 29112284,
			"oid": "mrs-chapter-200002666",
			"order": 33,
			"name": "Vol.TBD Chapter 33: Breaking The Limit",
			"updatedAt": 1553223666
		}, {
			"cid": 29227830,
			"oid": "mrs-chapter-200023474",
			"order": 34,
			"name": "Vol.TBD Chapter 34: Training!!",
			"updatedAt": 1555711346
		}],
		"thumbnail": "https://f01.mrcdn.info/file/mrportal/i/5/8/3/G3.6PwgFb_B.jpg",
		"artworks": ["https://f01.mrcdn.info/file/mrportal/i/5/8/2/46.jrpZSy5Z.jpg"],
		"alias": ["Boruto"],
		"characters": [{"oid": "mrs-character-311684", "name": "Mitsuki", "thumbnail": ""}],
		"authors": [{"oid": "mrs-author-306911", "name": "Ukyo Kodachi", "role": "story"}],
		"rich_categories": [{"oid": "mrs-genre-304068", "name": "Action"}],
		"extra": {"Original Publisher": "Shueisha "},
		"mrs_series": null
	}
}`

func newTestParser() *JSONParser {
	return NewJSONParser(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestJSONParser_Parse_Success(t *testing.T) {
	series, err := newTestParser().Parse(context.Background(), strings.NewReader(borutoDocument))

	require.NoError(t, err)
	assert.Equal(t, domain.SeriesID("mrs-serie-35593"), series.ID)
	assert.Equal(t, "Boruto: Naruto Next Generations", series.Name)
	assert.Equal(t, domain.Timestamp(1555711356), series.LastUpdate)
	require.Len(t, series.Chapters, 4)

	assert.Equal(t, domain.Chapter{
		ID:        "mrs-chapter-100410084",
		Name:      "Vol.TBD Chapter 31: Monster...!",
		UpdatedAt: 1548474140,
	}, series.Chapters[0])
	assert.Equal(t, domain.ChapterID("mrs-chapter-200023474"), series.Chapters[3].ID)
	assert.Equal(t, domain.Timestamp(1555711346), series.Chapters[3].UpdatedAt)
}

func TestJSONParser_Parse_KeepsDocumentOrder(t *testing.T) {
	doc := `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[
		{"oid":"c3","name":"third","updatedAt":30},
		{"oid":"c1","name":"first","updatedAt":10},
		{"oid":"c2","name":"second","updatedAt":20}]}}`

	series, err := newTestParser().Parse(context.Background(), strings.NewReader(doc))

	require.NoError(t, err)
	ids := make([]domain.ChapterID, 0, len(series.Chapters))
	for _, c := range series.Chapters {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []domain.ChapterID{"c3", "c1", "c2"}, ids)
}

func TestJSONParser_Parse_NoChapters(t *testing.T) {
	for name, doc := range map[string]string{
		"absent": `{"data":{"oid":"s","name":"n","last_update":1}}`,
		"null":   `{"data":{"oid":"s","name":"n","last_update":1,"chapters":null}}`,
		"empty":  `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			series, err := newTestParser().Parse(context.Background(), strings.NewReader(doc))
			require.NoError(t, err)
			assert.Empty(t, series.Chapters)
		})
	}
}

func TestJSONParser_Parse_Failures(t *testing.T) {
	cases := map[string]string{
		"invalid json":              `{"data": {`,
		"trailing garbage":          `{"data":{"oid":"s","name":"n","last_update":1}} junk`,
		"not an object":             `[1, 2]`,
		"missing envelope":          `{"code": 0, "payload": {"oid":"s","name":"n","last_update":1}}`,
		"null envelope":             `{"data": null}`,
		"envelope wrong type":       `{"data": "nope"}`,
		"missing oid":               `{"data":{"name":"n","last_update":1}}`,
		"empty oid":                 `{"data":{"oid":"","name":"n","last_update":1}}`,
		"missing name":              `{"data":{"oid":"s","last_update":1}}`,
		"missing last_update":       `{"data":{"oid":"s","name":"n"}}`,
		"last_update as string":     `{"data":{"oid":"s","name":"n","last_update":"1"}}`,
		"camel case last update":    `{"data":{"oid":"s","name":"n","lastUpdate":1}}`,
		"chapters wrong type":       `{"data":{"oid":"s","name":"n","last_update":1,"chapters":{}}}`,
		"chapter missing updatedAt": `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[{"oid":"c","name":"x"}]}}`,
		"chapter snake updated_at":  `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[{"oid":"c","name":"x","updated_at":1}]}}`,
		"chapter wrong case":        `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[{"oid":"c","name":"x","UpdatedAt":1}]}}`,
		"chapter float timestamp":   `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[{"oid":"c","name":"x","updatedAt":1.5}]}}`,
		"chapter null":              `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[null]}}`,
		"chapter missing name":      `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[{"oid":"c","updatedAt":1}]}}`,
		"chapter empty oid":         `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[{"oid":"","name":"x","updatedAt":1}]}}`,
		"name wrong type":           `{"data":{"oid":"s","name":42,"last_update":1}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			series, err := newTestParser().Parse(context.Background(), strings.NewReader(doc))

			require.Error(t, err)
			assert.True(t, domain.IsParse(err), "expected parse error, got %v", err)
			assert.Equal(t, domain.Series{}, series)
		})
	}
}

func TestJSONParser_Parse_PartialFailureIsAtomic(t *testing.T) {
	doc := `{"data":{"oid":"s","name":"n","last_update":1,"chapters":[
		{"oid":"c1","name":"ok","updatedAt":10},
		{"oid":"c2","name":"broken"}]}}`

	series, err := newTestParser().Parse(context.Background(), strings.NewReader(doc))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chapter 1")
	assert.Contains(t, err.Error(), `"updatedAt"`)
	assert.Equal(t, domain.Series{}, series)
}

func TestJSONParser_Parse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	series, err := newTestParser().Parse(ctx, strings.NewReader(borutoDocument))

	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, domain.Series{}, series)
}
