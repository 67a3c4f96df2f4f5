// Package mangarock talks to the Manga Rock web API.
package mangarock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mangafeed/internal/domain"
	"net/url"
	"strings"
)

// DefaultBaseURL is the upstream endpoint the feed was built against.
const DefaultBaseURL = "https://api.mangarockhd.com/query/web401"

type bodyFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

type seriesParser interface {
	Parse(ctx context.Context, reader io.Reader) (domain.Series, error)
}

// Client resolves a series identifier to its parsed info document.
type Client struct {
	baseURL string
	fetcher bodyFetcher
	parser  seriesParser
	log     *slog.Logger
}

func NewClient(baseURL string, f bodyFetcher, p seriesParser, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: f,
		parser:  p,
		log:     log,
	}
}

// InfoURL returns {base}/info?oid={id} with the id query-escaped.
func (c *Client) InfoURL(id domain.SeriesID) string {
	q := url.Values{}
	q.Set("oid", string(id))
	return c.baseURL + "/info?" + q.Encode()
}

// SeriesInfo issues exactly one GET for id. Failures are either a
// *domain.TransportError or a *domain.ParseError; neither is retried.
func (c *Client) SeriesInfo(ctx context.Context, id domain.SeriesID) (domain.Series, error) {
	const op = "mangarock.SeriesInfo"
	infoURL := c.InfoURL(id)
	log := c.log.With(
		slog.String("component", "mangarock"),
		slog.String("op", op),
		slog.String("series_id", string(id)),
	)

	body, err := c.fetcher.Fetch(ctx, infoURL)
	if err != nil {
		var te *domain.TransportError
		if errors.As(err, &te) {
			te.SeriesID = id
			return domain.Series{}, te
		}
		return domain.Series{}, &domain.TransportError{SeriesID: id, URL: infoURL, Err: err}
	}
	defer body.Close()

	series, err := c.parser.Parse(ctx, body)
	if err != nil {
		if domain.IsParse(err) {
			return domain.Series{}, err
		}
		// Read failures mid-body and cancellations surface from the parser
		// but belong to the transport side.
		return domain.Series{}, &domain.TransportError{SeriesID: id, URL: infoURL, Err: fmt.Errorf("%s: %w", op, err)}
	}
	log.Debug("Series fetched", slog.Int("chapters", len(series.Chapters)))
	return series, nil
}
