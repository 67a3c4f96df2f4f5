// Package rss renders aggregated series as an RSS 2.0 document.
package rss

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"mangafeed/internal/domain"
	"time"
)

const (
	// DefaultWindow is how many trailing chapters of each series are published.
	DefaultWindow = 10

	channelTitle       = "Manga rock"
	channelDescription = "Ceci un flux RSS reconstruit pour manga rock"
	channelLink        = "https://mangarock.com/g"
	chapterLinkFormat  = "https://mangarock.com/manga/%s/chapter/%s"

	// RFC 2822 with a space-padded day of month.
	rfc2822 = "Mon, _2 Jan 2006 15:04:05 -0700"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel channelXML `xml:"channel"`
}

type channelXML struct {
	Title         string    `xml:"title"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Link          string    `xml:"link"`
	Items         []itemXML `xml:"item"`
}

type itemXML struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Link        string `xml:"link"`
}

// Renderer turns a list of series into the feed document.
type Renderer struct {
	window int
}

type Option func(*Renderer)

// WithWindow overrides the number of trailing chapters kept per series.
func WithWindow(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.window = n
		}
	}
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{window: DefaultWindow}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render builds the feed for series with now as lastBuildDate. Output depends
// only on its arguments. Text values are XML-escaped; apostrophes and quotes
// become &#39; and &#34;.
func (r *Renderer) Render(series []domain.Series, now time.Time) ([]byte, error) {
	doc := rssXML{
		Version: "2.0",
		Channel: channelXML{
			Title:         channelTitle,
			Description:   channelDescription,
			LastBuildDate: FormatDate(now),
			Link:          channelLink,
			Items:         r.items(series),
		},
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(body))
	buf.WriteString(xml.Header)
	buf.Write(body)
	return buf.Bytes(), nil
}

func (r *Renderer) items(series []domain.Series) []itemXML {
	var items []itemXML
	for _, s := range series {
		for _, chapter := range s.LastChapters(r.window) {
			items = append(items, itemXML{
				Title:       s.Name + " - " + chapter.Name,
				Description: chapter.Name,
				PubDate:     FormatDate(chapter.UpdatedAt.Time()),
				Link:        ChapterLink(s.ID, chapter.ID),
			})
		}
	}
	return items
}

// FormatDate formats t in UTC as RFC 2822, e.g. "Tue,  8 Jul 2014 09:10:11 +0000".
func FormatDate(t time.Time) string {
	return t.UTC().Format(rfc2822)
}

// ChapterLink is the public reader URL of a chapter.
func ChapterLink(series domain.SeriesID, chapter domain.ChapterID) string {
	return fmt.Sprintf(chapterLinkFormat, series, chapter)
}
