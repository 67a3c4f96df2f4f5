package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func chapters(names ...string) []Chapter {
	out := make([]Chapter, 0, len(names))
	for i, n := range names {
		out = append(out, Chapter{ID: ChapterID("c-" + n), Name: n, UpdatedAt: Timestamp(i)})
	}
	return out
}

func TestTimestamp_Time(t *testing.T) {
	got := Timestamp(1553691344).Time()
	assert.Equal(t, time.Date(2019, 3, 27, 12, 55, 44, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestTimestamp_TimeNegative(t *testing.T) {
	assert.Equal(t, time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC), Timestamp(-1).Time())
}

func TestSeries_LastChapters_Trailing(t *testing.T) {
	s := Series{Chapters: chapters("A", "B", "C", "D", "E")}
	assert.Equal(t, chapters("A", "B", "C", "D", "E")[2:], s.LastChapters(3))
}

func TestSeries_LastChapters_WholeWhenShorter(t *testing.T) {
	s := Series{Chapters: chapters("A", "B", "C", "D", "E")}
	assert.Equal(t, s.Chapters, s.LastChapters(10))
}

func TestSeries_LastChapters_ExactSize(t *testing.T) {
	s := Series{Chapters: chapters("A", "B", "C")}
	assert.Equal(t, s.Chapters, s.LastChapters(3))
}

func TestSeries_LastChapters_Empty(t *testing.T) {
	assert.Empty(t, Series{}.LastChapters(10))
	assert.Empty(t, Series{Chapters: chapters("A")}.LastChapters(0))
}

func TestSeries_LastChapters_DoesNotAlias(t *testing.T) {
	s := Series{Chapters: chapters("A", "B")}
	got := s.LastChapters(10)
	got[0].Name = "changed"
	assert.Equal(t, "A", s.Chapters[0].Name)
}

func TestSeries_Equality(t *testing.T) {
	a := Series{ID: "s", Name: "n", LastUpdate: 1, Chapters: chapters("A")}
	b := Series{ID: "s", Name: "n", LastUpdate: 1, Chapters: chapters("A")}
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Series{ID: "other", Name: "n", LastUpdate: 1, Chapters: chapters("A")})
}

func TestErrors_Helpers(t *testing.T) {
	te := &TransportError{SeriesID: "s1", URL: "http://x", StatusCode: 503}
	pe := &ParseError{Reason: "missing envelope"}
	ae := &AggregationError{SeriesID: "s1", Err: te}

	assert.True(t, IsTransport(fmt.Errorf("wrapped: %w", te)))
	assert.False(t, IsTransport(pe))
	assert.True(t, IsParse(pe))
	assert.True(t, IsAggregation(ae))
	assert.True(t, IsTransport(ae))
	assert.Contains(t, te.Error(), "unexpected status code 503")
	assert.Contains(t, ae.Error(), "s1")
}

func TestTransportError_UnwrapsCause(t *testing.T) {
	te := &TransportError{URL: "http://x", Err: io.ErrUnexpectedEOF}
	assert.True(t, errors.Is(te, io.ErrUnexpectedEOF))
	assert.Contains(t, te.Error(), "http://x")
}
