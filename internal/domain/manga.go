package domain

import "time"

// SeriesID is the upstream identifier of a manga series, e.g. "mrs-serie-288364".
type SeriesID string

func (id SeriesID) String() string { return string(id) }

// ChapterID is the upstream identifier of a chapter inside a series.
type ChapterID string

func (id ChapterID) String() string { return string(id) }

// Timestamp is a Unix time in seconds as sent by the upstream API.
type Timestamp int64

// Time converts the timestamp to a UTC calendar time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// Chapter is a single chapter of a series.
type Chapter struct {
	ID        ChapterID
	Name      string
	UpdatedAt Timestamp
}

// Series is a manga series with its chapters in upstream order.
// LastUpdate is kept as received and is not used when rendering.
type Series struct {
	ID         SeriesID
	Name       string
	LastUpdate Timestamp
	Chapters   []Chapter
}

// LastChapters returns the trailing n chapters by position, keeping their order.
// The returned slice shares no memory with s.Chapters.
func (s Series) LastChapters(n int) []Chapter {
	if n <= 0 {
		return []Chapter{}
	}
	start := 0
	if len(s.Chapters) > n {
		start = len(s.Chapters) - n
	}
	out := make([]Chapter, len(s.Chapters)-start)
	copy(out, s.Chapters[start:])
	return out
}

// FetchRecord is the outcome of fetching one series, as kept in the fetch log.
type FetchRecord struct {
	SeriesID  SeriesID  `json:"series_id"`
	OK        bool      `json:"ok"`
	Chapters  int       `json:"chapters"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}
