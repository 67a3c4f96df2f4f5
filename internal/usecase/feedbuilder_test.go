package usecase

import (
	"context"
	"errors"
	"mangafeed/internal/adapter/rss"
	"mangafeed/internal/domain"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRenderer struct{}

func (failingRenderer) Render([]domain.Series, time.Time) ([]byte, error) {
	return nil, errors.New("encoder broke")
}

func TestFeedBuilder_BuildFeed_Lenient(t *testing.T) {
	fixed := time.Date(2014, 7, 8, 9, 10, 11, 0, time.UTC)
	agg := NewAggregator(xyzSource(), discardLogger())
	b := NewFeedBuilder(agg, rss.NewRenderer(), []domain.SeriesID{"X", "Y", "Z"}, discardLogger(),
		WithBuildClock(func() time.Time { return fixed }))

	body, err := b.BuildFeed(context.Background())

	require.NoError(t, err)
	out := string(body)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, "<lastBuildDate>Tue,  8 Jul 2014 09:10:11 +0000</lastBuildDate>")
	assert.Equal(t, 3, strings.Count(out, "<item>"))
	assert.Contains(t, out, "https://mangarock.com/manga/X/chapter/X-c")
	assert.NotContains(t, out, "/manga/Y/")
}

func TestFeedBuilder_BuildFeed_StrictPropagatesAggregationError(t *testing.T) {
	agg := NewAggregator(xyzSource(), discardLogger(), WithMode(ModeStrict))
	b := NewFeedBuilder(agg, rss.NewRenderer(), []domain.SeriesID{"X", "Y", "Z"}, discardLogger())

	body, err := b.BuildFeed(context.Background())

	assert.Nil(t, body)
	assert.True(t, domain.IsAggregation(err))
}

func TestFeedBuilder_BuildFeed_RenderError(t *testing.T) {
	agg := NewAggregator(xyzSource(), discardLogger())
	b := NewFeedBuilder(agg, failingRenderer{}, []domain.SeriesID{"X"}, discardLogger())

	_, err := b.BuildFeed(context.Background())

	require.Error(t, err)
	assert.False(t, domain.IsAggregation(err))
	assert.Contains(t, err.Error(), "encoder broke")
}
