package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/Belphemur/bazarr-translate/internal/config"
	"github.com/Belphemur/bazarr-translate/internal/models"
)

const seriesPath = "/api/series"

// StreamSeries streams series from the paginated Bazarr listing.
// Pages are requested sequentially with start/length until the reported total is reached
// or an empty page is returned. A page size of zero or less fetches everything at once.
func (c *client) StreamSeries(ctx context.Context) <-chan models.StreamResult[models.Series] {
	ch := make(chan models.StreamResult[models.Series])

	go func() {
		defer close(ch)
		logger := config.GetLogger()
		logger.Info().Str("baseURL", c.baseURL).Int("pageSize", c.pageSize).Msg("Streaming series list")

		start := 0
		for page := 1; ; page++ {
			length := c.pageSize
			if length <= 0 {
				length = -1
			}
			query := url.Values{
				"start":  {strconv.Itoa(start)},
				"length": {strconv.Itoa(length)},
			}

			var seriesPage models.SeriesPage
			if err := c.getJSON(ctx, seriesPath, query, &seriesPage); err != nil {
				sendResult(ctx, ch, models.StreamResult[models.Series]{Err: err})
				return
			}

			logger.Debug().Int("page", page).Int("count", len(seriesPage.Data)).Int("total", seriesPage.Total).Msg("Fetched series page")

			for _, s := range seriesPage.Data {
				if !sendResult(ctx, ch, models.StreamResult[models.Series]{Value: s}) {
					return
				}
			}

			start += len(seriesPage.Data)
			if lastSeriesPage(seriesPage, start, c.pageSize) {
				logger.Info().Int("series", start).Int("pages", page).Msg("Finished streaming series list")
				return
			}
		}
	}()

	return ch
}

// lastSeriesPage decides whether the listing is exhausted after fetched entries.
func lastSeriesPage(page models.SeriesPage, fetched, pageSize int) bool {
	switch {
	case len(page.Data) == 0:
		return true
	case pageSize <= 0:
		return true
	case page.Total > 0:
		return fetched >= page.Total
	default:
		return len(page.Data) < pageSize
	}
}

// sendResult sends r on ch unless ctx is cancelled first. It reports whether the value was sent.
func sendResult[T any](ctx context.Context, ch chan<- models.StreamResult[T], r models.StreamResult[T]) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
