package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Belphemur/bazarr-translate/internal/config"
	"github.com/Belphemur/bazarr-translate/internal/models"
)

const episodesPath = "/api/episodes"

// ListEpisodes returns the episodes of a series
func (c *client) ListEpisodes(ctx context.Context, seriesID int) ([]models.Episode, error) {
	logger := config.GetLogger()

	query := url.Values{"seriesid[]": {strconv.Itoa(seriesID)}}

	var list models.EpisodeList
	if err := c.getJSON(ctx, episodesPath, query, &list); err != nil {
		return nil, fmt.Errorf("list episodes of series %d: %w", seriesID, err)
	}

	logger.Debug().Int("seriesID", seriesID).Int("episodes", len(list.Data)).Msg("Fetched episodes")
	return list.Data, nil
}
