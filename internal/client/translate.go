package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Belphemur/bazarr-translate/internal/config"
	"github.com/Belphemur/bazarr-translate/internal/models"
)

const subtitlesPath = "/api/subtitles"

// Translate triggers Bazarr's translate action for an episode subtitle.
// Bazarr performs the translation server-side and answers 204 on success.
func (c *client) Translate(ctx context.Context, req models.TranslateRequest) error {
	logger := config.GetLogger()

	query := url.Values{
		"action":          {"translate"},
		"language":        {req.Language},
		"path":            {req.SourcePath},
		"type":            {"episode"},
		"id":              {strconv.Itoa(req.EpisodeID)},
		"forced":          {strconv.FormatBool(req.Forced)},
		"hi":              {strconv.FormatBool(req.HI)},
		"original_format": {"true"},
	}

	resp, err := c.do(ctx, http.MethodPatch, subtitlesPath, query)
	if err != nil {
		return fmt.Errorf("translate episode %d of series %d to %q: %w", req.EpisodeID, req.SeriesID, req.Language, err)
	}
	defer resp.Body.Close()

	logger.Debug().
		Int("seriesID", req.SeriesID).
		Int("episodeID", req.EpisodeID).
		Int("status", resp.StatusCode).
		Msg("Translate action accepted")
	return nil
}
