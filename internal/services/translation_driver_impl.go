package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Belphemur/bazarr-translate/internal/apperrors"
	"github.com/Belphemur/bazarr-translate/internal/client"
	"github.com/Belphemur/bazarr-translate/internal/config"
	"github.com/Belphemur/bazarr-translate/internal/metrics"
	"github.com/Belphemur/bazarr-translate/internal/models"
	"github.com/Belphemur/bazarr-translate/internal/reporting"
	"golang.org/x/sync/errgroup"
)

// DriverOptions tunes how a selection is processed
type DriverOptions struct {
	// OnError decides whether one failed episode stops the run
	OnError models.ErrorPolicy
	// SourceLanguage is the language of the existing subtitle Bazarr translates from
	SourceLanguage string
	// SkipExisting skips episodes that already have a subtitle in the target language
	SkipExisting bool
	// DryRun resolves the selection without sending translate actions
	DryRun bool
	// Concurrency bounds the number of translate actions in flight. 1 keeps the run strictly sequential.
	Concurrency int
	Reporter    reporting.Reporter
}

// DefaultTranslationDriver implements TranslationDriver on top of a Bazarr client
type DefaultTranslationDriver struct {
	client client.Client
	opts   DriverOptions
}

// NewTranslationDriver creates a driver. Zero options fall back to a sequential,
// best-effort run translating from English subtitles.
func NewTranslationDriver(c client.Client, opts DriverOptions) TranslationDriver {
	if opts.OnError == "" {
		opts.OnError = models.ErrorPolicyContinue
	}
	if opts.SourceLanguage == "" {
		opts.SourceLanguage = "en"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Reporter == nil {
		opts.Reporter = reporting.Noop()
	}
	return &DefaultTranslationDriver{client: c, opts: opts}
}

// Run implements TranslationDriver
func (d *DefaultTranslationDriver) Run(ctx context.Context, sel models.Selection) (*models.RunSummary, error) {
	logger := config.GetLogger()
	summary := &models.RunSummary{}

	if sel.TargetLanguage == "" {
		return summary, apperrors.NewConfigError("target_language", config.EnvName("target_language"), "is required")
	}

	started := time.Now()
	logger.Info().
		Stringer("selection", sel).
		Str("sourceLanguage", d.opts.SourceLanguage).
		Str("onError", string(d.opts.OnError)).
		Int("concurrency", d.opts.Concurrency).
		Bool("dryRun", d.opts.DryRun).
		Msg("Starting translation run")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	listErr := d.forEachSeries(gctx, sel, func(seriesID int) error {
		return d.processSeries(gctx, g, sel, seriesID, summary)
	})
	waitErr := g.Wait()

	// A worker failure cancels gctx, which in turn surfaces as a cancellation of the listing
	runErr := waitErr
	if runErr == nil {
		runErr = listErr
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	elapsed := time.Since(started)
	metrics.LastRunDurationSeconds.Set(elapsed.Seconds())
	if runErr == nil {
		metrics.LastRunSuccessTimestamp.SetToCurrentTime()
	}

	d.logSummary(summary, elapsed, runErr)
	return summary, runErr
}

// forEachSeries calls fn for the selected series, or for every series Bazarr knows when none is selected
func (d *DefaultTranslationDriver) forEachSeries(ctx context.Context, sel models.Selection, fn func(seriesID int) error) error {
	if sel.SeriesID != nil {
		return fn(*sel.SeriesID)
	}

	// Stop the producer as soon as we bail out
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for result := range d.client.StreamSeries(streamCtx) {
		if result.Err != nil {
			return fmt.Errorf("list series: %w", result.Err)
		}
		if err := fn(result.Value.ID); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// processSeries lists the episodes of one series and schedules the matching ones
func (d *DefaultTranslationDriver) processSeries(ctx context.Context, g *errgroup.Group, sel models.Selection, seriesID int, summary *models.RunSummary) error {
	logger := config.GetLogger()

	if err := ctx.Err(); err != nil {
		return err
	}

	summary.AddSeries()
	metrics.SeriesProcessedTotal.Inc()

	episodes, err := d.client.ListEpisodes(ctx, seriesID)
	if err != nil {
		return d.handleFailure(ctx, summary, seriesID, 0, err, "Failed to list episodes")
	}

	matched := 0
	for _, episode := range episodes {
		if sel.EpisodeID != nil && episode.ID != *sel.EpisodeID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		matched++
		summary.AddEpisode()
		if err := d.processEpisode(ctx, g, sel, seriesID, episode, summary); err != nil {
			return err
		}
	}

	if sel.EpisodeID != nil && matched == 0 {
		logger.Info().Int("seriesID", seriesID).Int("episodeID", *sel.EpisodeID).Msg("Episode not found in series, nothing to translate")
	} else {
		logger.Debug().Int("seriesID", seriesID).Int("episodes", matched).Msg("Scheduled series episodes")
	}
	return nil
}

// processEpisode decides whether an episode is translated and submits the translate action
func (d *DefaultTranslationDriver) processEpisode(ctx context.Context, g *errgroup.Group, sel models.Selection, seriesID int, episode models.Episode, summary *models.RunSummary) error {
	logger := config.GetLogger()

	if d.opts.SkipExisting && episode.HasSubtitle(sel.TargetLanguage) {
		logger.Info().
			Int("seriesID", seriesID).
			Int("episodeID", episode.ID).
			Str("language", sel.TargetLanguage).
			Msg("Episode already has a subtitle in the target language, skipping")
		summary.AddSkipped()
		metrics.TranslationsTotal.WithLabelValues(metrics.StatusSkipped).Inc()
		return nil
	}

	source, ok := episode.SourceSubtitle(d.opts.SourceLanguage)
	if !ok {
		logger.Warn().
			Int("seriesID", seriesID).
			Int("episodeID", episode.ID).
			Str("sourceLanguage", d.opts.SourceLanguage).
			Msg("No source subtitle to translate from, skipping")
		summary.AddSkipped()
		metrics.TranslationsTotal.WithLabelValues(metrics.StatusSkipped).Inc()
		return nil
	}

	req := models.TranslateRequest{
		SeriesID:   seriesID,
		EpisodeID:  episode.ID,
		Language:   sel.TargetLanguage,
		SourcePath: source.Path,
		Forced:     source.Forced,
		HI:         source.HI,
	}

	if d.opts.DryRun {
		logger.Info().
			Int("seriesID", seriesID).
			Int("episodeID", episode.ID).
			Str("source", source.Path).
			Str("language", req.Language).
			Msg("Dry run: would translate subtitle")
		summary.AddPlanned()
		metrics.TranslationsTotal.WithLabelValues(metrics.StatusPlanned).Inc()
		return nil
	}

	return d.submit(g, func() error {
		if err := d.client.Translate(ctx, req); err != nil {
			return d.handleFailure(ctx, summary, seriesID, episode.ID, err, "Failed to translate subtitle")
		}
		summary.AddTranslated()
		metrics.TranslationsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
		logger.Info().
			Int("seriesID", seriesID).
			Int("episodeID", episode.ID).
			Int("season", episode.Season).
			Int("episode", episode.Episode).
			Str("title", episode.Title).
			Str("language", req.Language).
			Msg("Translated subtitle")
		return nil
	})
}

// submit runs fn inline for sequential runs and on the worker pool otherwise
func (d *DefaultTranslationDriver) submit(g *errgroup.Group, fn func() error) error {
	if d.opts.Concurrency <= 1 {
		return fn()
	}
	g.Go(fn)
	return nil
}

// handleFailure records a per-item failure. It returns the error only when the run must stop.
func (d *DefaultTranslationDriver) handleFailure(ctx context.Context, summary *models.RunSummary, seriesID, episodeID int, err error, msg string) error {
	// Work interrupted by cancellation is not an upstream failure
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}

	logger := config.GetLogger()
	event := logger.Error().Err(err).Int("seriesID", seriesID)
	if episodeID != 0 {
		event = event.Int("episodeID", episodeID)
	}
	var statusErr *apperrors.ErrUpstreamStatus
	if errors.As(err, &statusErr) {
		event = event.Int("status", statusErr.StatusCode)
		if statusErr.IsRateLimited() {
			event = event.Str("hint", "lower concurrency or set rate_limit")
		}
	}
	event.Msg(msg)

	summary.AddFailure(models.TranslationFailure{SeriesID: seriesID, EpisodeID: episodeID, Err: err})
	metrics.TranslationsTotal.WithLabelValues(metrics.StatusFailure).Inc()
	d.opts.Reporter.ReportFailure(err, seriesID, episodeID)

	// A rejected API key fails every later request the same way
	if statusErr != nil && statusErr.IsUnauthorized() {
		return err
	}
	if d.opts.OnError == models.ErrorPolicyAbort {
		return err
	}
	return nil
}

func (d *DefaultTranslationDriver) logSummary(summary *models.RunSummary, elapsed time.Duration, runErr error) {
	logger := config.GetLogger()

	event := logger.Info()
	if runErr != nil || summary.Failed > 0 {
		event = logger.Warn().AnErr("runError", runErr)
	}
	event.
		Int("series", summary.Series).
		Int("episodes", summary.Episodes).
		Int("translated", summary.Translated).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int("planned", summary.Planned).
		Dur("elapsed", elapsed).
		Msg("Translation run finished")

	for _, f := range summary.Failures {
		logger.Warn().Int("seriesID", f.SeriesID).Int("episodeID", f.EpisodeID).Err(f.Err).Msg("Failed item")
	}
}
