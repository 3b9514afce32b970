package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Belphemur/bazarr-translate/internal/apperrors"
	"github.com/Belphemur/bazarr-translate/internal/client"
	"github.com/Belphemur/bazarr-translate/internal/config"
	"github.com/Belphemur/bazarr-translate/internal/metrics"
	"github.com/Belphemur/bazarr-translate/internal/reporting"
	"github.com/Belphemur/bazarr-translate/internal/services"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var version = "dev"

// Process exit codes
const (
	exitOK       = 0
	exitConfig   = 1
	exitUpstream = 2
)

// flagKeys maps command line flags to their configuration keys
var flagKeys = map[string]string{
	"target-language": "target_language",
	"source-language": "source_language",
	"series-id":       "series_id",
	"episode-id":      "episode_id",
	"on-error":        "on_error",
	"skip-existing":   "skip_existing",
	"dry-run":         "dry_run",
	"concurrency":     "concurrency",
	"log-level":       "log_level",
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "bazarr-translate",
		Short: "Ask Bazarr to machine-translate episode subtitles",
		Long: `Walks the series and episodes known to a Bazarr instance and asks Bazarr to
translate the existing subtitle of each selected episode into a target language.

Connection settings come from BAZARR_API_KEY and BAZARR_BASE_URL, a .env file
or a config.yaml. Every setting can also be given as a BAZARR_* variable.

Exit codes: 0 run completed, 1 configuration error, 2 Bazarr request failed.`,
		Version: version,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return apperrors.NewConfigError("args", "", "unexpected arguments, use flags instead")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
			}
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "path to a YAML config file (default ./config.yaml)")
	flags.StringP("target-language", "l", "", "language code to translate into (default nl)")
	flags.String("source-language", "", "language of the subtitle to translate from (default en)")
	flags.String("series-id", "", "only translate this series (default all)")
	flags.String("episode-id", "", "only translate this episode, looked up in every selected series")
	flags.String("on-error", "", "what to do when an episode fails: continue or abort (default continue)")
	flags.Bool("skip-existing", false, "skip episodes that already have a subtitle in the target language")
	flags.Bool("dry-run", false, "list what would be translated without asking Bazarr")
	flags.Int("concurrency", 0, "number of translate requests in flight (default 1)")
	flags.String("log-level", "", "log level: debug, info, warn, error (default info)")

	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.NewConfigError("flags", "", err.Error())
	})

	return cmd
}

// run loads the configuration, builds the Bazarr client and drives one translation run
func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	config.ConfigureLogger(cfg.LogLevel)
	logger := config.GetLogger()

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Str("proxy_connection_string", cfg.ProxyConnectionString).
		Str("target_language", cfg.TargetLanguage).
		Str("source_language", cfg.SourceLanguage).
		Str("on_error", string(cfg.ErrorPolicy())).
		Int("concurrency", cfg.Concurrency).
		Bool("dry_run", cfg.DryRun).
		Bool("metrics_push", cfg.Metrics.PushURL != "").
		Bool("sentry", cfg.SentryDSN != "").
		Msg("Application started with configuration")

	reporter, err := reporting.New(reportingOptions(cfg))
	if err != nil {
		return apperrors.NewConfigError("sentry_dsn", config.EnvName("sentry_dsn"), err.Error())
	}
	defer reporter.Flush(5 * time.Second)

	bazarr := client.NewClient(cfg)
	defer func() {
		if err := bazarr.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close Bazarr client")
		}
	}()

	driver := services.NewTranslationDriver(bazarr, services.DriverOptions{
		OnError:        cfg.ErrorPolicy(),
		SourceLanguage: cfg.SourceLanguage,
		SkipExisting:   cfg.SkipExisting,
		DryRun:         cfg.DryRun,
		Concurrency:    cfg.Concurrency,
		Reporter:       reporter,
	})

	_, runErr := driver.Run(ctx, cfg.Selection())

	// The run context may already be cancelled, the push still gets its own deadline
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.Metrics.PushURL, cfg.Metrics.Job); err != nil {
		logger.Warn().Err(err).Msg("Failed to push metrics")
	}

	return runErr
}

// reportingOptions builds the Sentry options of a run
func reportingOptions(cfg *config.Config) reporting.Options {
	return reporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     version,
	}
}

// exitCode maps the outcome of a run to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, &apperrors.ErrConfig{}):
		return exitConfig
	default:
		return exitUpstream
	}
}

// execute runs the command line and returns the process exit code
func execute(args []string) int {
	logger := config.GetLogger()

	if err := config.LoadDotEnv(); err != nil {
		logger.Error().Err(err).Msg("Failed to load .env file")
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(config.NewViper())
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	code := exitCode(err)
	switch code {
	case exitConfig:
		logger.Error().Err(err).Msg("Configuration error")
	case exitUpstream:
		logger.Error().Err(err).Msg("Translation run failed")
	}
	return code
}
