package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/Belphemur/bazarr-translate/internal/apperrors"
	"github.com/Belphemur/bazarr-translate/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "bazarr-translate/1.0 (+https://github.com/Belphemur/bazarr-translate)"

// EnvPrefix is prepended to every configuration key when read from the environment.
const EnvPrefix = "BAZARR"

type Config struct {
	APIKey                string `mapstructure:"api_key" validate:"required"`
	BaseURL               string `mapstructure:"base_url" validate:"required,url"`
	ProxyConnectionString string `mapstructure:"proxy_connection_string" validate:"omitempty,url"`
	ClientTimeout         string `mapstructure:"client_timeout"` // Go duration string like "30s", "1m", etc.
	UserAgent             string `mapstructure:"user_agent"`

	TargetLanguage string `mapstructure:"target_language" validate:"required"`
	SourceLanguage string `mapstructure:"source_language" validate:"required"`
	SeriesID       string `mapstructure:"series_id"`  // empty selects every series
	EpisodeID      string `mapstructure:"episode_id"` // applied within every selected series, empty selects every episode

	OnError      string  `mapstructure:"on_error" validate:"oneof=continue abort"`
	SkipExisting bool    `mapstructure:"skip_existing"`
	DryRun       bool    `mapstructure:"dry_run"`
	Concurrency  int     `mapstructure:"concurrency" validate:"min=1,max=32"`
	PageSize     int     `mapstructure:"page_size" validate:"min=0"`
	RateLimit    float64 `mapstructure:"rate_limit" validate:"min=0"` // requests per second, 0 disables throttling

	Retry struct {
		MaxRetries int    `mapstructure:"max_retries" validate:"min=0,max=10"`
		Delay      string `mapstructure:"delay"`     // initial backoff, Go duration string
		MaxDelay   string `mapstructure:"max_delay"` // backoff cap, Go duration string
	} `mapstructure:"retry"`

	Metrics struct {
		PushURL string `mapstructure:"push_url" validate:"omitempty,url"` // Prometheus Pushgateway
		Job     string `mapstructure:"job"`
	} `mapstructure:"metrics"`

	SentryDSN         string `mapstructure:"sentry_dsn"`
	SentryEnvironment string `mapstructure:"sentry_environment"` // e.g. "production", tags every reported failure
	LogLevel          string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"api_key":                 "",
	"base_url":                "",
	"proxy_connection_string": "",
	"client_timeout":          "30s",
	"user_agent":              DefaultUserAgent,
	"target_language":         "nl",
	"source_language":         "en",
	"series_id":               "",
	"episode_id":              "",
	"on_error":                string(models.ErrorPolicyContinue),
	"skip_existing":           false,
	"dry_run":                 false,
	"concurrency":             1,
	"page_size":               50,
	"rate_limit":              0.0,
	"retry.max_retries":       2,
	"retry.delay":             "1s",
	"retry.max_delay":         "10s",
	"metrics.push_url":        "",
	"metrics.job":             "bazarr_translate",
	"sentry_dsn":              "",
	"sentry_environment":      "",
	"log_level":               "info",
}

// NewViper returns a viper instance with every known key defaulted and bound to
// its BAZARR_* environment variable. Command line flags are bound on top by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Add specific environment variable for log level
	_ = v.BindEnv("log_level", "LOG_LEVEL", EnvPrefix+"_LOG_LEVEL")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// LoadDotEnv loads variables from the given .env files (default ".env") into the
// process environment. Variables that are already set are never overwritten and
// a missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Load reads the configuration file (if any), unmarshals v into a Config and
// validates it. Every configuration problem is returned as *apperrors.ErrConfig
// so callers can fail before any network call is made.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperrors.NewConfigError("config", "", err.Error())
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, apperrors.NewConfigError("config", "", err.Error())
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.TargetLanguage = strings.TrimSpace(c.TargetLanguage)
	c.SourceLanguage = strings.TrimSpace(c.SourceLanguage)
	c.SeriesID = strings.TrimSpace(c.SeriesID)
	c.EpisodeID = strings.TrimSpace(c.EpisodeID)
	c.OnError = strings.ToLower(strings.TrimSpace(c.OnError))
	c.SentryEnvironment = strings.TrimSpace(c.SentryEnvironment)
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report the configuration key rather than the Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks required values and value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
			return apperrors.NewConfigError("config", "", err.Error())
		}
		fe := validationErrs[0]
		key := configKey(fe.Namespace())
		return apperrors.NewConfigError(key, EnvName(key), friendlyMessage(fe))
	}

	if _, err := parseOptionalID(c.SeriesID); err != nil {
		return apperrors.NewConfigError("series_id", EnvName("series_id"), err.Error())
	}
	if _, err := parseOptionalID(c.EpisodeID); err != nil {
		return apperrors.NewConfigError("episode_id", EnvName("episode_id"), err.Error())
	}

	if _, err := language.Parse(c.TargetLanguage); err != nil {
		// Bazarr is the judge of which codes it supports, the value is sent as-is
		logger.Warn().Err(err).Str("target_language", c.TargetLanguage).Msg("Target language is not a well-formed language tag")
	}
	return nil
}

// Selection returns the run parameters described by the configuration.
func (c *Config) Selection() models.Selection {
	seriesID, _ := parseOptionalID(c.SeriesID)
	episodeID, _ := parseOptionalID(c.EpisodeID)
	return models.Selection{
		TargetLanguage: c.TargetLanguage,
		SeriesID:       seriesID,
		EpisodeID:      episodeID,
	}
}

// ErrorPolicy returns the configured failure policy.
func (c *Config) ErrorPolicy() models.ErrorPolicy {
	if c.OnError == string(models.ErrorPolicyAbort) {
		return models.ErrorPolicyAbort
	}
	return models.ErrorPolicyContinue
}

// EnvName returns the environment variable that sets the given configuration key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// parseOptionalID parses a series or episode id. Empty, "all" and "none" mean no filter.
func parseOptionalID(raw string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "none":
		return nil, nil
	}
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.New("must be an integer id")
	}
	if id <= 0 {
		return nil, errors.New("must be a positive id")
	}
	return &id, nil
}

// configKey strips the root struct name from a validator namespace ("Config.retry.max_retries").
func configKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

var logger zerolog.Logger

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// ConfigureLogger parses and applies the log level. An invalid level falls back to info.
func ConfigureLogger(levelName string) zerolog.Level {
	level := zerolog.InfoLevel // default
	if levelName != "" {
		if parsedLevel, err := zerolog.ParseLevel(strings.ToLower(levelName)); err == nil && parsedLevel != zerolog.NoLevel {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", levelName).Msg("Invalid log level, using default 'info'")
		}
	}

	// Set the global log level
	zerolog.SetGlobalLevel(level)

	// Update logger with the configured level
	logger = logger.Level(level)
	return level
}

func GetLogger() zerolog.Logger {
	return logger
}
