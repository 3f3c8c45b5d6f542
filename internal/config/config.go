package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort              = "8080"
	defaultCacheBackend      = "file"
	defaultCacheDir          = "cache"
	defaultCacheDatabaseURL  = "file:cache.db"
	defaultGCSPrefix         = "briefsearch"
	defaultCacheMaxAgeHours  = 168
	defaultCachePrune        = "@daily"
	defaultOutputDir         = "output"
	defaultOutputWidth       = 100
	defaultFetchTimeoutSecs  = 15
	defaultPolitenessMillis  = 500
	defaultFetchMaxBytes     = 5_000_000
	defaultFetchPerHost      = 2
	defaultFetchConcurrency  = 4
	defaultRobotsTimeoutSecs = 10
	defaultSearchTimeoutSecs = 15

	// DefaultUserAgent is a desktop browser string; many sites refuse
	// obvious bot agents outright.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// Config is read once at startup and passed to each component.
type Config struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level"`
	LogFormat      string   `yaml:"log_format"`

	CacheBackend       string   `yaml:"cache_backend"`
	CacheDir           string   `yaml:"cache_dir"`
	CacheDatabaseURL   string   `yaml:"cache_database_url"`
	CacheDatabaseToken string   `yaml:"cache_database_auth_token"`
	CacheGCSBucket     string   `yaml:"cache_gcs_bucket"`
	CacheGCSPrefix     string   `yaml:"cache_gcs_prefix"`
	CacheMaxAgeHours   int      `yaml:"cache_max_age_hours"`
	CachePruneSchedule string   `yaml:"cache_prune_schedule"`
	ResultCacheEnabled bool     `yaml:"result_cache_enabled"`
	ReputableDomains   []string `yaml:"reputable_domains"`

	OutputDir   string `yaml:"output_dir"`
	OutputWidth int    `yaml:"output_width"`

	UserAgent           string `yaml:"user_agent"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	PolitenessDelayMS   int    `yaml:"politeness_delay_ms"`
	FetchMaxBytes       int64  `yaml:"fetch_max_bytes"`
	FetchPerHostLimit   int    `yaml:"fetch_per_host_limit"`
	FetchConcurrency    int    `yaml:"fetch_concurrency"`
	FetchAllowPrivate   bool   `yaml:"fetch_allow_private"`
	RobotsTimeoutSecs   int    `yaml:"robots_timeout_seconds"`

	SearchTimeoutSeconds int    `yaml:"search_timeout_seconds"`
	SearchMinIntervalMS  int    `yaml:"search_min_interval_ms"`
	GoogleCSEAPIKey      string `yaml:"google_cse_api_key"`
	GoogleCSEID          string `yaml:"google_cse_id"`
	BraveAPIKey          string `yaml:"brave_api_key"`
	BraveBaseURL         string `yaml:"brave_base_url"`
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c Config) PolitenessDelay() time.Duration {
	return time.Duration(c.PolitenessDelayMS) * time.Millisecond
}

func (c Config) RobotsTimeout() time.Duration {
	return time.Duration(c.RobotsTimeoutSecs) * time.Second
}

func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSeconds) * time.Second
}

func (c Config) SearchMinInterval() time.Duration {
	return time.Duration(c.SearchMinIntervalMS) * time.Millisecond
}

func (c Config) CacheMaxAge() time.Duration {
	return time.Duration(c.CacheMaxAgeHours) * time.Hour
}

// GoogleCSEEnabled reports whether both Google credentials are present.
func (c Config) GoogleCSEEnabled() bool {
	return c.GoogleCSEAPIKey != "" && c.GoogleCSEID != ""
}

func defaults() Config {
	return Config{
		Port:                 defaultPort,
		AllowedOrigins:       []string{"http://localhost:5173", "http://localhost:4173"},
		LogLevel:             "info",
		LogFormat:            "console",
		CacheBackend:         defaultCacheBackend,
		CacheDir:             defaultCacheDir,
		CacheDatabaseURL:     defaultCacheDatabaseURL,
		CacheGCSPrefix:       defaultGCSPrefix,
		CacheMaxAgeHours:     defaultCacheMaxAgeHours,
		CachePruneSchedule:   defaultCachePrune,
		OutputDir:            defaultOutputDir,
		OutputWidth:          defaultOutputWidth,
		UserAgent:            DefaultUserAgent,
		FetchTimeoutSeconds:  defaultFetchTimeoutSecs,
		PolitenessDelayMS:    defaultPolitenessMillis,
		FetchMaxBytes:        defaultFetchMaxBytes,
		FetchPerHostLimit:    defaultFetchPerHost,
		FetchConcurrency:     defaultFetchConcurrency,
		RobotsTimeoutSecs:    defaultRobotsTimeoutSecs,
		SearchTimeoutSeconds: defaultSearchTimeoutSecs,
	}
}

// Load builds the config from defaults, then the YAML file named by
// BRIEFSEARCH_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("BRIEFSEARCH_CONFIG")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOrDefault("PORT", cfg.Port)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("LOG_FORMAT", cfg.LogFormat)
	if origins := parseList(os.Getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	cfg.CacheBackend = strings.ToLower(envOrDefault("CACHE_BACKEND", cfg.CacheBackend))
	cfg.CacheDir = envOrDefault("CACHE_DIR", cfg.CacheDir)
	cfg.CacheDatabaseURL = envOrDefault("CACHE_DATABASE_URL", cfg.CacheDatabaseURL)
	cfg.CacheDatabaseToken = envOrDefault("CACHE_DATABASE_AUTH_TOKEN", cfg.CacheDatabaseToken)
	cfg.CacheGCSBucket = envOrDefault("CACHE_GCS_BUCKET", cfg.CacheGCSBucket)
	cfg.CacheGCSPrefix = envOrDefault("CACHE_GCS_PREFIX", cfg.CacheGCSPrefix)
	cfg.CacheMaxAgeHours = intOrDefault("CACHE_MAX_AGE_HOURS", cfg.CacheMaxAgeHours)
	cfg.CachePruneSchedule = envOrDefault("CACHE_PRUNE_SCHEDULE", cfg.CachePruneSchedule)
	cfg.ResultCacheEnabled = boolOrDefault("RESULT_CACHE_ENABLED", cfg.ResultCacheEnabled)

	cfg.OutputDir = envOrDefault("OUTPUT_DIR", cfg.OutputDir)
	cfg.OutputWidth = intOrDefault("OUTPUT_WIDTH", cfg.OutputWidth)

	cfg.UserAgent = envOrDefault("USER_AGENT", cfg.UserAgent)
	cfg.FetchTimeoutSeconds = intOrDefault("FETCH_TIMEOUT_SECONDS", cfg.FetchTimeoutSeconds)
	cfg.PolitenessDelayMS = intOrDefault("POLITENESS_DELAY_MS", cfg.PolitenessDelayMS)
	cfg.FetchMaxBytes = int64(intOrDefault("FETCH_MAX_BYTES", int(cfg.FetchMaxBytes)))
	cfg.FetchPerHostLimit = intOrDefault("FETCH_PER_HOST_LIMIT", cfg.FetchPerHostLimit)
	cfg.FetchConcurrency = intOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.FetchAllowPrivate = boolOrDefault("FETCH_ALLOW_PRIVATE", cfg.FetchAllowPrivate)
	cfg.RobotsTimeoutSecs = intOrDefault("ROBOTS_TIMEOUT_SECONDS", cfg.RobotsTimeoutSecs)

	cfg.SearchTimeoutSeconds = intOrDefault("SEARCH_TIMEOUT_SECONDS", cfg.SearchTimeoutSeconds)
	cfg.SearchMinIntervalMS = intOrDefault("SEARCH_MIN_INTERVAL_MS", cfg.SearchMinIntervalMS)
	cfg.GoogleCSEAPIKey = envOrDefault("GOOGLE_CSE_API_KEY", envOrDefault("GOOGLE_API_KEY", cfg.GoogleCSEAPIKey))
	cfg.GoogleCSEID = envOrDefault("GOOGLE_CSE_ID", cfg.GoogleCSEID)
	cfg.BraveAPIKey = envOrDefault("BRAVE_API_KEY", cfg.BraveAPIKey)
	cfg.BraveBaseURL = envOrDefault("BRAVE_BASE_URL", cfg.BraveBaseURL)

	if domains := parseList(os.Getenv("REPUTABLE_DOMAINS")); len(domains) > 0 {
		cfg.ReputableDomains = domains
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.CacheBackend {
	case "file", "memory", "none":
	case "sql":
		if strings.TrimSpace(c.CacheDatabaseURL) == "" {
			return errors.New("CACHE_DATABASE_URL is required for the sql cache backend")
		}
		if strings.HasPrefix(c.CacheDatabaseURL, "libsql://") && c.CacheDatabaseToken == "" {
			return errors.New("CACHE_DATABASE_AUTH_TOKEN is required for libsql:// URLs")
		}
	case "gcs":
		if c.CacheGCSBucket == "" {
			return errors.New("CACHE_GCS_BUCKET is required for the gcs cache backend")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.OutputWidth <= 0 {
		return errors.New("OUTPUT_WIDTH must be > 0")
	}
	if c.FetchTimeoutSeconds <= 0 {
		return errors.New("FETCH_TIMEOUT_SECONDS must be > 0")
	}
	if c.PolitenessDelayMS < 0 {
		return errors.New("POLITENESS_DELAY_MS must be >= 0")
	}
	if c.FetchConcurrency <= 0 {
		return errors.New("FETCH_CONCURRENCY must be > 0")
	}
	if c.CacheMaxAgeHours <= 0 {
		return errors.New("CACHE_MAX_AGE_HOURS must be > 0")
	}
	return nil
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.Port, file.Port)
	setString(&cfg.LogLevel, file.LogLevel)
	setString(&cfg.LogFormat, file.LogFormat)
	if len(file.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = file.AllowedOrigins
	}
	setString(&cfg.CacheBackend, file.CacheBackend)
	setString(&cfg.CacheDir, file.CacheDir)
	setString(&cfg.CacheDatabaseURL, file.CacheDatabaseURL)
	setString(&cfg.CacheDatabaseToken, file.CacheDatabaseToken)
	setString(&cfg.CacheGCSBucket, file.CacheGCSBucket)
	setString(&cfg.CacheGCSPrefix, file.CacheGCSPrefix)
	setInt(&cfg.CacheMaxAgeHours, file.CacheMaxAgeHours)
	setString(&cfg.CachePruneSchedule, file.CachePruneSchedule)
	cfg.ResultCacheEnabled = cfg.ResultCacheEnabled || file.ResultCacheEnabled
	if len(file.ReputableDomains) > 0 {
		cfg.ReputableDomains = file.ReputableDomains
	}
	setString(&cfg.OutputDir, file.OutputDir)
	setInt(&cfg.OutputWidth, file.OutputWidth)
	setString(&cfg.UserAgent, file.UserAgent)
	setInt(&cfg.FetchTimeoutSeconds, file.FetchTimeoutSeconds)
	setInt(&cfg.PolitenessDelayMS, file.PolitenessDelayMS)
	if file.FetchMaxBytes > 0 {
		cfg.FetchMaxBytes = file.FetchMaxBytes
	}
	setInt(&cfg.FetchPerHostLimit, file.FetchPerHostLimit)
	setInt(&cfg.FetchConcurrency, file.FetchConcurrency)
	cfg.FetchAllowPrivate = cfg.FetchAllowPrivate || file.FetchAllowPrivate
	setInt(&cfg.RobotsTimeoutSecs, file.RobotsTimeoutSecs)
	setInt(&cfg.SearchTimeoutSeconds, file.SearchTimeoutSeconds)
	setInt(&cfg.SearchMinIntervalMS, file.SearchMinIntervalMS)
	setString(&cfg.GoogleCSEAPIKey, file.GoogleCSEAPIKey)
	setString(&cfg.GoogleCSEID, file.GoogleCSEID)
	setString(&cfg.BraveAPIKey, file.BraveAPIKey)
	setString(&cfg.BraveBaseURL, file.BraveBaseURL)
	return nil
}

func setString(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func boolOrDefault(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func intOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.ReplaceAll(raw, "_", ""))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
