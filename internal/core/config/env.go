package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: BENCHTOP_[SECTION]_[KEY] (e.g., BENCHTOP_GITHUB_TOKEN).
// GITHUB_TOKEN is honoured when no token is configured.
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.StateDir, "BENCHTOP_PATHS_STATE_DIR")
	setEnvString(&cfg.Paths.CacheDir, "BENCHTOP_PATHS_CACHE_DIR")
	setEnvString(&cfg.Paths.DatabaseDir, "BENCHTOP_PATHS_DATABASE_DIR")

	// GitHub
	if cfg.GitHub.Token == "" {
		if val, ok := os.LookupEnv("GITHUB_TOKEN"); ok && val != "" {
			log.Printf("Applying env override: GITHUB_TOKEN=<redacted>")
			cfg.GitHub.Token = val
		}
	}
	setEnvSecret(&cfg.GitHub.Token, "BENCHTOP_GITHUB_TOKEN")
	setEnvString(&cfg.GitHub.APIBaseURL, "BENCHTOP_GITHUB_API_BASE_URL")
	setEnvString(&cfg.GitHub.WebBaseURL, "BENCHTOP_GITHUB_WEB_BASE_URL")
	setEnvString(&cfg.GitHub.CDNBaseURL, "BENCHTOP_GITHUB_CDN_BASE_URL")
	setEnvDuration(&cfg.GitHub.Timeout, "BENCHTOP_GITHUB_TIMEOUT")
	setEnvFloat64(&cfg.GitHub.RequestsPerSecond, "BENCHTOP_GITHUB_REQUESTS_PER_SECOND")
	setEnvInt(&cfg.GitHub.Burst, "BENCHTOP_GITHUB_BURST")
	setEnvInt(&cfg.GitHub.CommitsPerPage, "BENCHTOP_GITHUB_COMMITS_PER_PAGE")
	setEnvString(&cfg.GitHub.DefaultRepository, "BENCHTOP_GITHUB_DEFAULT_REPOSITORY")

	// Store
	setEnvString(&cfg.Store.Path, "BENCHTOP_STORE_PATH")
	setEnvDuration(&cfg.Store.BusyTimeout, "BENCHTOP_STORE_BUSY_TIMEOUT")
	setEnvString(&cfg.Store.BackupDir, "BENCHTOP_STORE_BACKUP_DIR")

	// Crawler
	setEnvInt(&cfg.Crawler.MaxPages, "BENCHTOP_CRAWLER_MAX_PAGES")
	setEnvInt(&cfg.Crawler.MaxDepth, "BENCHTOP_CRAWLER_MAX_DEPTH")
	setEnvInt(&cfg.Crawler.Concurrency, "BENCHTOP_CRAWLER_CONCURRENCY")
	setEnvFloat64(&cfg.Crawler.RequestsPerSecond, "BENCHTOP_CRAWLER_REQUESTS_PER_SECOND")
	setEnvBoolPtr(&cfg.Crawler.SameHost, "BENCHTOP_CRAWLER_SAME_HOST")
	setEnvString(&cfg.Crawler.PathPrefix, "BENCHTOP_CRAWLER_PATH_PREFIX")
	setEnvString(&cfg.Crawler.UserAgent, "BENCHTOP_CRAWLER_USER_AGENT")
	setEnvDuration(&cfg.Crawler.Timeout, "BENCHTOP_CRAWLER_TIMEOUT")

	// Links
	setEnvBoolPtr(&cfg.Links.StripFragments, "BENCHTOP_LINKS_STRIP_FRAGMENTS")
	setEnvBoolPtr(&cfg.Links.DirsFirst, "BENCHTOP_LINKS_DIRS_FIRST")

	// UI
	setEnvString(&cfg.UI.Theme, "BENCHTOP_UI_THEME")
	setEnvInt(&cfg.UI.RenderCache, "BENCHTOP_UI_RENDER_CACHE")
	setEnvString(&cfg.UI.LogFile, "BENCHTOP_UI_LOG_FILE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "BENCHTOP_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "BENCHTOP_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "BENCHTOP_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "BENCHTOP_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "BENCHTOP_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvSecret(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=<redacted>", key)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = boolPtr(b)
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
