package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	GitHub        GitHub        `toml:"github"`
	Store         Store         `toml:"store"`
	Crawler       Crawler       `toml:"crawler"`
	Links         Links         `toml:"links"`
	UI            UI            `toml:"ui"`
	Tabs          []Tab         `toml:"tabs"`
	Observability Observability `toml:"observability"`
}

// Paths are resolved against the directory of the config file. Empty
// values fall back to the XDG state and cache directories.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	CacheDir    string `toml:"cache_dir"`
	DatabaseDir string `toml:"database_dir"`
}

type GitHub struct {
	APIBaseURL        string        `toml:"api_base_url"`
	WebBaseURL        string        `toml:"web_base_url"`
	CDNBaseURL        string        `toml:"cdn_base_url"`
	Token             string        `toml:"token"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
	CommitsPerPage    int           `toml:"commits_per_page"`
	DefaultRepository string        `toml:"default_repository"`
}

type Store struct {
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	BackupDir   string        `toml:"backup_dir"`
}

type Crawler struct {
	MaxPages          int           `toml:"max_pages"`
	MaxDepth          int           `toml:"max_depth"`
	Concurrency       int           `toml:"concurrency"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	SameHost          *bool         `toml:"same_host"`
	// PathPrefix scopes the crawl to one path on the start host. Empty means
	// the start URL's directory; "/" allows the whole host.
	PathPrefix        string        `toml:"path_prefix"`
	Include           []string      `toml:"include"`
	Exclude           []string      `toml:"exclude"`
	UserAgent         string        `toml:"user_agent"`
	Timeout           time.Duration `toml:"timeout"`
}

type Links struct {
	StripFragments *bool    `toml:"strip_fragments"`
	Exclude        []string `toml:"exclude"`
	DirsFirst      *bool    `toml:"dirs_first"`
}

type UI struct {
	Theme       string `toml:"theme"`
	RenderCache int    `toml:"render_cache"`
	LogFile     string `toml:"log_file"`
}

// Tab declares one widget of the TUI layout.
type Tab struct {
	Kind   string `toml:"kind"`
	Title  string `toml:"title"`
	Source string `toml:"source"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

const (
	TabRepo   = "repo"
	TabLinks  = "links"
	TabDocs   = "docs"
	TabItems  = "items"
	TabThemes = "themes"
)

// DefaultConfig is the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func boolPtr(b bool) *bool {
	return &b
}

// Enabled dereferences an optional flag.
func Enabled(b *bool) bool {
	return b != nil && *b
}
