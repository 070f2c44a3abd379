package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"benchtop/internal/core/errors"

	"github.com/BurntSushi/toml"
)

const currentVersion = 1

// Load reads, defaults, normalizes and validates the TOML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.New(errors.CodeNotFound, "config file "+path), errors.CtxPath, path)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "read config")
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeParse, "decode config"), errors.CtxPath, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.AddContext(
			errors.New(errors.CodeValidationError, "unknown config keys: "+strings.Join(keys, ", ")),
			errors.CtxPath, path)
	}

	if err := finish(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when the file does
// not exist. The environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.IsCode(err, errors.CodeNotFound) {
		cfg = DefaultConfig()
		err = nil
	}
	if err != nil {
		return nil, err
	}
	ApplyEnvOverrides(cfg)
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func finish(cfg *Config) error {
	applyDefaults(cfg)
	normalizeGitHub(cfg)
	normalizeTabs(cfg)
	cfg.Crawler.PathPrefix = strings.TrimSpace(cfg.Crawler.PathPrefix)

	for _, validate := range []func(*Config) error{
		validateVersion,
		validateGitHub,
		validateStore,
		validateCrawler,
		validateTabs,
		validateObservability,
	} {
		if err := validate(cfg); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "invalid config")
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = currentVersion
	}

	if strings.TrimSpace(cfg.GitHub.APIBaseURL) == "" {
		cfg.GitHub.APIBaseURL = "https://api.github.com"
	}
	if strings.TrimSpace(cfg.GitHub.WebBaseURL) == "" {
		cfg.GitHub.WebBaseURL = "https://github.com"
	}
	if strings.TrimSpace(cfg.GitHub.CDNBaseURL) == "" {
		cfg.GitHub.CDNBaseURL = "https://cdn.jsdelivr.net/gh"
	}
	if cfg.GitHub.Timeout <= 0 {
		cfg.GitHub.Timeout = 10 * time.Second
	}
	if cfg.GitHub.RequestsPerSecond == 0 {
		cfg.GitHub.RequestsPerSecond = 5
	}
	if cfg.GitHub.Burst <= 0 {
		cfg.GitHub.Burst = 10
	}
	if cfg.GitHub.CommitsPerPage <= 0 {
		cfg.GitHub.CommitsPerPage = 30
	}

	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = "items.db"
	}
	if cfg.Store.BusyTimeout <= 0 {
		cfg.Store.BusyTimeout = 5 * time.Second
	}
	if strings.TrimSpace(cfg.Store.BackupDir) == "" {
		cfg.Store.BackupDir = "backups"
	}

	if cfg.Crawler.MaxPages <= 0 {
		cfg.Crawler.MaxPages = 200
	}
	if cfg.Crawler.MaxDepth == 0 {
		cfg.Crawler.MaxDepth = 5
	}
	if cfg.Crawler.Concurrency <= 0 {
		cfg.Crawler.Concurrency = 4
	}
	if cfg.Crawler.RequestsPerSecond == 0 {
		cfg.Crawler.RequestsPerSecond = 2
	}
	if cfg.Crawler.SameHost == nil {
		cfg.Crawler.SameHost = boolPtr(true)
	}
	if strings.TrimSpace(cfg.Crawler.UserAgent) == "" {
		cfg.Crawler.UserAgent = "benchtop-crawler"
	}
	if cfg.Crawler.Timeout <= 0 {
		cfg.Crawler.Timeout = 15 * time.Second
	}

	if cfg.Links.StripFragments == nil {
		cfg.Links.StripFragments = boolPtr(true)
	}
	if cfg.Links.DirsFirst == nil {
		cfg.Links.DirsFirst = boolPtr(true)
	}

	if strings.TrimSpace(cfg.UI.Theme) == "" {
		cfg.UI.Theme = "dark"
	}
	if cfg.UI.RenderCache <= 0 {
		cfg.UI.RenderCache = 64
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
}

func normalizeGitHub(cfg *Config) {
	gh := &cfg.GitHub
	gh.APIBaseURL = strings.TrimRight(strings.TrimSpace(gh.APIBaseURL), "/")
	gh.WebBaseURL = strings.TrimRight(strings.TrimSpace(gh.WebBaseURL), "/")
	gh.CDNBaseURL = strings.TrimRight(strings.TrimSpace(gh.CDNBaseURL), "/")
	gh.Token = strings.TrimSpace(gh.Token)
	gh.DefaultRepository = strings.TrimSpace(gh.DefaultRepository)
}

func normalizeTabs(cfg *Config) {
	for i := range cfg.Tabs {
		tab := &cfg.Tabs[i]
		tab.Kind = strings.ToLower(strings.TrimSpace(tab.Kind))
		tab.Title = strings.TrimSpace(tab.Title)
		tab.Source = strings.TrimSpace(tab.Source)
		if tab.Title == "" {
			tab.Title = tab.Kind
		}
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 || cfg.Version > currentVersion {
		return fmt.Errorf("unsupported config version %d; supported version is %d", cfg.Version, currentVersion)
	}
	return nil
}

func validateGitHub(cfg *Config) error {
	for key, raw := range map[string]string{
		"github.api_base_url": cfg.GitHub.APIBaseURL,
		"github.web_base_url": cfg.GitHub.WebBaseURL,
		"github.cdn_base_url": cfg.GitHub.CDNBaseURL,
	} {
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
		}
	}
	if cfg.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("github.requests_per_second must be >= 0")
	}
	if cfg.GitHub.CommitsPerPage > 100 {
		return fmt.Errorf("github.commits_per_page must be <= 100, got %d", cfg.GitHub.CommitsPerPage)
	}
	if repo := cfg.GitHub.DefaultRepository; repo != "" && strings.Count(strings.Trim(repo, "/"), "/") != 1 {
		return fmt.Errorf("github.default_repository must be owner/name, got %q", repo)
	}
	return nil
}

func validateStore(cfg *Config) error {
	if strings.HasSuffix(cfg.Store.Path, "/") {
		return fmt.Errorf("store.path must name a file, got %q", cfg.Store.Path)
	}
	return nil
}

func validateCrawler(cfg *Config) error {
	if cfg.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if cfg.Crawler.Concurrency > 64 {
		return fmt.Errorf("crawler.concurrency must be <= 64, got %d", cfg.Crawler.Concurrency)
	}
	if cfg.Crawler.RequestsPerSecond < 0 {
		return fmt.Errorf("crawler.requests_per_second must be >= 0")
	}
	if p := cfg.Crawler.PathPrefix; p != "" && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("crawler.path_prefix must start with /, got %q", p)
	}
	return nil
}

var tabKinds = map[string]bool{
	TabRepo:   true,
	TabLinks:  true,
	TabDocs:   true,
	TabItems:  true,
	TabThemes: true,
}

func validateTabs(cfg *Config) error {
	for i, tab := range cfg.Tabs {
		if !tabKinds[tab.Kind] {
			return fmt.Errorf("tabs[%d].kind must be one of repo, links, docs, items, themes; got %q", i, tab.Kind)
		}
		switch tab.Kind {
		case TabLinks, TabDocs:
			if tab.Source != "" && !strings.HasPrefix(tab.Source, "http://") && !strings.HasPrefix(tab.Source, "https://") {
				return fmt.Errorf("tabs[%d].source must be an http(s) URL for %s tabs", i, tab.Kind)
			}
		case TabItems, TabThemes:
			if tab.Source != "" {
				return fmt.Errorf("tabs[%d].source is not used by %s tabs", i, tab.Kind)
			}
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Port < 0 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be within 0-65535, got %d", cfg.Observability.Port)
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}
