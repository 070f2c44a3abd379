package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "benchtop/internal/core/app"
	"benchtop/internal/core/config"
	"benchtop/internal/core/errors"
	"benchtop/internal/shared/observability"
	"benchtop/internal/shared/version"
)

// runtimeIO carries the process streams and any app overrides into run.
type runtimeIO struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	appOpts []coreapp.Option
}

func Run(args []string) int {
	return run(args, runtimeIO{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr})
}

func run(args []string, rio runtimeIO) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(rio.stdout, "benchtop v%s\n", version.Version)
		return 0
	}

	cfg, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintln(rio.stderr, err.Error())
		return 1
	}

	paths, err := config.ResolvePaths(cfg, filepath.Dir(cfgPath))
	if err != nil {
		fmt.Fprintln(rio.stderr, err.Error())
		return 1
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose, paths.LogFile, rio.stderr)
	defer cleanupLogs()

	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(rio.stderr, err.Error())
		return 1
	}
	if !opts.hasMode() {
		fmt.Fprintln(rio.stderr, "usage: benchtop [--ui] [--repo owner/name | --links URL | --crawl URL | --items CMD | --theme NAME] [flags]")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.Enabled && cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, version.Version)
		if err != nil {
			slog.Error("failed to initialize tracing", "error", err)
			return 1
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	a, err := coreapp.New(cfg, paths, rio.appOpts...)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer a.Close()

	if cfg.Observability.Enabled && cfg.Observability.EnableMetrics {
		srv := NewObservabilityServer(fmt.Sprintf(":%d", cfg.Observability.Port), coreapp.NewHealthService(a))
		if err := srv.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Stop(sctx)
		}()
	}

	if opts.theme != "" {
		t, err := a.SetTheme(opts.theme)
		if err != nil {
			fmt.Fprintln(rio.stderr, err.Error())
			return 1
		}
		if !opts.ui {
			fmt.Fprintf(rio.stdout, "theme set to %s\n", t.Name)
			return 0
		}
	}

	if opts.ui {
		if err := runUI(ctx, a, cfgPath); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	if err := dispatch(ctx, rio, a, opts); err != nil {
		slog.Debug("command failed", "error", err)
		fmt.Fprintln(rio.stderr, errors.Short(err))
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, rio runtimeIO, a *coreapp.App, opts cliOptions) error {
	switch {
	case opts.repo != "":
		return runRepoMode(ctx, rio.stdout, a, opts)
	case opts.links != "":
		set, err := buildFilterSet(opts.filters, "href")
		if err != nil {
			return err
		}
		return runLinksMode(ctx, rio.stdout, a, opts, set)
	case opts.crawl != "":
		set, err := buildFilterSet(opts.filters, "url")
		if err != nil {
			return err
		}
		return runCrawlMode(ctx, rio.stdout, a, opts, set)
	case opts.items != "":
		set, err := buildFilterSet(opts.filters, "name")
		if err != nil {
			return err
		}
		return runItemsMode(ctx, rio.stdin, rio.stdout, a, opts, set)
	}
	return errors.New(errors.CodeValidationError, "no command given")
}

// loadConfig reads an explicit --config, which must exist, or the default
// path, which falls back to built-in defaults when absent.
func loadConfig(path string) (*config.Config, string, error) {
	if strings.TrimSpace(path) == "" {
		path = config.DefaultConfigPath()
		cfg, err := config.LoadOrDefault(path)
		return cfg, path, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, "", errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file"), errors.CtxPath, path)
	}
	cfg, err := config.LoadOrDefault(path)
	return cfg, path, err
}

func (o cliOptions) hasMode() bool {
	return o.ui || o.theme != "" || o.repo != "" || o.links != "" || o.crawl != "" || o.items != ""
}

// applyModeOptions checks flag combinations and folds mode flags into cfg.
func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	if len(opts.args) > 0 {
		return errors.Newf(errors.CodeValidationError, "unexpected arguments: %s", strings.Join(opts.args, " "))
	}

	modes := 0
	for _, set := range []bool{opts.repo != "", opts.links != "", opts.crawl != "", opts.items != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return errors.New(errors.CodeValidationError, "only one of --repo, --links, --crawl, --items may be given")
	}
	if opts.ui && (opts.links != "" || opts.crawl != "" || opts.items != "") {
		return errors.New(errors.CodeValidationError, "--ui can only be combined with --repo and --theme")
	}

	switch strings.ToLower(strings.TrimSpace(opts.format)) {
	case "", formatText:
		opts.format = formatText
	case formatJSON:
		opts.format = formatJSON
	case formatYAML, "yml":
		opts.format = formatYAML
	default:
		return errors.Newf(errors.CodeValidationError, "unknown format %q (want text, json or yaml)", opts.format)
	}

	if opts.repo == "" && (opts.path != "" || opts.file != "" || opts.sha != "" || opts.compare != "" || opts.tree) {
		return errors.New(errors.CodeValidationError, "--path, --file, --sha, --compare and --tree require --repo")
	}
	if opts.file == "" && (opts.sha != "" || opts.compare != "") {
		return errors.New(errors.CodeValidationError, "--sha and --compare require --file")
	}
	if opts.compare != "" {
		a, b, ok := strings.Cut(opts.compare, ":")
		if !ok || strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
			return errors.New(errors.CodeValidationError, "--compare must be formatted as <a>:<b>")
		}
	}
	if opts.crawl == "" && (opts.depth >= 0 || opts.pages > 0) {
		return errors.New(errors.CodeValidationError, "--depth and --max-pages require --crawl")
	}
	if opts.repo != "" && len(opts.filters) > 0 {
		return errors.New(errors.CodeValidationError, "--filter applies to --links, --crawl and --items")
	}

	if err := validateItemOptions(*opts); err != nil {
		return err
	}

	// --ui --repo opens the repository tab on that repository.
	if opts.ui && opts.repo != "" {
		cfg.GitHub.DefaultRepository = opts.repo
	}
	return nil
}

func validateItemOptions(opts cliOptions) error {
	itemFlags := opts.itemID != "" || opts.itemName != "" || opts.itemType != "" || opts.itemCode != "" ||
		opts.itemTags != "" || opts.itemNotes != "" || opts.itemAutorun || opts.input != "" || opts.output != "" || opts.replace
	if opts.items == "" {
		if itemFlags {
			return errors.New(errors.CodeValidationError, "--item-*, --in, --out and --replace require --items")
		}
		return nil
	}
	if !itemCommands[opts.items] {
		return errors.Newf(errors.CodeValidationError, "unknown items command %q", opts.items)
	}
	switch opts.items {
	case "add":
		if strings.TrimSpace(opts.itemName) == "" {
			return errors.New(errors.CodeValidationError, "--items add requires --item-name")
		}
	case "update", "delete":
		if strings.TrimSpace(opts.itemID) == "" {
			return errors.Newf(errors.CodeValidationError, "--items %s requires --item-id", opts.items)
		}
	case "restore":
		if strings.TrimSpace(opts.input) == "" {
			return errors.New(errors.CodeValidationError, "--items restore requires --in")
		}
	}
	if opts.replace && opts.items != "import" {
		return errors.New(errors.CodeValidationError, "--replace only applies to --items import")
	}
	return nil
}

// configureLogging sends logs to stderr, or to logPath while the TUI owns the
// terminal. It returns a func closing any opened file.
func configureLogging(uiMode, verbose bool, logPath string, stderr io.Writer) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if uiMode {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}
