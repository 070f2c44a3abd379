package cli

import (
	"context"
	"log/slog"

	coreapp "benchtop/internal/core/app"
	"benchtop/internal/core/config"
	"benchtop/internal/core/themes"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(ctx context.Context, a *coreapp.App, cfgPath string) error {
	m := initialModel(ctx, a)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	a.OnThemeChange(func(t themes.Theme) {
		go p.Send(themeMsg{theme: t})
	})

	watcher := config.NewWatcher(cfgPath, 0, func(cfg *config.Config) {
		slog.Info("config reloaded", "path", cfgPath)
		a.ApplyConfig(cfg)
	})
	if err := watcher.Start(ctx); err != nil {
		slog.Warn("config watcher disabled", "path", cfgPath, "error", err)
	} else {
		defer watcher.Stop()
	}

	_, err := p.Run()
	return err
}
