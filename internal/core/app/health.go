package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	// GitHub quota as of the last response
	if s.app.GitHub == nil {
		status.Status = "degraded"
		status.Components["github"] = "missing"
	} else {
		rl := s.app.GitHub.RateLimit()
		switch {
		case rl.Limit == 0:
			status.Components["github"] = fmt.Sprintf("ok (%d cached responses)", s.app.GitHub.CacheLen())
		case rl.Remaining == 0:
			status.Status = "degraded"
			status.Components["github"] = "rate limited until " + rl.Reset.UTC().Format(time.RFC3339)
		default:
			status.Components["github"] = fmt.Sprintf("ok (%d/%d requests left)", rl.Remaining, rl.Limit)
		}
	}

	// Item store is opened lazily, so absence is not a failure.
	s.app.mu.RLock()
	store := s.app.store
	s.app.mu.RUnlock()
	if store == nil {
		status.Components["store"] = "closed"
	} else if _, err := store.List(ctx); err != nil {
		status.Status = "degraded"
		status.Components["store"] = "error: " + err.Error()
	} else {
		status.Components["store"] = "ok"
	}

	status.Components["browser"] = s.app.Browser.State().String()
	status.Components["theme"] = s.app.Themes.Current().Name
	return status
}
