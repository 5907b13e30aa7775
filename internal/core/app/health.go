package app

import (
	"context"
	"fmt"
	"strings"
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

	if s.app.Registry == nil || s.app.Registry.Len() == 0 {
		status.Status = "degraded"
		status.Components["registry"] = "empty"
	} else {
		status.Components["registry"] = fmt.Sprintf("ok (%d bubbles)", s.app.Registry.Len())
	}

	if s.app.Parser != nil {
		status.Components["parser"] = "ok (" + strings.Join(s.app.Parser.Loader().SupportedExtensions(), " ") + ")"
	} else {
		status.Status = "degraded"
		status.Components["parser"] = "missing"
	}

	if s.app.Pool != nil {
		status.Components["validator"] = fmt.Sprintf("ok (%d projects loaded)", len(s.app.Pool.Keys()))
	} else {
		status.Status = "degraded"
		status.Components["validator"] = "missing"
	}

	return status
}
