package whitelist

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const healthLogPrefix = "whitelist:health"

// Health checks database connectivity.
func (s *Service) Health(ctx context.Context) *HealthOutput {
	dbOk := s.store != nil
	if dbOk {
		if err := s.store.Ping(ctx); err != nil {
			slog.Warn(fmt.Sprintf("%s - database check failed: %v", healthLogPrefix, err))
			dbOk = false
		}
	}

	status := "healthy"
	if !dbOk {
		status = "unhealthy"
	}

	return &HealthOutput{
		Status: status,
		Checks: HealthChecks{
			Database: dbOk,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
