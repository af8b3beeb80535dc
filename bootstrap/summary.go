package bootstrap

import (
	"context"
	"time"

	"github.com/kbukum/speechbridge/component"
	"github.com/kbukum/speechbridge/logger"
)

// logSummary writes one line per described component followed by the
// live health of every registered component.
func logSummary(ctx context.Context, registry *component.Registry, log *logger.Logger, name, version string, took time.Duration) {
	log.Info("application started", map[string]interface{}{
		"name":     name,
		"version":  version,
		"duration": took.String(),
	})

	for _, d := range registry.Describe() {
		fields := map[string]interface{}{
			logger.FieldComponent: d.Name,
			"type":                d.Type,
		}
		if d.Details != "" {
			fields["details"] = d.Details
		}
		if d.Port > 0 {
			fields["port"] = d.Port
		}
		log.Info("component", fields)
	}

	results := registry.HealthAll(ctx)
	healthy := 0
	for _, h := range results {
		if h.Status == component.StatusHealthy {
			healthy++
			continue
		}
		log.Warn("component not healthy", map[string]interface{}{
			logger.FieldComponent: h.Name,
			"status":              string(h.Status),
			"message":             h.Message,
		})
	}
	log.Info("health", map[string]interface{}{
		"healthy": healthy,
		"total":   len(results),
		"overall": string(component.Overall(results)),
	})
}
