package app

import (
	"context"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

// exportMetrics sends classified sessions to the configured collector.
// Export problems are logged and never fail the command.
func exportMetrics(ctx context.Context, sessions []analyzer.ClassifiedSession) {
	rec, err := telemetry.New(ctx, appConfig.Telemetry, appVersion)
	if err != nil {
		logger.Warn("metric export unavailable", "error", err)
		return
	}
	rec.RecordSessions(ctx, sessions)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryFlushTimeout)
	defer cancel()
	if err := rec.Close(flushCtx); err != nil {
		logger.Warn("exporting metrics", "endpoint", appConfig.Telemetry.Endpoint, "error", err)
	}
}
