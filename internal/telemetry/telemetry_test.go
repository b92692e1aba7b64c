package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/session"
)

func classified(id string, o analyzer.Outcome, minutes float64) analyzer.ClassifiedSession {
	return analyzer.ClassifiedSession{
		Session:         session.Session{SessionID: id, DurationMinutes: minutes, ToolCallCount: 6},
		TaskType:        analyzer.TaskBugFix,
		SessionType:     analyzer.SessionWork,
		Outcome:         o,
		ConfidenceScore: 70,
	}
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNew_DisabledIsNoop(t *testing.T) {
	for _, cfg := range []Config{{}, {Enabled: true}, {Endpoint: "localhost:4317"}} {
		rec, err := New(context.Background(), cfg, "test")
		require.NoError(t, err)
		assert.IsType(t, noop{}, rec)
		rec.RecordSessions(context.Background(), []analyzer.ClassifiedSession{classified("a", analyzer.OutcomeCompleted, 5)})
		assert.NoError(t, rec.Close(context.Background()))
	}
}

func TestMeterRecorder_RecordSessions(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	rec, err := newMeterRecorder(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	rec.RecordSessions(context.Background(), []analyzer.ClassifiedSession{
		classified("a", analyzer.OutcomeCompleted, 10),
		classified("b", analyzer.OutcomeCompleted, 20),
		classified("c", analyzer.OutcomeAbandoned, 2),
	})
	metrics := collect(t, reader)

	sessions, ok := metrics["sessionlens_sessions_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok, "sessions counter missing")
	byOutcome := make(map[string]int64)
	for _, dp := range sessions.DataPoints {
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		byOutcome[outcome.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"completed": 2, "abandoned": 1}, byOutcome)

	duration, ok := metrics["sessionlens_session_duration_minutes"].Data.(metricdata.Histogram[float64])
	require.True(t, ok, "duration histogram missing")
	var count uint64
	var sum float64
	for _, dp := range duration.DataPoints {
		count += dp.Count
		sum += dp.Sum
	}
	assert.Equal(t, uint64(3), count)
	assert.InDelta(t, 32.0, sum, 1e-9)

	assert.Contains(t, metrics, "sessionlens_session_tool_calls")
	assert.Contains(t, metrics, "sessionlens_completion_confidence")
	require.NoError(t, rec.Close(context.Background()))
}
