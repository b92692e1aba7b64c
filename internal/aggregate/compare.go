package aggregate

// Direction is the sign of a delta.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionSame Direction = "same"
)

// Delta is the change in one metric between two periods.
type Delta struct {
	Current   float64   `json:"current"`
	Previous  float64   `json:"previous"`
	Delta     float64   `json:"delta"`
	DeltaPct  float64   `json:"delta_pct"`
	Direction Direction `json:"direction"`
}

// Period describes the previous period of a comparison.
type Period struct {
	Start   string  `json:"start_date,omitempty"`
	End     string  `json:"end_date,omitempty"`
	Summary Summary `json:"summary"`
}

// Comparison holds period-over-period deltas keyed by metric name.
type Comparison struct {
	PreviousPeriod Period           `json:"previous_period"`
	Deltas         map[string]Delta `json:"deltas"`
}

// DeltaMetrics lists the compared metrics in display order.
var DeltaMetrics = []string{
	"sessions",
	"total_duration_hours",
	"avg_duration",
	"total_tool_calls",
	"completion_rate",
	"activity_rate",
	"sessions_with_edits",
	"sessions_with_commits",
	"avg_confidence",
}

// Metrics extracts every DeltaMetrics value from a report.
func Metrics(r Report) map[string]float64 {
	avgConfidence := 0.0
	if r.CompletionConfidence != nil {
		avgConfidence = r.CompletionConfidence.AvgScore
	}
	return map[string]float64{
		"sessions":              float64(r.Summary.TotalSessions),
		"total_duration_hours":  round1(r.Summary.TotalDurationMinutes / 60),
		"avg_duration":          r.Averages.DurationMinutes,
		"total_tool_calls":      float64(r.Summary.TotalToolCalls),
		"completion_rate":       r.Summary.CompletionRate,
		"activity_rate":         r.ActivityMetrics.ActivityRate,
		"sessions_with_edits":   float64(r.ActivityMetrics.SessionsWithEdits),
		"sessions_with_commits": float64(r.ActivityMetrics.SessionsWithCommits),
		"avg_confidence":        avgConfidence,
	}
}

// Compare computes deltas of current against previous.
func Compare(current, previous Report) *Comparison {
	cur, prev := Metrics(current), Metrics(previous)
	c := &Comparison{
		PreviousPeriod: Period{
			Start:   previous.Metadata.PeriodStart,
			End:     previous.Metadata.PeriodEnd,
			Summary: previous.Summary,
		},
		Deltas: make(map[string]Delta, len(DeltaMetrics)),
	}
	for _, m := range DeltaMetrics {
		c.Deltas[m] = NewDelta(cur[m], prev[m])
	}
	return c
}

// NewDelta computes the change from previous to current. The percentage is
// relative to previous, rounded to one decimal; with no previous value it is
// 100 if current is positive and 0 otherwise.
func NewDelta(current, previous float64) Delta {
	d := Delta{
		Current:  current,
		Previous: previous,
		Delta:    round1(current - previous),
	}
	switch {
	case previous > 0:
		d.DeltaPct = round1((current - previous) / previous * 100)
	case current > 0:
		d.DeltaPct = 100
	}
	switch {
	case d.Delta > 0:
		d.Direction = DirectionUp
	case d.Delta < 0:
		d.Direction = DirectionDown
	default:
		d.Direction = DirectionSame
	}
	return d
}
