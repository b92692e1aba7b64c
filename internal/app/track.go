package app

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/sessionlens/internal/aggregate"
	"github.com/blackwell-systems/sessionlens/internal/config"
	"github.com/blackwell-systems/sessionlens/internal/output"
	"github.com/blackwell-systems/sessionlens/internal/pipeline"
	"github.com/blackwell-systems/sessionlens/internal/store"
)

var (
	trackCompare int
	trackHistory int
	trackDays    int
	trackKeep    int
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Snapshot the report and compare against earlier runs",
	Long: `Run the analysis, store the report as a new snapshot, and compare its
headline metrics against an earlier snapshot with trend arrows.

--history N shows the headline metrics of the N most recent snapshots
side by side instead. --keep N deletes all but the N most recent
snapshots after saving.`,
	Args: cobra.NoArgs,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().IntVar(&trackCompare, "compare", 1, "Compare against Nth previous snapshot (1 = most recent)")
	trackCmd.Flags().IntVar(&trackHistory, "history", 0, "Show metric trends across N most recent snapshots")
	trackCmd.Flags().IntVar(&trackDays, "days", -1, "Days of history to snapshot (0 = all; default from config)")
	trackCmd.Flags().IntVar(&trackKeep, "keep", 0, "Keep only the N most recent snapshots (0 = keep all)")
	rootCmd.AddCommand(trackCmd)
}

// trackResult is the JSON form of a track run.
type trackResult struct {
	Snapshot *store.Snapshot     `json:"snapshot"`
	Diff     *store.SnapshotDiff `json:"diff,omitempty"`
	// Unchanged is set when the classified sessions match the previous
	// snapshot exactly.
	Unchanged bool `json:"unchanged"`
}

func runTrack(cmd *cobra.Command, args []string) error {
	if trackCompare < 1 {
		return fmt.Errorf("--compare must be >= 1, got %d", trackCompare)
	}
	days := appConfig.Days
	if trackDays >= 0 {
		days = trackDays
	}

	db, err := store.Open(config.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	w := cmd.OutOrStdout()
	if trackHistory > 0 {
		return renderHistory(w, db, trackHistory)
	}

	now := time.Now()
	res, err := pipeline.Run(cmd.Context(), appConfig, pipeline.Window{Days: days, Now: now}, logger)
	if err != nil {
		return err
	}
	result, err := recordSnapshot(db, res, now, trackCompare)
	if err != nil {
		return err
	}
	if trackKeep > 0 {
		removed, err := db.PruneSnapshots(trackKeep)
		if err != nil {
			return err
		}
		logger.Debug("pruned snapshots", "removed", removed, "kept", trackKeep)
	}

	if flagJSON {
		return writeJSON(w, result)
	}
	renderTrackOutput(w, result)
	return nil
}

// recordSnapshot saves the run's report and diffs it against the snapshot
// compare steps back.
func recordSnapshot(db *store.DB, res pipeline.Result, now time.Time, compare int) (trackResult, error) {
	last, err := db.GetLatestSnapshot()
	if err != nil {
		return trackResult{}, fmt.Errorf("reading latest snapshot: %w", err)
	}
	snap, err := db.SaveReport(res.Report(now), res.Current, "track", appVersion)
	if err != nil {
		return trackResult{}, fmt.Errorf("saving snapshot: %w", err)
	}
	diff, err := db.CompareLatest(compare)
	if err != nil {
		return trackResult{}, fmt.Errorf("comparing snapshots: %w", err)
	}
	return trackResult{
		Snapshot:  snap,
		Diff:      diff,
		Unchanged: last != nil && last.Fingerprint == snap.Fingerprint,
	}, nil
}

func renderTrackOutput(w io.Writer, result trackResult) {
	current, diff := result.Snapshot, result.Diff
	fmt.Fprintln(w, output.Section("Track: Snapshot Comparison"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " Snapshot #%d taken at %s (%d sessions)\n\n",
		current.ID, current.TakenAt.Local().Format("2006-01-02 15:04:05"), current.SessionCount)
	if result.Unchanged {
		fmt.Fprintln(w, output.StyleMuted.Render(" No session changes since the previous snapshot."))
		fmt.Fprintln(w)
	}

	if diff == nil {
		fmt.Fprintln(w, " No earlier snapshot to compare against. Run 'sessionlens track' again later to see trends.")
		return
	}

	fmt.Fprintf(w, " Comparing against snapshot #%d (%s)\n\n",
		diff.Previous.ID, output.Ago(diff.Previous.TakenAt))

	tbl := output.NewTable("Metric", "Previous", "Current", "Delta", "Trend").AlignRight(1, 2, 3)
	for _, d := range diff.Deltas {
		tbl.AddRow(
			metricLabel(d.Name),
			fmt.Sprintf("%.1f", d.Previous),
			fmt.Sprintf("%.1f", d.Current),
			fmt.Sprintf("%+.1f", d.Delta.Delta),
			trend(d.Name, d.Delta),
		)
	}
	tbl.Fprint(w)
}

// renderHistory shows the headline metrics of the n most recent snapshots,
// oldest first.
func renderHistory(w io.Writer, db *store.DB, n int) error {
	snapshots, err := db.ListSnapshots(n)
	if err != nil {
		return fmt.Errorf("loading snapshots: %w", err)
	}
	// Reverse so oldest is first (left to right = chronological).
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}

	type snapshotMetrics struct {
		Snapshot store.Snapshot     `json:"snapshot"`
		Metrics  map[string]float64 `json:"metrics"`
	}
	timeline := make([]snapshotMetrics, 0, len(snapshots))
	for _, s := range snapshots {
		metrics, err := db.GetAggregateMetrics(s.ID)
		if err != nil {
			return fmt.Errorf("loading metrics for snapshot #%d: %w", s.ID, err)
		}
		m := make(map[string]float64, len(metrics))
		for _, am := range metrics {
			m[am.MetricName] = am.MetricValue
		}
		timeline = append(timeline, snapshotMetrics{Snapshot: s, Metrics: m})
	}

	if flagJSON {
		return writeJSON(w, map[string]any{"history": timeline})
	}

	if len(timeline) == 0 {
		fmt.Fprintln(w, " No snapshots found. Run 'sessionlens track' to create one.")
		return nil
	}

	fmt.Fprintln(w, output.Section("Track: Metric History"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " Showing %d most recent snapshots\n\n", len(timeline))

	headers := []string{"Metric"}
	for _, sm := range timeline {
		headers = append(headers, fmt.Sprintf("#%d %s", sm.Snapshot.ID, sm.Snapshot.TakenAt.Local().Format("Jan 02")))
	}
	headers = append(headers, "Trend")
	tbl := output.NewTable(headers...)
	for i := range timeline {
		tbl.AlignRight(i + 1)
	}

	for _, name := range aggregate.DeltaMetrics {
		row := []string{metricLabel(name)}
		var vals []float64
		for _, sm := range timeline {
			v := sm.Metrics[name]
			vals = append(vals, v)
			row = append(row, fmt.Sprintf("%.1f", v))
		}
		t := ""
		if len(vals) >= 2 {
			higher, known := metricHigherIsBetter[name]
			if !known {
				higher = true
			}
			t = output.TrendArrow(vals[len(vals)-1]-vals[0], higher)
		}
		tbl.AddRow(append(row, t)...)
	}
	tbl.Fprint(w)
	return nil
}
