package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/output"
	"github.com/blackwell-systems/sessionlens/internal/pipeline"
	"github.com/blackwell-systems/sessionlens/internal/watcher"
)

var (
	watchInterval string
	watchQuiet    bool
	watchNotify   bool
	watchDays     int
	watchProject  string
	watchFollow   bool
)

// followDebounce is how long transcript writes must be quiet before a
// --follow check runs.
const followDebounce = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor sessions and alert when they end badly",
	Long: `Periodically re-classify recent sessions and emit alerts when new
sessions end blocked or abandoned, when most recent work sessions fail to
complete, or when the completion rate drops. Alerts are printed and sent
as desktop notifications. With --follow, a check also runs shortly after
transcripts stop changing instead of waiting for the next interval.

Examples:
  sessionlens watch                    # run in foreground (ctrl-c to stop)
  sessionlens watch --interval 5m      # check every 5 minutes (default: 10m)
  sessionlens watch --quiet            # notifications only
  sessionlens watch --follow           # also check when transcripts change`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchInterval, "interval", "10m", "Check interval as duration string (e.g. 5m, 1h)")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().BoolVar(&watchNotify, "notify", true, "Send desktop notifications")
	watchCmd.Flags().IntVar(&watchDays, "days", -1, "Days of history to watch (0 = all; default from config)")
	watchCmd.Flags().StringVar(&watchProject, "project", "", "Only sessions whose project path contains this")
	watchCmd.Flags().BoolVar(&watchFollow, "follow", false, "Also check when transcript files change")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval, err := time.ParseDuration(watchInterval)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", watchInterval, err)
	}
	if interval < 30*time.Second {
		return fmt.Errorf("interval must be at least 30s, got %s", interval)
	}
	days := appConfig.Days
	if watchDays >= 0 {
		days = watchDays
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := cmd.OutOrStdout()
	source := func(ctx context.Context) ([]analyzer.ClassifiedSession, error) {
		res, err := pipeline.Run(ctx, appConfig, pipeline.Window{Days: days, Project: watchProject, Now: time.Now()}, logger)
		if err != nil {
			return nil, err
		}
		return res.Current, nil
	}
	alertFn := func(a watcher.Alert) {
		if watchNotify {
			if err := watcher.Notify(a, cmd.ErrOrStderr()); err != nil {
				logger.Debug("notification failed", "error", err)
			}
		}
		if !watchQuiet {
			printAlert(w, a)
		}
	}

	wt := watcher.New(source, interval, alertFn)
	if watchFollow {
		changes, err := watcher.WatchTranscripts(ctx, filepath.Join(appConfig.ClaudeHome, "projects"), followDebounce, logger)
		if err != nil {
			return fmt.Errorf("following transcripts: %w", err)
		}
		wt.SetTrigger(changes)
	}
	initial, err := wt.Baseline(ctx)
	if err != nil {
		return err
	}
	if !watchQuiet {
		fmt.Fprintf(w, "sessionlens watching... (checking every %s)\n", interval)
		fmt.Fprintf(w, "[%s] %s Baseline: %d sessions, %.0f%% completed\n",
			initial.Timestamp.Format("15:04:05"), output.StyleSuccess.Render("✓"),
			initial.SessionCount, initial.CompletionRate)
	}

	err = wt.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Fprintln(w, "\nStopped.")
		}
		return nil
	}
	return err
}

// printAlert formats an alert for the terminal.
func printAlert(w io.Writer, a watcher.Alert) {
	fmt.Fprintf(w, "[%s] %s %s\n", a.Time.Format("15:04:05"), alertIcon(a.Level), a.Title)
	if a.Message != "" {
		fmt.Fprintf(w, "         %s\n", a.Message)
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case watcher.LevelCritical:
		return output.StyleError.Render("✗")
	case watcher.LevelWarning:
		return output.StyleWarning.Render("!")
	case watcher.LevelInfo:
		return output.StyleSuccess.Render("✓")
	default:
		return " "
	}
}
