package watcher

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Notify sends a desktop notification for the given alert. On macOS it uses
// osascript, on Linux it tries notify-send. If neither works, the alert is
// written to fallback.
func Notify(alert Alert, fallback io.Writer) error {
	switch runtime.GOOS {
	case "darwin":
		return notifyMacOS(alert, fallback)
	case "linux":
		return notifyLinux(alert, fallback)
	default:
		return notifyFallback(alert, fallback)
	}
}

func notifyMacOS(alert Alert, fallback io.Writer) error {
	script := fmt.Sprintf(
		`display notification %q with title "sessionlens" subtitle %q`,
		alert.Message, alert.Title,
	)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return notifyFallback(alert, fallback)
	}
	return nil
}

func notifyLinux(alert Alert, fallback io.Writer) error {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return notifyFallback(alert, fallback)
	}
	title := fmt.Sprintf("sessionlens: %s", alert.Title)
	if err := exec.Command("notify-send", title, alert.Message).Run(); err != nil {
		return notifyFallback(alert, fallback)
	}
	return nil
}

func notifyFallback(alert Alert, w io.Writer) error {
	_, err := fmt.Fprintf(w, "[%s] %s: %s\n", alert.Level, alert.Title, alert.Message)
	return err
}
