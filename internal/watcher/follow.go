package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchTranscripts watches projectsDir and its project subdirectories for
// transcript (.jsonl) writes. Once writes have been quiet for debounce, a
// value is sent on the returned channel; a pending value is never doubled
// up. Project directories created later are picked up. The channel is
// closed when ctx is cancelled or the underlying watcher fails.
func WatchTranscripts(ctx context.Context, projectsDir string, debounce time.Duration, logger *slog.Logger) (<-chan struct{}, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := addTree(fw, projectsDir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() { _ = fw.Close() }()

		settle := time.NewTimer(debounce)
		settle.Stop()
		defer settle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) && isDir(ev.Name) {
					if err := fw.Add(ev.Name); err != nil {
						logger.Debug("watching new project directory", "path", ev.Name, "error", err)
					}
					continue
				}
				if strings.HasSuffix(ev.Name, ".jsonl") && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					settle.Reset(debounce)
				}
			case <-settle.C:
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("transcript watcher error", "error", err)
			}
		}
	}()
	return out, nil
}

// addTree adds dir and its immediate subdirectories to fw.
func addTree(fw *fsnotify.Watcher, dir string) error {
	if err := fw.Add(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("transcript directory %s does not exist", dir)
		}
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := fw.Add(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("watching %s: %w", e.Name(), err)
		}
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
