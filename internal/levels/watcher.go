package levels

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for writes to settle before
// reloading.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads the store whenever its file changes, until ctx is done.
// The parent directory is watched so that editors replacing the file by
// rename are picked up.
func (s *Store) Watch(ctx context.Context, debounce time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return err
	}
	target := filepath.Clean(s.path)

	go func() {
		defer fsw.Close()
		var (
			timer  *time.Timer
			reload <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(debounce)
				reload = timer.C
			case <-reload:
				reload = nil
				if err := s.Load(); err != nil {
					logger.Warn("Levels reload failed, keeping previous overrides",
						"path", s.path,
						"error", err)
					continue
				}
				s.reloaded()
				logger.Info("Levels reloaded", "path", s.path, "entries", s.Len())
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("Levels watcher error", "error", err)
			}
		}
	}()

	logger.Info("Levels watcher started", "path", s.path, "debounce", debounce)
	return nil
}
