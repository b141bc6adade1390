package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses bursts of writes to the trigger file into one run.
const watchDebounce = 500 * time.Millisecond

// Watch runs an export every time the trigger file at path is written or
// created, until ctx is cancelled. The parent directory is watched so the
// file may be replaced or not exist yet.
func (s *ExportService) Watch(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch dir %q: %w", filepath.Dir(absPath), err)
	}
	s.logger.Info("watching trigger file", "path", absPath, "database", s.opts.Database)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		s.running.WaitAll(context.Background())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if name, _ := filepath.Abs(event.Name); name != absPath {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				s.logger.Info("trigger file changed", "path", absPath)
				s.tick(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.logger.Warn("watcher overflow, events dropped", "path", absPath)
				continue
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
