package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
)

// reloadDebounce collapses the burst of events editors emit for one save
const reloadDebounce = 100 * time.Millisecond

// Watch calls fn with freshly loaded settings whenever path is written or
// recreated. It watches the containing directory so atomic replaces are seen.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *logging.Logger, fn func(*Settings)) error {
	if logger == nil {
		logger = logging.Nop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			s, err := Load(abs)
			if err != nil {
				logger.Error("settings reload failed", err)
				continue
			}
			logger.Infof("settings reloaded: fallback=%t delay=%gs loops=%d auto-stop=%ds",
				s.FallbackRandom, s.PostMarkerDelay, s.MaxLoops, s.AutoStopSeconds)
			fn(s)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("settings watcher error", err)
		}
	}
}
