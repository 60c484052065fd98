package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/civicrank/pkg/logger"
)

// startWatcher must be called with s.mu held.
func (s *Service) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.dataDir, err)
	}
	if err := w.Add(s.dataDir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", s.dataDir, err)
	}
	s.watcher = w
	s.wg.Add(1)
	go s.watchLoop(w, s.stopCh)
	return nil
}

// watchLoop reloads once writes to data files have been quiet for the
// debounce interval. The pipeline replaces files by rename, so bursts of
// events per run are normal.
func (s *Service) watchLoop(w *fsnotify.Watcher, stop <-chan struct{}) {
	defer s.wg.Done()
	ctx := context.Background()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !isDataFile(ev.Name) || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) {
				continue
			}
			s.logger.Debug(ctx, "data file changed", logger.File(ev.Name), logger.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(s.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := s.Reload(ctx); err != nil {
				s.logger.Warn(ctx, "reload failed, keeping previous data", logger.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn(ctx, "watcher error", logger.Error(err))
		}
	}
}

// isDataFile ignores the hidden temp files written before a rename.
func isDataFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}
