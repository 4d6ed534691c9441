package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher reloads a mapping file whenever it changes on disk and hands the
// new Table to onChange. A file that fails to parse is logged and ignored;
// the previous Table stays active.
type Watcher struct {
	path     string
	onChange func(*Table)
	logger   *slog.Logger
	debounce time.Duration
}

func NewWatcher(path string, onChange func(*Table), logger *slog.Logger) *Watcher {
	return &Watcher{path: path, onChange: onChange, logger: logger, debounce: defaultDebounce}
}

// Run blocks until ctx is cancelled. The parent directory is watched so
// that editors replacing the file via rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("init mapping watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("mapping watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	t, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error("mapping reload failed, keeping previous mapping",
			slog.String("path", w.path),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Info("mapping reloaded",
		slog.String("path", w.path),
		slog.Int("tables", t.Len()),
		slog.String("version", t.Version()))
	w.onChange(t)
}
