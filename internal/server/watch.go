package server

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/stepsource"
)

// debounceDelay batches bursts of file-system events into one rebuild.
const debounceDelay = 500 * time.Millisecond

// Watcher triggers an inventory rebuild when Python files under the
// project root change.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onChange func()
	logger   *zap.Logger
}

// NewWatcher watches every directory under root that is not excluded from
// step discovery.
func NewWatcher(root string, onChange func(), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(stepsource.DefaultSkipDirs))
	for _, d := range stepsource.DefaultSkipDirs {
		skip[d] = struct{}{}
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || !d.IsDir() {
			return nil
		}
		if _, skipped := skip[d.Name()]; skipped && path != root {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{fsw: fsw, onChange: onChange, logger: logger}, nil
}

// Run delivers debounced change notifications until the context is
// cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevantEvent(event) {
				continue
			}
			w.logger.Debug("step source changed",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()))

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.onChange)

			// New directories join the watch set so nested step
			// modules keep triggering rebuilds.
			if event.Op.Has(fsnotify.Create) {
				_ = w.fsw.Add(event.Name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// Close stops the underlying file-system watcher.
func (w *Watcher) Close() {
	_ = w.fsw.Close()
}

// relevantEvent filters for Python file writes, creations, removals and
// renames.
func relevantEvent(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	if strings.HasSuffix(event.Name, ".py") {
		return true
	}
	// Directory events carry no extension; Create may be a new steps dir.
	return event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove)
}
