package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file on change and hands the symbol tables to
// the callback. Only the tables are hot-swappable; everything else requires a
// restart.
type Watcher struct {
	Path     string
	Cooldown time.Duration // 防抖：编辑器保存常触发多个事件

	watcher *fsnotify.Watcher
}

func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors replace the file on save, which drops the
	// watch if placed on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return &Watcher{Path: path, Cooldown: 2 * time.Second, watcher: fw}, nil
}

// Run blocks until ctx is done, invoking onUpdate with freshly validated
// tables after each change. Reload failures are reported through onError and
// the previous tables stay in effect.
func (w *Watcher) Run(ctx context.Context, onUpdate func(SymbolTables), onError func(error)) error {
	defer w.watcher.Close()
	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.Path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(lastReload) < w.Cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			lastReload = time.Now()
			if onUpdate != nil {
				onUpdate(cfg.Symbols)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
