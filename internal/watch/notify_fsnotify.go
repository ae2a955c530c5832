package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FsnotifyNotifier reports writes to watched attribute files. It serves
// attribute directories that are ordinary files, such as test fixtures or a
// mirrored copy of the device, where sysfs_notify is unavailable.
type FsnotifyNotifier struct {
	w     *fsnotify.Watcher
	names map[string]struct{}
}

// NewFsnotifyNotifier watches dir for writes to attrs.
func NewFsnotifyNotifier(dir string, attrs []string) (*FsnotifyNotifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	names := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		names[a] = struct{}{}
	}
	return &FsnotifyNotifier{w: w, names: names}, nil
}

// Wait returns the first watched attribute written or created.
func (n *FsnotifyNotifier) Wait(ctx context.Context) ([]string, error) {
	for {
		select {
		case ev, ok := <-n.w.Events:
			if !ok {
				return nil, fmt.Errorf("fsnotify watcher closed")
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(ev.Name)
			if _, ok := n.names[name]; ok {
				return []string{name}, nil
			}
		case err, ok := <-n.w.Errors:
			if !ok {
				return nil, fmt.Errorf("fsnotify watcher closed")
			}
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close releases the watcher.
func (n *FsnotifyNotifier) Close() error {
	return n.w.Close()
}
