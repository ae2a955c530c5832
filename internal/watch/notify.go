package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendAuto     = "auto"
	BackendPoll     = "poll"
	BackendFsnotify = "fsnotify"
)

// Open returns a Notifier for attrs inside dir. BackendAuto chooses the
// sysfs poll backend for directories under /sys and fsnotify otherwise.
func Open(backend, dir string, attrs []string, timeout time.Duration) (Notifier, error) {
	if backend == "" || backend == BackendAuto {
		backend = BackendFsnotify
		if abs, err := filepath.Abs(dir); err == nil && (abs == "/sys" || strings.HasPrefix(abs, "/sys/")) {
			backend = BackendPoll
		}
	}
	switch backend {
	case BackendPoll:
		n, err := NewPollNotifier(dir, attrs, timeout)
		if err != nil {
			return nil, err
		}
		return n, nil
	case BackendFsnotify:
		n, err := NewFsnotifyNotifier(dir, attrs)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown watch backend %q", backend)
	}
}
