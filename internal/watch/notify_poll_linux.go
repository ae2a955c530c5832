//go:build linux

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// PollNotifier waits for sysfs_notify on attribute files using poll(2) with
// POLLPRI. After each notification the file is rewound and read so the next
// poll blocks again.
type PollNotifier struct {
	files   []*os.File
	names   []string
	fds     []unix.PollFd
	timeout int
	buf     []byte
}

// NewPollNotifier opens attrs inside dir. timeout bounds each poll(2) call so
// that context cancellation is noticed.
func NewPollNotifier(dir string, attrs []string, timeout time.Duration) (*PollNotifier, error) {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	p := &PollNotifier{
		timeout: int(timeout / time.Millisecond),
		buf:     make([]byte, 64),
	}
	for _, a := range attrs {
		f, err := os.Open(filepath.Join(dir, a))
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("open %s: %w", a, err)
		}
		// A notification is pending until the attribute has been read once.
		_, _ = f.Read(p.buf)
		p.files = append(p.files, f)
		p.names = append(p.names, a)
		p.fds = append(p.fds, unix.PollFd{Fd: int32(f.Fd()), Events: unix.POLLPRI | unix.POLLERR})
	}
	return p, nil
}

// Wait blocks until at least one attribute is notified.
func (p *PollNotifier) Wait(ctx context.Context) ([]string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range p.fds {
			p.fds[i].Revents = 0
		}
		n, err := unix.Poll(p.fds, p.timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			continue
		}

		var changed []string
		for i, fd := range p.fds {
			if fd.Revents&(unix.POLLPRI|unix.POLLERR) == 0 {
				continue
			}
			if _, err := p.files[i].Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("rewind %s: %w", p.names[i], err)
			}
			_, _ = p.files[i].Read(p.buf)
			changed = append(changed, p.names[i])
		}
		if len(changed) > 0 {
			return changed, nil
		}
	}
}

// Close closes every opened attribute.
func (p *PollNotifier) Close() error {
	var errs []error
	for _, f := range p.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.files = nil
	return errors.Join(errs...)
}
