//go:build !linux

package watch

import (
	"context"
	"errors"
	"time"
)

// ErrPollUnsupported is returned where sysfs notifications do not exist.
var ErrPollUnsupported = errors.New("sysfs poll notifications require linux")

// PollNotifier is unavailable outside linux.
type PollNotifier struct{}

// NewPollNotifier always fails outside linux.
func NewPollNotifier(dir string, attrs []string, timeout time.Duration) (*PollNotifier, error) {
	return nil, ErrPollUnsupported
}

// Wait always fails.
func (p *PollNotifier) Wait(ctx context.Context) ([]string, error) {
	return nil, ErrPollUnsupported
}

// Close does nothing.
func (p *PollNotifier) Close() error {
	return nil
}
