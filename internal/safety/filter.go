// Package safety guards writes to controller attributes and records every
// tool call in an audit trail.
package safety

import (
	"fmt"
	"path/filepath"
)

// Filter decides which attribute names may be written. Patterns use
// filepath.Match syntax.
//
// A name matching any denylist pattern is refused. Otherwise, when the
// allowlist is empty every name is permitted, and when it is not the name must
// match one of its patterns.
type Filter struct {
	allowlist []string
	denylist  []string
}

// NewFilter builds a Filter. Either list may be nil.
func NewFilter(allowlist, denylist []string) *Filter {
	return &Filter{
		allowlist: allowlist,
		denylist:  denylist,
	}
}

// IsAllowed reports whether name is permitted.
func (f *Filter) IsAllowed(name string) bool {
	return f.Check(name) == nil
}

// Check returns nil when name is permitted, or an error naming the rule that
// refused it.
func (f *Filter) Check(name string) error {
	if f == nil {
		return nil
	}
	for _, pattern := range f.denylist {
		if matchGlob(pattern, name) {
			return fmt.Errorf("%q matches denylist pattern %q", name, pattern)
		}
	}
	if len(f.allowlist) == 0 {
		return nil
	}
	for _, pattern := range f.allowlist {
		if matchGlob(pattern, name) {
			return nil
		}
	}
	return fmt.Errorf("%q matches no allowlist pattern", name)
}

// matchGlob treats malformed patterns as non-matching.
func matchGlob(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}
