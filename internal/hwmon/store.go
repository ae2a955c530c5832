// Package hwmon provides access to the attribute files of a Linux hwmon
// device directory, such as /sys/class/hwmon/hwmon4 for an LTC3350.
package hwmon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when an attribute or device does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidName is returned for attribute names that are not a single
	// path element.
	ErrInvalidName = errors.New("invalid attribute name")
)

// skipped lists directory entries that are not device attributes.
var skipped = map[string]struct{}{
	"name":   {},
	"uevent": {},
}

// Store is the attribute store the supercap controller reads and writes.
type Store interface {
	// List returns the attribute names in lexical order.
	List(ctx context.Context) ([]string, error)
	// ReadRaw returns the integer value of an attribute.
	ReadRaw(ctx context.Context, name string) (int64, error)
	// Write stores value, unmodified, into an existing attribute.
	Write(ctx context.Context, name, value string) error
	// Path returns the file path backing an attribute.
	Path(name string) (string, error)
}

// Compile-time interface check.
var _ Store = (*SysfsStore)(nil)

// SysfsStore implements Store over one hwmon directory. Every call touches the
// filesystem; nothing is cached.
type SysfsStore struct {
	dir string
}

// NewSysfsStore returns a SysfsStore rooted at dir.
func NewSysfsStore(dir string) *SysfsStore {
	return &SysfsStore{dir: dir}
}

// Dir returns the hwmon directory the store reads from.
func (s *SysfsStore) Dir() string {
	return s.dir
}

// Path validates name and joins it onto the store directory.
func (s *SysfsStore) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// List returns the regular files of the directory, excluding "name" and
// "uevent". Symlinks are followed, so links to directories (device,
// subsystem) are skipped.
func (s *SysfsStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, skip := skipped[e.Name()]; skip {
			continue
		}
		info, err := os.Stat(filepath.Join(s.dir, e.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadString returns the trimmed content of an attribute.
func (s *SysfsStore) ReadString(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadRaw parses an attribute as a decimal integer in the signed 32-bit
// range of the device registers.
func (s *SysfsStore) ReadRaw(ctx context.Context, name string) (int64, error) {
	str, err := s.ReadString(ctx, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(str, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse %s value %q: %w", name, str, err)
	}
	return v, nil
}

// Write stores value into an existing attribute. The file is never created.
func (s *SysfsStore) Write(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("write %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	// sysfs reports store() errors on close.
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Discover returns the hwmon directory under {sysPath}/class/hwmon whose
// "name" attribute equals chip.
func Discover(sysPath, chip string) (string, error) {
	pattern := filepath.Join(sysPath, "class", "hwmon", "*", "name")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) == chip {
			return filepath.Dir(path), nil
		}
	}
	return "", fmt.Errorf("hwmon device %q under %s: %w", chip, sysPath, ErrNotFound)
}
