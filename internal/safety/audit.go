package safety

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNilWriter is returned by AuditLogger.Log when the logger has no writer.
var ErrNilWriter = errors.New("audit logger: writer is nil")

// AuditEntry records one tool invocation.
type AuditEntry struct {
	Timestamp time.Time
	Tool      string
	Params    map[string]any
	Result    string
	Duration  time.Duration
}

// AuditLogger writes AuditEntry records as JSON lines. It is safe for
// concurrent use.
type AuditLogger struct {
	mu        sync.Mutex
	w         io.Writer
	base      *logrus.Logger
	formatter logrus.Formatter
}

// NewAuditLogger returns a logger writing to w, or nil when w is nil.
func NewAuditLogger(w io.Writer) *AuditLogger {
	if w == nil {
		return nil
	}
	return &AuditLogger{
		w:    w,
		base: logrus.New(),
		formatter: &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "event",
			},
		},
	}
}

// Log writes entry as a single line. Unlike a logrus hook it reports write
// failures to the caller.
func (l *AuditLogger) Log(entry AuditEntry) error {
	if l == nil || l.w == nil {
		return ErrNilWriter
	}

	e := logrus.NewEntry(l.base).WithTime(entry.Timestamp).WithFields(logrus.Fields{
		"tool":        entry.Tool,
		"params":      entry.Params,
		"result":      entry.Result,
		"duration_ns": entry.Duration.Nanoseconds(),
	})
	e.Level = logrus.InfoLevel
	e.Message = "tool_call"

	data, err := l.formatter.Format(e)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(data)
	return err
}
