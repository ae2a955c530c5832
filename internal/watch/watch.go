// Package watch blocks on notifications for the controller's status words and
// turns each one into a decoded Event.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jamesprial/supercap-mcp/internal/status"
	"github.com/jamesprial/supercap-mcp/internal/supercap"
	"github.com/sirupsen/logrus"
)

// Notifier blocks until one or more watched attributes may have changed and
// returns their names.
type Notifier interface {
	Wait(ctx context.Context) ([]string, error)
	Close() error
}

// Event is one notification of a status word. Alarm conditions carry the
// current values of their measurement and threshold attributes; Warnings name
// the ones that could not be read.
type Event struct {
	ID         string                     `json:"id"`
	Time       time.Time                  `json:"time"`
	Attribute  string                     `json:"attribute"`
	Word       string                     `json:"word"`
	Raw        int64                      `json:"raw"`
	Previous   int64                      `json:"previous"`
	Conditions []supercap.ActiveCondition `json:"conditions"`
	Warnings   []string                   `json:"warnings,omitempty"`
}

// Handler receives events. Handlers run on the watcher goroutine in
// registration order.
type Handler func(ctx context.Context, ev Event)

// Watcher re-reads and decodes a status word every time its Notifier reports
// it. A notification is never suppressed because the word reads the same as
// before: the word may have been cleared and raised again in between.
type Watcher struct {
	ctrl     *supercap.Controller
	notifier Notifier
	attrs    []string
	log      logrus.FieldLogger
	now      func() time.Time

	mu       sync.Mutex
	handlers []Handler
	last     map[string]int64
}

// New returns a Watcher over attrs. Each attribute must name a status word.
func New(ctrl *supercap.Controller, notifier Notifier, attrs []string, log logrus.FieldLogger) (*Watcher, error) {
	if len(attrs) == 0 {
		return nil, errors.New("no attributes to watch")
	}
	for _, a := range attrs {
		if _, ok := status.KindForAttribute(a); !ok {
			return nil, fmt.Errorf("%q is not a status word", a)
		}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		ctrl:     ctrl,
		notifier: notifier,
		attrs:    attrs,
		log:      log,
		now:      time.Now,
		last:     make(map[string]int64, len(attrs)),
	}, nil
}

// OnEvent registers h.
func (w *Watcher) OnEvent(h Handler) {
	w.mu.Lock()
	w.handlers = append(w.handlers, h)
	w.mu.Unlock()
}

// Run records the current value of every watched word, then waits for
// notifications until ctx is done. It returns ctx.Err() on cancellation or the
// Notifier's error.
func (w *Watcher) Run(ctx context.Context) error {
	for _, a := range w.attrs {
		raw, err := w.ctrl.Store().ReadRaw(ctx, a)
		if err != nil {
			return fmt.Errorf("read initial %s: %w", a, err)
		}
		w.last[a] = raw
	}
	w.log.WithField("attributes", w.attrs).Info("watching status words")

	for {
		changed, err := w.notifier.Wait(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("wait for change: %w", err)
		}
		for _, a := range changed {
			w.check(ctx, a)
		}
	}
}

func (w *Watcher) check(ctx context.Context, attr string) {
	kind, ok := status.KindForAttribute(attr)
	if !ok {
		return
	}
	raw, err := w.ctrl.Store().ReadRaw(ctx, attr)
	if err != nil {
		w.log.WithError(err).WithField("attribute", attr).Warn("status word may be wrong")
		return
	}
	prev := w.last[attr]
	w.last[attr] = raw

	report, warnings := w.ctrl.DecodeWord(ctx, kind, raw)
	ev := Event{
		ID:         uuid.NewString(),
		Time:       w.now(),
		Attribute:  attr,
		Word:       kind.String(),
		Raw:        raw,
		Previous:   prev,
		Conditions: report.Conditions,
		Warnings:   warnings,
	}
	if ev.Conditions == nil {
		ev.Conditions = []supercap.ActiveCondition{}
	}

	w.mu.Lock()
	handlers := append([]Handler(nil), w.handlers...)
	w.mu.Unlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}

// LogHandler logs every event at info level, one line per active condition.
// Alarm lines carry the related measurement and threshold values.
func LogHandler(log logrus.FieldLogger) Handler {
	return func(_ context.Context, ev Event) {
		entry := log.WithFields(logrus.Fields{
			"event_id":  ev.ID,
			"attribute": ev.Attribute,
			"raw":       ev.Raw,
			"previous":  ev.Previous,
		})
		for _, w := range ev.Warnings {
			entry.Warn(w)
		}
		if len(ev.Conditions) == 0 {
			entry.Infof("%s status clear", ev.Word)
			return
		}
		for _, c := range ev.Conditions {
			fields := logrus.Fields{"condition": c.Name}
			if c.Measurement != nil {
				fields[c.Measurement.Attribute] = c.Measurement.Text()
			}
			if c.Threshold != nil {
				fields[c.Threshold.Attribute] = c.Threshold.Text()
			}
			entry.WithFields(fields).Info(c.Description)
		}
	}
}
