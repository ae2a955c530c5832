package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/config"
	"github.com/jamesprial/supercap-mcp/internal/hwmon"
	"github.com/jamesprial/supercap-mcp/internal/publish"
	"github.com/jamesprial/supercap-mcp/internal/safety"
	"github.com/jamesprial/supercap-mcp/internal/status"
	"github.com/jamesprial/supercap-mcp/internal/supercap"
	"github.com/jamesprial/supercap-mcp/internal/watch"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deviceAttrs = map[string]string{
	"meas_vin":      "1000\n",
	"meas_vcap":     "1000\n",
	"meas_dtemp":    "10083\n",
	"meas_cap":      "1000\n",
	"cap_uv_lvl":    "5000\n",
	"vcap_ov_lvl":   "1400\n",
	"dtemp_hot_lvl": "12000\n",
	"num_caps":      "3\n",
	"alarm_reg":     "3\n",
	"mon_status":    "8\n",
	"chrg_status":   "0\n",
	"clr_alarms":    "0\n",
	"msk_alarms":    "0\n",
}

func newTestCLI(t *testing.T) (*cli, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range deviceAttrs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	log, _ := test.NewNullLogger()
	cfg := config.DefaultConfig()
	filter := safety.NewFilter(cfg.Safety.Attributes.Allowlist, cfg.Safety.Attributes.Denylist)
	out := &bytes.Buffer{}
	return &cli{
		ctrl:  supercap.NewController(hwmon.NewSysfsStore(dir), filter, log),
		dir:   dir,
		watch: cfg.Watch,
		out:   out,
		log:   log,
	}, out, dir
}

func Test_CLI_Commands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		absent   []string
	}{
		{name: "read raw", args: []string{"read", "meas_vin"}, contains: []string{"1000\n"}},
		{name: "read converted", args: []string{"read", "-c", "meas_vin"}, contains: []string{"2210 mV\n"}},
		{name: "read converted temperature", args: []string{"read", "-c", "meas_dtemp"}, contains: []string{"31 C\n"}},
		{name: "show lists attributes", args: []string{"show"}, contains: []string{"meas_vcap", "1476 mV", "num_caps"}},
		{
			name:     "status report",
			args:     []string{"status"},
			contains: []string{
				"SUPERCAPACITORS STATUS REPORT", "MONITOR STATUS:", "ALARMS:", "CHARGER STATUS:", "alarm_reg    3",
				"Measured capacitance: 240 F. Capacitor undervoltage level: 917 mV",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out, _ := newTestCLI(t)
			require.NoError(t, c.run(context.Background(), tt.args))
			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, out.String(), unwanted)
			}
		})
	}
}

func Test_CLI_Write(t *testing.T) {
	c, out, dir := newTestCLI(t)

	require.NoError(t, c.run(context.Background(), []string{"write", "vcap_ov_lvl", "2000", "mV"}))
	assert.Equal(t, "Wrote 1355 on vcap_ov_lvl\n", out.String())

	data, err := os.ReadFile(filepath.Join(dir, "vcap_ov_lvl"))
	require.NoError(t, err)
	assert.Equal(t, "1355", string(data))
}

func Test_CLI_WriteDenied(t *testing.T) {
	c, _, _ := newTestCLI(t)
	err := c.run(context.Background(), []string{"write", "meas_vin", "1"})
	assert.ErrorIs(t, err, supercap.ErrWriteDenied)
}

func Test_CLI_Clear(t *testing.T) {
	c, out, dir := newTestCLI(t)

	require.NoError(t, c.run(context.Background(), []string{"clear"}))
	assert.Contains(t, out.String(), "Cleared cap_uv")
	assert.Contains(t, out.String(), "Cleared cap_ov")

	data, err := os.ReadFile(filepath.Join(dir, "clr_alarms"))
	require.NoError(t, err)
	assert.Equal(t, "3", string(data))
}

func Test_CLI_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "read without name", args: []string{"read"}},
		{name: "write without value", args: []string{"write", "vcap_ov_lvl"}},
		{name: "sensors with bad interval", args: []string{"sensors", "-i", "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestCLI(t)
			err := c.run(context.Background(), tt.args)
			assert.True(t, errors.Is(err, errUsage), "error = %v, want errUsage", err)
		})
	}
}

func Test_Sample_WritesCSV(t *testing.T) {
	c, _, _ := newTestCLI(t)
	buf := &bytes.Buffer{}
	ts := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	err := sample(context.Background(), c.ctrl, csv.NewWriter(buf), 2, time.Millisecond, func() time.Time { return ts })
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"timestamp", "cap (F)", "dtemp (C)", "vcap (mV)", "vin (mV)"}, rows[0])
	assert.Equal(t, []string{"2026-01-15T10:30:00Z", "240", "31", "1476", "2210"}, rows[1])
	assert.Equal(t, rows[1], rows[2])
}

func Test_Sample_StopsOnCancel(t *testing.T) {
	c, _, _ := newTestCLI(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Cancel once the first row is stamped; the hour-long ticker never fires.
	stamp := func() time.Time {
		cancel()
		return time.Now()
	}

	buf := &bytes.Buffer{}
	err := sample(ctx, c.ctrl, csv.NewWriter(buf), 0, time.Hour, stamp)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"), "header and first sample only")
}

func Test_Shell_Exec(t *testing.T) {
	c, out, _ := newTestCLI(t)
	ctx := context.Background()

	assert.False(t, c.exec(ctx, "   "))
	assert.False(t, c.exec(ctx, "read meas_vcap"))
	assert.False(t, c.exec(ctx, "read"))
	assert.False(t, c.exec(ctx, "shell"))
	assert.True(t, c.exec(ctx, "exit"))

	assert.Contains(t, out.String(), "1000\n")
	assert.Contains(t, out.String(), "read: usage")
	assert.Contains(t, out.String(), "already in the shell")
}

// syncBuffer is a bytes.Buffer safe for a writer and a concurrent reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// chanNotifier reports the names sent on ch.
type chanNotifier struct {
	ch chan []string
}

func (n *chanNotifier) Wait(ctx context.Context) ([]string, error) {
	select {
	case names := <-n.ch:
		return names, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *chanNotifier) Close() error { return nil }

func Test_CLI_AwaitPrintsRelatedReadings(t *testing.T) {
	c, _, dir := newTestCLI(t)
	out := &syncBuffer{}
	c.out = out
	notifier := &chanNotifier{ch: make(chan []string)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.awaitWith(ctx, notifier) }()

	// Notified twice with the same value; both are reported.
	notifier.ch <- []string{"alarm_reg"}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mon_status"), []byte("256\n"), 0o644))
	notifier.ch <- []string{"alarm_reg", "mon_status"}

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "monitor value: 256")
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "alarm value: 3"))
	assert.Contains(t, text, "Capacitor undervoltage alarm")
	assert.Contains(t, text, "Measured capacitance: 240 F. Capacitor undervoltage level: 917 mV")
	assert.Contains(t, text, "Capacitor overvoltage level: ?")
	assert.Contains(t, text, "Warning: cap_ov: cap_ov_lvl may be wrong")
	assert.Contains(t, text, "The device is no longer connected to power outlet.")
}

// fakeHistory serves a fixed list of messages.
type fakeHistory struct {
	msgs   []publish.Message
	asked  int
	closed bool
}

func (f *fakeHistory) Recent(_ context.Context, n int) ([]publish.Message, error) {
	f.asked = n
	if n < len(f.msgs) {
		return f.msgs[:n], nil
	}
	return f.msgs, nil
}

func (f *fakeHistory) Close() error {
	f.closed = true
	return nil
}

func Test_CLI_History(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	src := &fakeHistory{msgs: []publish.Message{
		{Device: "ltc3350", Event: watch.Event{ID: "b", Time: ts, Word: "alarm", Raw: 0, Conditions: []supercap.ActiveCondition{}}},
		{Device: "ltc3350", Event: watch.Event{ID: "a", Time: ts.Add(-time.Minute), Word: "alarm", Raw: 1, Conditions: []supercap.ActiveCondition{{
			Condition: status.Decode(status.AlarmRegister, 1)[0],
		}}}},
	}}

	c, out, _ := newTestCLI(t)
	c.openHistory = func(context.Context) (historySource, error) { return src, nil }

	require.NoError(t, c.run(context.Background(), []string{"history", "-n", "5"}))
	assert.Equal(t, 5, src.asked)
	assert.True(t, src.closed)
	assert.Contains(t, out.String(), "[2026-01-15T10:30:00Z] alarm value: 0")
	assert.Contains(t, out.String(), "[2026-01-15T10:29:00Z] alarm value: 1")
	assert.Contains(t, out.String(), "Capacitor undervoltage alarm")
	assert.Less(t, strings.Index(out.String(), "value: 0"), strings.Index(out.String(), "value: 1"), "newest first")
}

func Test_CLI_HistoryNotConfigured(t *testing.T) {
	c, _, _ := newTestCLI(t)
	err := c.run(context.Background(), []string{"history"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")

	assert.ErrorIs(t, c.run(context.Background(), []string{"history", "-n", "0"}), errUsage)
}
