package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/config"
	"github.com/jamesprial/supercap-mcp/internal/measure"
	"github.com/jamesprial/supercap-mcp/internal/publish"
	"github.com/jamesprial/supercap-mcp/internal/status"
	"github.com/jamesprial/supercap-mcp/internal/supercap"
	"github.com/jamesprial/supercap-mcp/internal/watch"
	"github.com/sirupsen/logrus"
)

var errUsage = errors.New("usage")

// historySource reads recently published events.
type historySource interface {
	Recent(ctx context.Context, n int) ([]publish.Message, error)
	Close() error
}

type cli struct {
	ctrl  *supercap.Controller
	dir   string
	watch config.WatchConfig
	out   io.Writer
	log   logrus.FieldLogger
	// openHistory is nil when event publishing is not configured.
	openHistory func(ctx context.Context) (historySource, error)
}

// run executes one command. args[0] is the command name.
func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "show":
		return c.show(ctx)
	case "await":
		return c.await(ctx)
	case "write":
		return c.write(ctx, args[1:])
	case "read":
		return c.read(ctx, args[1:])
	case "clear":
		return c.clear(ctx)
	case "status":
		return c.status(ctx)
	case "sensors":
		return c.sensors(ctx, args[1:])
	case "history":
		return c.history(ctx, args[1:])
	case "shell":
		return c.shell(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func (c *cli) show(ctx context.Context) error {
	readings, err := c.ctrl.Show(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 8, 2, ' ', 0)
	for _, r := range readings {
		switch {
		case !r.OK():
			fmt.Fprintf(tw, "%s\t?\t%s\n", r.Attribute, r.Error)
		case r.Kind == measure.Raw.String():
			fmt.Fprintf(tw, "%s\t%d\t\n", r.Attribute, r.Raw)
		default:
			fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Attribute, r.Raw, r.Value)
		}
	}
	return tw.Flush()
}

func (c *cli) read(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	convert := fs.Bool("c", false, "convert to physical units")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return fmt.Errorf("%w: read [-c] <name>", errUsage)
	}
	r, err := c.ctrl.Read(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if *convert {
		fmt.Fprintln(c.out, r.Value)
		return nil
	}
	fmt.Fprintln(c.out, r.Raw)
	return nil
}

func (c *cli) write(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: write <name> <value> [unit]", errUsage)
	}
	value, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("value %q is not an integer", args[1])
	}
	var unit string
	if len(args) == 3 {
		unit = args[2]
	}
	res, err := c.ctrl.Write(ctx, args[0], value, unit)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Wrote %d on %s\n", res.Raw, res.Attribute)
	return nil
}

func (c *cli) clear(ctx context.Context) error {
	word, err := c.ctrl.ClearAlarms(ctx)
	if err != nil {
		return err
	}
	conds := status.Decode(status.AlarmRegister, word)
	if len(conds) == 0 {
		fmt.Fprintln(c.out, "No active alarms")
		return nil
	}
	for _, cond := range conds {
		fmt.Fprintf(c.out, "Cleared %s\n", cond.Name)
	}
	return nil
}

func (c *cli) status(ctx context.Context) error {
	rep, err := c.ctrl.Report(ctx)
	if err != nil {
		return err
	}
	printReport(c.out, rep)
	return nil
}

func printReport(w io.Writer, rep supercap.Report) {
	fmt.Fprintln(w, "SUPERCAPACITORS STATUS REPORT")
	fmt.Fprintln(w, "-----------------------------")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "REGISTERS VALUES:")
	for _, wr := range rep.Words() {
		if wr.Error != "" {
			fmt.Fprintf(w, "  %-12s ?\n", wr.Attribute)
			continue
		}
		fmt.Fprintf(w, "  %-12s %d\n", wr.Attribute, wr.Raw)
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
	for _, wr := range rep.Words() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", heading(wr.Word))
		if len(wr.Conditions) == 0 {
			fmt.Fprintln(w, "  none")
			continue
		}
		printConditions(w, wr.Conditions)
	}
}

// printConditions prints one line per condition; alarms get a second line
// with their measurement and threshold.
func printConditions(w io.Writer, conds []supercap.ActiveCondition) {
	for _, cond := range conds {
		fmt.Fprintf(w, "  %s\n", cond.Description)
		if cond.Related == nil {
			continue
		}
		fmt.Fprintf(w, "    %s: %s. %s: %s\n",
			cond.Related.MeasurementLabel, cond.Measurement.Text(),
			cond.Related.ThresholdLabel, cond.Threshold.Text())
	}
}

func heading(word string) string {
	switch word {
	case status.MonitorStatus.String():
		return "MONITOR STATUS"
	case status.AlarmRegister.String():
		return "ALARMS"
	case status.ChargerStatus.String():
		return "CHARGER STATUS"
	}
	return word
}

// await prints every status word notification until ctx is done.
func (c *cli) await(ctx context.Context) error {
	timeout := time.Duration(c.watch.PollTimeoutMS) * time.Millisecond
	notifier, err := watch.Open(c.watch.Backend, c.dir, c.watch.Attributes, timeout)
	if err != nil {
		return err
	}
	defer notifier.Close()
	return c.awaitWith(ctx, notifier)
}

func (c *cli) awaitWith(ctx context.Context, notifier watch.Notifier) error {
	w, err := watch.New(c.ctrl, notifier, c.watch.Attributes, c.log)
	if err != nil {
		return err
	}
	w.OnEvent(func(_ context.Context, ev watch.Event) {
		printEvent(c.out, ev)
	})

	fmt.Fprintln(c.out, "You will be notified in the event of an alarm, or a change in monitor status.")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printEvent(w io.Writer, ev watch.Event) {
	fmt.Fprintf(w, "[%s] %s value: %d\n", ev.Time.Format(time.RFC3339), ev.Word, ev.Raw)
	for _, warn := range ev.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
	printConditions(w, ev.Conditions)
}

// history prints the most recent published events, newest first.
func (c *cli) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	count := fs.Int("n", 20, "number of events")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *count <= 0 {
		return fmt.Errorf("%w: history [-n count]", errUsage)
	}
	if c.openHistory == nil {
		return errors.New("event publishing is not enabled (redis.enabled or SUPERCAP_REDIS_ADDR)")
	}
	src, err := c.openHistory(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	msgs, err := src.Recent(ctx, *count)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(c.out, "No events recorded")
		return nil
	}
	for _, m := range msgs {
		printEvent(c.out, m.Event)
	}
	return nil
}
