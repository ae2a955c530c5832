package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/supercap"
)

// sensors samples every measurement at a fixed interval and writes one CSV
// row per sample.
func (c *cli) sensors(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sensors", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	count := fs.Int("n", 120, "number of samples, 0 samples until interrupted")
	interval := fs.Duration("i", time.Second, "interval between samples")
	file := fs.String("f", "-", "output CSV file, - for stdout")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *interval <= 0 {
		return fmt.Errorf("%w: sensors [-n count] [-i interval] [-f file]", errUsage)
	}

	out := c.out
	if *file != "-" {
		f, err := os.OpenFile(*file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return sample(ctx, c.ctrl, csv.NewWriter(out), *count, *interval, time.Now)
}

func sample(ctx context.Context, ctrl *supercap.Controller, w *csv.Writer, count int, interval time.Duration, now func() time.Time) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var header []string
	for n := 0; count == 0 || n < count; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				w.Flush()
				return w.Error()
			case <-ticker.C:
			}
		}

		readings, err := ctrl.Sensors(ctx)
		if err != nil {
			return err
		}
		if header == nil {
			header = sensorHeader(readings)
			if err := w.Write(header); err != nil {
				return err
			}
		}
		if err := w.Write(sensorRow(now(), readings)); err != nil {
			return err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	return nil
}

func sensorHeader(readings []supercap.SensorReading) []string {
	row := make([]string, 0, len(readings)+1)
	row = append(row, "timestamp")
	for _, r := range readings {
		if r.Measurement.Value.Unit == "" {
			row = append(row, r.Sensor)
			continue
		}
		row = append(row, fmt.Sprintf("%s (%s)", r.Sensor, r.Measurement.Value.Unit))
	}
	return row
}

// sensorRow leaves a cell empty when the measurement could not be read.
func sensorRow(ts time.Time, readings []supercap.SensorReading) []string {
	row := make([]string, 0, len(readings)+1)
	row = append(row, ts.UTC().Format(time.RFC3339))
	for _, r := range readings {
		if !r.Measurement.OK() {
			row = append(row, "")
			continue
		}
		row = append(row, strconv.FormatInt(r.Measurement.Value.Value, 10))
	}
	return row
}
