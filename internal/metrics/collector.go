// Package metrics exposes controller readings to Prometheus. Values are read
// from the device on every scrape.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/measure"
	"github.com/jamesprial/supercap-mcp/internal/status"
	"github.com/jamesprial/supercap-mcp/internal/supercap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "supercap"

var (
	upDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "up"),
		"Whether the last scrape could list the device attributes.",
		nil, nil,
	)
	rawDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "attribute", "raw"),
		"Raw LSB code of a device attribute.",
		[]string{"attribute"}, nil,
	)
	valueDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "attribute", "value"),
		"Device attribute converted to its physical unit.",
		[]string{"attribute", "kind", "unit"}, nil,
	)
	conditionDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "condition", "active"),
		"Whether a status word condition is set.",
		[]string{"word", "condition"}, nil,
	)
	readErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "read_errors", "total"),
		"Attribute reads that failed during scrapes.",
		nil, nil,
	)
)

// Collector implements prometheus.Collector over a supercap.Controller.
type Collector struct {
	ctrl       *supercap.Controller
	timeout    time.Duration
	log        logrus.FieldLogger
	readErrors atomic.Uint64
}

// NewCollector returns a collector. timeout bounds each scrape.
func NewCollector(ctrl *supercap.Controller, timeout time.Duration, log logrus.FieldLogger) *Collector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collector{ctrl: ctrl, timeout: timeout, log: log}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- rawDesc
	ch <- valueDesc
	ch <- conditionDesc
	ch <- readErrorsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	readings, err := c.ctrl.Show(ctx)
	if err != nil {
		c.readErrors.Add(1)
		c.log.WithError(err).Warn("scrape failed")
		ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(readErrorsDesc, prometheus.CounterValue, float64(c.readErrors.Load()))
		return
	}
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 1)

	words := make(map[string]int64, len(status.WordKinds))
	for _, r := range readings {
		if !r.OK() {
			c.readErrors.Add(1)
			continue
		}
		ch <- prometheus.MustNewConstMetric(rawDesc, prometheus.GaugeValue, float64(r.Raw), r.Attribute)
		if r.Kind != measure.Raw.String() {
			ch <- prometheus.MustNewConstMetric(valueDesc, prometheus.GaugeValue, float64(r.Value.Value), r.Attribute, r.Kind, r.Value.Unit)
		}
		if _, ok := status.KindForAttribute(r.Attribute); ok {
			words[r.Attribute] = r.Raw
		}
	}

	for _, kind := range status.WordKinds {
		word, ok := words[kind.Attribute()]
		if !ok {
			continue
		}
		for _, b := range status.Table(kind) {
			active := 0.0
			if word&(1<<uint(b.Index)) != 0 {
				active = 1
			}
			ch <- prometheus.MustNewConstMetric(conditionDesc, prometheus.GaugeValue, active, kind.String(), b.Name)
		}
	}

	ch <- prometheus.MustNewConstMetric(readErrorsDesc, prometheus.CounterValue, float64(c.readErrors.Load()))
}

// NewHandler returns an HTTP handler serving /metrics from a fresh registry
// holding c plus the Go runtime and process collectors, and /health.
func NewHandler(c *Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		c,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux, nil
}
