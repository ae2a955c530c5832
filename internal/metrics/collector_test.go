package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/hwmon"
	"github.com/jamesprial/supercap-mcp/internal/supercap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollector(t *testing.T, files map[string]string) (*Collector, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	log, _ := test.NewNullLogger()
	ctrl := supercap.NewController(hwmon.NewSysfsStore(dir), nil, log)
	return NewCollector(ctrl, time.Second, log), dir
}

// gaugeValue returns the value of the series of family name whose labels
// equal want.
func gaugeValue(t *testing.T, families []*dto.MetricFamily, name string, want map[string]string) (float64, bool) {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if got[k] != v {
					continue series
				}
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue(), true
			}
			return m.GetCounter().GetValue(), true
		}
	}
	return 0, false
}

func gather(t *testing.T, c *Collector) []*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)
	return families
}

func Test_Collector_Values(t *testing.T) {
	c, _ := newCollector(t, map[string]string{
		"meas_vcap":  "1000\n",
		"meas_dtemp": "10083\n",
		"alarm_reg":  "3\n",
		"mon_status": "8\n",
		"num_caps":   "3\n",
	})
	families := gather(t, c)

	tests := []struct {
		name   string
		metric string
		labels map[string]string
		want   float64
	}{
		{name: "raw code", metric: "supercap_attribute_raw", labels: map[string]string{"attribute": "meas_vcap"}, want: 1000},
		{name: "converted voltage", metric: "supercap_attribute_value", labels: map[string]string{"attribute": "meas_vcap", "unit": "mV"}, want: 1476},
		{name: "converted temperature", metric: "supercap_attribute_value", labels: map[string]string{"attribute": "meas_dtemp", "unit": "C"}, want: 31},
		{name: "raw register has raw series", metric: "supercap_attribute_raw", labels: map[string]string{"attribute": "num_caps"}, want: 3},
		{name: "alarm bit set", metric: "supercap_condition_active", labels: map[string]string{"word": "alarm", "condition": "cap_uv"}, want: 1},
		{name: "alarm bit clear", metric: "supercap_condition_active", labels: map[string]string{"word": "alarm", "condition": "dtemp_hot"}, want: 0},
		{name: "up", metric: "supercap_up", want: 1},
		{name: "no read errors", metric: "supercap_read_errors_total", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := gaugeValue(t, families, tt.metric, tt.labels)
			require.True(t, ok, "series %s%v not found", tt.metric, tt.labels)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := gaugeValue(t, families, "supercap_attribute_value", map[string]string{"attribute": "num_caps"})
	assert.False(t, ok, "raw registers must not have a converted series")
	_, ok = gaugeValue(t, families, "supercap_condition_active", map[string]string{"word": "charger"})
	assert.False(t, ok, "absent status words must not be exported")
}

func Test_Collector_ReadErrorsAccumulate(t *testing.T) {
	c, _ := newCollector(t, map[string]string{
		"meas_vin":  "1000\n",
		"meas_vcap": "oops\n",
	})

	gather(t, c)
	families := gather(t, c)

	got, ok := gaugeValue(t, families, "supercap_read_errors_total", nil)
	require.True(t, ok)
	assert.Equal(t, float64(2), got)
}

func Test_Collector_DeviceGone(t *testing.T) {
	c, dir := newCollector(t, map[string]string{"meas_vin": "1000\n"})
	require.NoError(t, os.RemoveAll(dir))

	expected := `
# HELP supercap_up Whether the last scrape could list the device attributes.
# TYPE supercap_up gauge
supercap_up 0
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "supercap_up"))
}

func Test_Collector_Count(t *testing.T) {
	c, _ := newCollector(t, map[string]string{"meas_vin": "1000\n"})
	// up, raw, value and read_errors.
	assert.Equal(t, 4, testutil.CollectAndCount(c))
}

func Test_NewHandler_Endpoints(t *testing.T) {
	c, _ := newCollector(t, map[string]string{"meas_vin": "1000\n"})
	h, err := NewHandler(c)
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	defer srv.Close()

	tests := []struct {
		path     string
		contains string
	}{
		{path: "/health", contains: "OK"},
		{path: "/metrics", contains: `supercap_attribute_value{attribute="meas_vin",kind="voltage_high",unit="mV"} 2210`},
		{path: "/metrics", contains: "go_goroutines"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.contains)
		})
	}
}
