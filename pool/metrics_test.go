package pool

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestCollectorReportsLiveStats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxActive = 2
	p, _ := newTestPool(t, cfg)

	c, err := p.Acquire(context.Background(), "", "")
	require.NoError(t, err)
	defer c.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(p, "connpool", "test")))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				values[fam.GetName()] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[fam.GetName()] = m.GetCounter().GetValue()
			}
		}
	}

	require.Equal(t, float64(1), values["connpool_test_active_connections"])
	require.Equal(t, float64(0), values["connpool_test_idle_connections"])
	require.Equal(t, float64(1), values["connpool_test_requests_total"])
}
