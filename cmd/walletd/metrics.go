package main

import (
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsBridge periodically copies every meter/timer in go-metrics'
// default registry (see internal/sync/metrics.go) into prometheus gauges,
// so the same instrumentation the core already emits shows up on
// cmd/walletd's /metrics endpoint without the core importing prometheus
// itself (SPEC_FULL.md §4: "github.com/prometheus/client_golang |
// cmd/walletd | /metrics HTTP endpoint exposing the go-metrics registry").
type metricsBridge struct {
	gauges map[string]prometheus.Gauge
}

func newMetricsBridge() *metricsBridge {
	return &metricsBridge{gauges: make(map[string]prometheus.Gauge)}
}

func (b *metricsBridge) gauge(name string) prometheus.Gauge {
	if g, ok := b.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wallet_" + sanitizeMetricName(name),
		Help: "bridged from go-metrics registry key " + name,
	})
	prometheus.MustRegister(g)
	b.gauges[name] = g
	return g
}

func sanitizeMetricName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '/' || r == '-' || r == '.' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// run copies the registry snapshot into prometheus gauges every interval
// until stop is closed.
func (b *metricsBridge) run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.sample()
		}
	}
}

func (b *metricsBridge) sample() {
	metrics.DefaultRegistry.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Meter:
			b.gauge(name + "_rate1m").Set(m.Rate1())
			b.gauge(name + "_count").Set(float64(m.Count()))
		case metrics.Timer:
			b.gauge(name + "_mean_ns").Set(m.Mean())
			b.gauge(name + "_count").Set(float64(m.Count()))
		case metrics.Counter:
			b.gauge(name + "_count").Set(float64(m.Count()))
		case metrics.Gauge:
			b.gauge(name).Set(float64(m.Value()))
		}
	})
}
