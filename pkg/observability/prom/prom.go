// Package prom implements the observability hooks with Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	c, err := prom.NewCollector(reg)
//	if err != nil {
//	    return err
//	}
//	c.Install()
//	http.Handle("/metrics", c.Handler())
package prom

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/observability"
)

var latencyBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Collector bundles the Prometheus metrics fed by the scene, snap, history
// and store hooks.
type Collector struct {
	gatherer prometheus.Gatherer

	Commands         *prometheus.CounterVec
	CommandDurations *prometheus.HistogramVec

	Resolutions       prometheus.Counter
	ResolveDurations  prometheus.Histogram
	ResolveCandidates prometheus.Histogram
	Connections       *prometheus.CounterVec

	HistoryOps   *prometheus.CounterVec
	HistoryDepth prometheus.Gauge

	StoreOps       *prometheus.CounterVec
	StoreDurations *prometheus.HistogramVec
	StoreBytes     *prometheus.HistogramVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice on one registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}
	var err error

	if c.Commands, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockforge_commands_total",
		Help: "Project commands, labeled by command and result code.",
	}, []string{"command", "code"})); err != nil {
		return nil, err
	}
	if c.CommandDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blockforge_command_duration_seconds",
		Help:    "Project command latency in seconds, snap resolution included.",
		Buckets: latencyBuckets,
	}, []string{"command"})); err != nil {
		return nil, err
	}

	if c.Resolutions, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockforge_snap_resolutions_total",
		Help: "Snap resolution passes.",
	})); err != nil {
		return nil, err
	}
	if c.ResolveDurations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "blockforge_snap_resolve_duration_seconds",
		Help:    "Snap resolution latency in seconds.",
		Buckets: latencyBuckets,
	})); err != nil {
		return nil, err
	}
	if c.ResolveCandidates, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "blockforge_snap_candidates",
		Help:    "Instances passing the broad phase per resolution.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})); err != nil {
		return nil, err
	}
	if c.Connections, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockforge_snap_connections_total",
		Help: "Connections derived by snap resolution, labeled by validity.",
	}, []string{"valid"})); err != nil {
		return nil, err
	}

	if c.HistoryOps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockforge_history_operations_total",
		Help: "History commits, undos and redos, labeled by result code.",
	}, []string{"op", "code"})); err != nil {
		return nil, err
	}
	if c.HistoryDepth, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "blockforge_history_depth",
		Help: "Undoable commands after the last commit.",
	})); err != nil {
		return nil, err
	}

	if c.StoreOps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockforge_store_operations_total",
		Help: "Project saves and loads, labeled by backend, operation and result code.",
	}, []string{"backend", "op", "code"})); err != nil {
		return nil, err
	}
	if c.StoreDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blockforge_store_duration_seconds",
		Help:    "Project save and load latency in seconds.",
		Buckets: latencyBuckets,
	}, []string{"backend", "op"})); err != nil {
		return nil, err
	}
	if c.StoreBytes, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blockforge_store_document_bytes",
		Help:    "Encoded project document size.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	}, []string{"backend", "op"})); err != nil {
		return nil, err
	}
	return c, nil
}

// Install registers c as the global scene, snap, history and store hooks.
func (c *Collector) Install() {
	observability.SetSceneHooks(c)
	observability.SetSnapHooks(c)
	observability.SetHistoryHooks(c)
	observability.SetStoreHooks(c)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// OnCommand implements observability.SceneHooks.
func (c *Collector) OnCommand(_ context.Context, name string, d time.Duration, err error) {
	c.Commands.WithLabelValues(name, code(err)).Inc()
	c.CommandDurations.WithLabelValues(name).Observe(d.Seconds())
}

// OnResolve implements observability.SnapHooks.
func (c *Collector) OnResolve(_ context.Context, candidates, valid, invalid int, d time.Duration) {
	c.Resolutions.Inc()
	c.ResolveDurations.Observe(d.Seconds())
	c.ResolveCandidates.Observe(float64(candidates))
	c.Connections.WithLabelValues("true").Add(float64(valid))
	c.Connections.WithLabelValues("false").Add(float64(invalid))
}

// OnCommit implements observability.HistoryHooks.
func (c *Collector) OnCommit(_ context.Context, _ string, depth int) {
	c.HistoryOps.WithLabelValues("commit", code(nil)).Inc()
	c.HistoryDepth.Set(float64(depth))
}

// OnUndo implements observability.HistoryHooks.
func (c *Collector) OnUndo(_ context.Context, _ string, err error) {
	c.HistoryOps.WithLabelValues("undo", code(err)).Inc()
	if err == nil {
		c.HistoryDepth.Dec()
	}
}

// OnRedo implements observability.HistoryHooks.
func (c *Collector) OnRedo(_ context.Context, _ string, err error) {
	c.HistoryOps.WithLabelValues("redo", code(err)).Inc()
	if err == nil {
		c.HistoryDepth.Inc()
	}
}

// OnSave implements observability.StoreHooks.
func (c *Collector) OnSave(_ context.Context, backend string, size int, d time.Duration, err error) {
	c.store(backend, "save", size, d, err)
}

// OnLoad implements observability.StoreHooks.
func (c *Collector) OnLoad(_ context.Context, backend string, size int, d time.Duration, err error) {
	c.store(backend, "load", size, d, err)
}

func (c *Collector) store(backend, op string, size int, d time.Duration, err error) {
	c.StoreOps.WithLabelValues(backend, op, code(err)).Inc()
	c.StoreDurations.WithLabelValues(backend, op).Observe(d.Seconds())
	if err == nil {
		c.StoreBytes.WithLabelValues(backend, op).Observe(float64(size))
	}
}

// code maps an error to a metric label: OK, its coded category, or UNKNOWN.
func code(err error) string {
	if err == nil {
		return "OK"
	}
	if c := bferrors.GetCode(err); c != "" {
		return string(c)
	}
	return "UNKNOWN"
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return c, nil
}

var (
	_ observability.SceneHooks   = (*Collector)(nil)
	_ observability.SnapHooks    = (*Collector)(nil)
	_ observability.HistoryHooks = (*Collector)(nil)
	_ observability.StoreHooks   = (*Collector)(nil)
)
