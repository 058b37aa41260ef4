package otel

import (
	"context"
	"errors"
	"fmt"

	hostAuth "github.com/MrEthical07/hostAuth"
	"github.com/MrEthical07/hostAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() hostAuth.MetricsSnapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument from a snapshot.
type observeFunc func(metric.Observer, hostAuth.MetricsSnapshot, uint64)

// OTelExporter observes engine metrics on every collection cycle.
type OTelExporter struct {
	registration metric.Registration
}

// NewOTelExporter registers instruments on meter that read from engine.
func NewOTelExporter(meter metric.Meter, engine *hostAuth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments on meter that read from source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	r := registrar{meter: meter}
	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		r.counter(def.Name, def.Help, func(s hostAuth.MetricsSnapshot, _ uint64) int64 {
			return int64(s.Counters[id])
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		r.histogram(def.Name, def.ID)
	}
	r.counter("hostauth_audit_dropped_total", "Audit events dropped on a full dispatcher queue.",
		func(_ hostAuth.MetricsSnapshot, dropped uint64) int64 { return int64(dropped) })
	if r.err != nil {
		return nil, r.err
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snapshot := source.MetricsSnapshot()
		dropped := source.AuditDropped()
		for _, observe := range r.observers {
			observe(o, snapshot, dropped)
		}
		return nil
	}, r.instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &OTelExporter{registration: registration}, nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// registrar creates instruments and stops at the first error.
type registrar struct {
	meter       metric.Meter
	instruments []metric.Observable
	observers   []observeFunc
	err         error
}

func (r *registrar) counter(name, help string, value func(hostAuth.MetricsSnapshot, uint64) int64) {
	if r.err != nil {
		return
	}
	ins, err := r.meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		r.err = fmt.Errorf("create observable counter %s: %w", name, err)
		return
	}
	r.instruments = append(r.instruments, ins)
	r.observers = append(r.observers, func(o metric.Observer, s hostAuth.MetricsSnapshot, dropped uint64) {
		o.ObserveInt64(ins, value(s, dropped))
	})
}

func (r *registrar) gauge(name, help string, value func(hostAuth.Histogram) int64) {
	if r.err != nil {
		return
	}
	ins, err := r.meter.Int64ObservableGauge(name, metric.WithDescription(help))
	if err != nil {
		r.err = fmt.Errorf("create observable gauge %s: %w", name, err)
		return
	}
	r.instruments = append(r.instruments, ins)
	r.observers = append(r.observers, func(o metric.Observer, s hostAuth.MetricsSnapshot, _ uint64) {
		o.ObserveInt64(ins, value(s.Histograms[latencyID]))
	})
}

// latencyID is the histogram every gauge reads; the engine has only one.
const latencyID = hostAuth.MetricPermissionLatency

// histogram exposes one engine histogram as cumulative bucket gauges plus
// count and sum gauges.
func (r *registrar) histogram(name string, id hostAuth.MetricID) {
	if id != latencyID {
		r.err = fmt.Errorf("unsupported histogram %s", name)
		return
	}
	for i, label := range internaldefs.BucketLabels {
		i := i
		r.gauge(name+"_bucket_le_"+label.Suffix, "Cumulative histogram bucket count.", func(h hostAuth.Histogram) int64 {
			return int64(h.Cumulative()[i])
		})
	}
	r.gauge(name+"_count", "Histogram total sample count.", func(h hostAuth.Histogram) int64 {
		return int64(h.Count())
	})
	if r.err != nil {
		return
	}
	sum, err := r.meter.Float64ObservableGauge(name+"_sum", metric.WithDescription("Histogram sum in seconds."), metric.WithUnit("s"))
	if err != nil {
		r.err = fmt.Errorf("create histogram sum gauge %s: %w", name, err)
		return
	}
	r.instruments = append(r.instruments, sum)
	r.observers = append(r.observers, func(o metric.Observer, s hostAuth.MetricsSnapshot, _ uint64) {
		o.ObserveFloat64(sum, s.Histograms[id].Sum.Seconds())
	})
}
