package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	hostAuth "github.com/MrEthical07/hostAuth"
	"github.com/MrEthical07/hostAuth/metrics/export/internaldefs"
)

const auditDroppedName = "hostauth_audit_dropped_total"

type metricsSource interface {
	MetricsSnapshot() hostAuth.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter returns an exporter reading from engine.
func NewPrometheusExporter(engine *hostAuth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource returns an exporter reading from source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render on every request.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It returns "" when metrics are disabled
// and no audit event was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var w exposition
	w.Grow(4096)
	for _, def := range internaldefs.CounterDefs {
		w.header(def.Name, def.Help, "counter")
		w.sample(def.Name, "", strconv.FormatUint(snapshot.Counters[def.ID], 10))
	}
	for _, def := range internaldefs.HistogramDefs {
		w.histogram(def.Name, def.Help, snapshot.Histograms[def.ID])
	}
	w.header(auditDroppedName, "Audit events dropped on a full dispatcher queue.", "counter")
	w.sample(auditDroppedName, "", strconv.FormatUint(dropped, 10))
	return w.String()
}

type exposition struct {
	strings.Builder
}

func (w *exposition) header(name, help, kind string) {
	w.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	w.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (w *exposition) sample(name, labels, value string) {
	w.WriteString(name)
	w.WriteString(labels)
	w.WriteByte(' ')
	w.WriteString(value)
	w.WriteByte('\n')
}

func (w *exposition) histogram(name, help string, h hostAuth.Histogram) {
	w.header(name, help, "histogram")
	cumulative := h.Cumulative()
	for i, label := range internaldefs.BucketLabels {
		w.sample(name+"_bucket", `{le="`+label.LE+`"}`, strconv.FormatUint(cumulative[i], 10))
	}
	w.sample(name+"_sum", "", strconv.FormatFloat(h.Sum.Seconds(), 'g', -1, 64))
	w.sample(name+"_count", "", strconv.FormatUint(cumulative[len(cumulative)-1], 10))
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
