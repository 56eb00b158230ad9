// Package metrics keeps in-process counters, gauges and histograms for the
// thumbnail server and exposes them as JSON or Prometheus text.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leeforge/thumbnailer/json"
)

// Metric types.
const (
	TypeCounter   = "counter"
	TypeGauge     = "gauge"
	TypeHistogram = "histogram"
)

// historySize bounds the samples kept per histogram.
const historySize = 100

// Collector 指标收集器
type Collector struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
	now     func() time.Time
}

// Metric is one labelled series. For histograms Value is the last sample,
// Count and Sum cover every observation and History the most recent ones.
type Metric struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Count     int64             `json:"count,omitempty"`
	Sum       float64           `json:"sum,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	History   []float64         `json:"history,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// Mean returns Sum/Count, or zero before the first observation.
func (m *Metric) Mean() float64 {
	if m.Count == 0 {
		return 0
	}
	return m.Sum / float64(m.Count)
}

// NewCollector 创建指标收集器
func NewCollector() *Collector {
	return &Collector{
		metrics: make(map[string]*Metric),
		now:     time.Now,
	}
}

func (c *Collector) series(name, typ string, labels map[string]string) *Metric {
	key := buildKey(name, labels)
	metric, exists := c.metrics[key]
	if !exists {
		metric = &Metric{Name: name, Type: typ, Labels: copyLabels(labels)}
		c.metrics[key] = metric
	}
	metric.Timestamp = c.now().Unix()
	return metric
}

// IncCounter 增加计数器
func (c *Collector) IncCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

// AddCounter 增加计数器值
func (c *Collector) AddCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series(name, TypeCounter, labels).Value += value
}

// SetGauge 设置仪表值
func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series(name, TypeGauge, labels).Value = value
}

// AddGauge moves a gauge by delta.
func (c *Collector) AddGauge(name string, delta float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series(name, TypeGauge, labels).Value += delta
}

// ObserveHistogram 观察直方图
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metric := c.series(name, TypeHistogram, labels)
	metric.Value = value
	metric.Count++
	metric.Sum += value
	metric.History = append(metric.History, value)
	if len(metric.History) > historySize {
		metric.History = metric.History[len(metric.History)-historySize:]
	}
}

// RecordRequest 记录 HTTP 请求
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	labels := map[string]string{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}

	c.IncCounter("http_requests_total", labels)
	c.ObserveHistogram("http_request_duration_seconds", duration.Seconds(), labels)
	if status >= http.StatusInternalServerError {
		c.IncCounter("http_errors_total", map[string]string{"method": method, "route": route})
	}
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(driver string, hit bool) {
	labels := map[string]string{"driver": driver}
	c.IncCounter("cache_requests_total", labels)
	if hit {
		c.IncCounter("cache_hits_total", labels)
	} else {
		c.IncCounter("cache_misses_total", labels)
	}
}

// buildKey sorts label names so equal label sets always share a series.
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range names {
		b.WriteByte(':')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func (m *Metric) clone() *Metric {
	out := *m
	out.Labels = copyLabels(m.Labels)
	if m.History != nil {
		out.History = append([]float64(nil), m.History...)
	}
	return &out
}

// GetMetrics returns a deep copy of every series keyed by series key.
func (c *Collector) GetMetrics() map[string]*Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*Metric, len(c.metrics))
	for k, v := range c.metrics {
		result[k] = v.clone()
	}
	return result
}

// GetMetric returns a copy of one series, or nil.
func (c *Collector) GetMetric(name string, labels map[string]string) *Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if metric, ok := c.metrics[buildKey(name, labels)]; ok {
		return metric.clone()
	}
	return nil
}

// Reset 重置指标
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]*Metric)
}

// Snapshot is a point-in-time view of a collector.
type Snapshot struct {
	Timestamp int64              `json:"timestamp"`
	Metrics   map[string]*Metric `json:"metrics"`
}

// TakeSnapshot copies the collector's series.
func TakeSnapshot(collector *Collector) Snapshot {
	return Snapshot{
		Timestamp: collector.now().Unix(),
		Metrics:   collector.GetMetrics(),
	}
}

// Middleware records one request series per chi route pattern, so path
// parameters do not create new series.
func Middleware(collector *Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			collector.AddGauge("http_requests_in_flight", 1, nil)
			defer collector.AddGauge("http_requests_in_flight", -1, nil)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			collector.RecordRequest(r.Method, routePattern(r), status, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Handler serves the snapshot as JSON, or as Prometheus text when the
// request asks for ?format=prometheus.
func Handler(collector *Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "prometheus" {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			_, _ = w.Write([]byte(PrometheusFormat(collector)))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TakeSnapshot(collector))
	})
}

// PrometheusFormat renders the series in the Prometheus text exposition
// format. Histograms are exported as summaries (_sum and _count).
func PrometheusFormat(collector *Collector) string {
	metrics := collector.GetMetrics()
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		metric := metrics[key]
		labels := promLabels(metric.Labels)
		switch metric.Type {
		case TypeCounter, TypeGauge:
			fmt.Fprintf(&sb, "%s%s %s\n", metric.Name, labels, promValue(metric.Value))
		case TypeHistogram:
			fmt.Fprintf(&sb, "%s_sum%s %s\n", metric.Name, labels, promValue(metric.Sum))
			fmt.Fprintf(&sb, "%s_count%s %d\n", metric.Name, labels, metric.Count)
		}
	}
	return sb.String()
}

func promLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, k+"="+strconv.Quote(labels[k]))
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

func promValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
