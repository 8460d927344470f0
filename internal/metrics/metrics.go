package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RequestsTotal       = "http_requests_total"
	RequestErrorsTotal  = "http_requests_errors_total"
	ProcessedTotal      = "media_process_total"
	UnmatchedRoute      = "unmatched"
	otherMethod         = "OTHER"
	instrumentationName = "mediashrink"
)

var knownMethods = map[string]struct{}{
	http.MethodGet: {}, http.MethodHead: {}, http.MethodPost: {}, http.MethodPut: {},
	http.MethodPatch: {}, http.MethodDelete: {}, http.MethodOptions: {},
}

// Registry keeps the service counters for the /metrics endpoint and mirrors
// every increment to OTel. Label values must come from a closed set (route
// patterns, known methods, outcomes) so the number of series stays fixed.
type Registry struct {
	mu          sync.RWMutex
	series      map[string]*atomic.Int64
	instruments map[string]metric.Int64Counter
}

func NewRegistry() *Registry {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	instruments := make(map[string]metric.Int64Counter)
	for name, desc := range map[string]string{
		RequestsTotal:      "HTTP requests by method, route and status class",
		RequestErrorsTotal: "HTTP requests answered with a 5xx status",
		ProcessedTotal:     "Processing runs by media kind and outcome",
	} {
		ctr, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err == nil {
			instruments[name] = ctr
		}
	}

	return &Registry{
		series:      make(map[string]*atomic.Int64),
		instruments: instruments,
	}
}

// ObserveRequest counts one served request. route is the matched route
// pattern, never the raw path.
func (r *Registry) ObserveRequest(ctx context.Context, method, route string, status int) {
	if route == "" {
		route = UnmatchedRoute
	}
	if _, ok := knownMethods[method]; !ok {
		method = otherMethod
	}

	labels := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", StatusClass(status)),
	}
	r.add(ctx, RequestsTotal, labels)
	if status >= 500 {
		r.add(ctx, RequestErrorsTotal, labels)
	}
}

// ObserveProcess counts one processing run for kind ("image", "video").
func (r *Registry) ObserveProcess(ctx context.Context, kind, outcome string) {
	r.add(ctx, ProcessedTotal, []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	})
}

// add is a no-op on a nil registry.
func (r *Registry) add(ctx context.Context, name string, labels []attribute.KeyValue) {
	if r == nil {
		return
	}

	key := seriesKey(name, labels)
	r.mu.RLock()
	c := r.series[key]
	r.mu.RUnlock()
	if c == nil {
		r.mu.Lock()
		if c = r.series[key]; c == nil {
			c = new(atomic.Int64)
			r.series[key] = c
		}
		r.mu.Unlock()
	}
	c.Add(1)

	if inst, ok := r.instruments[name]; ok {
		inst.Add(ctx, 1, metric.WithAttributes(labels...))
	}
}

// seriesKey renders name{k=v,...} with labels sorted by key.
func seriesKey(name string, labels []attribute.KeyValue) string {
	sorted := make([]attribute.KeyValue, len(labels))
	copy(sorted, labels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, kv := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(kv.Key))
		b.WriteByte('=')
		b.WriteString(kv.Value.Emit())
	}
	b.WriteByte('}')
	return b.String()
}

func (r *Registry) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	if r == nil {
		return out
	}
	r.mu.RLock()
	for k, v := range r.series {
		out[k] = v.Load()
	}
	r.mu.RUnlock()
	return out
}

// Handler serves the current counters as a JSON object.
func (r *Registry) Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(r.Snapshot())
}

// StatusClass buckets an HTTP status code as "2xx", "4xx" and so on.
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "0"
	}
}
