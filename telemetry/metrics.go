// Package telemetry provides OpenTelemetry metrics for the engagement-sync
// subsystem: cache lookups, content-store operations, ledger calls, sync
// runs, and promotions.
package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	meterName = "github.com/driftlabs/oceanpost"
)

// MetricsConfig configures the metrics system.
type MetricsConfig struct {
	// ServiceName is the name of the service for resource attributes.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	// If empty, OTLP export is disabled.
	OTLPEndpoint string

	// EnablePrometheus enables the Prometheus /metrics endpoint.
	EnablePrometheus bool

	// FlushInterval is how often to export metrics (default: 10s).
	FlushInterval time.Duration
}

// Metrics holds the OpenTelemetry metric instruments.
type Metrics struct {
	cacheLookupsTotal  metric.Int64Counter
	cacheEntries       metric.Int64Gauge
	cacheBytes         metric.Int64Gauge
	storeOpsTotal      metric.Int64Counter
	storeOpDuration    metric.Float64Histogram
	storeBytesTotal    metric.Int64Counter
	ledgerCallsTotal   metric.Int64Counter
	ledgerCallDuration metric.Float64Histogram
	syncsTotal         metric.Int64Counter
	syncDuration       metric.Float64Histogram
	promotionsTotal    metric.Int64Counter

	meterProvider *sdkmetric.MeterProvider
	promHandler   http.Handler
}

var (
	globalMetrics *Metrics
	initOnce      sync.Once
	initErr       error
)

// InitMetrics initializes the OpenTelemetry metrics system.
// Returns a shutdown function that should be called on application exit.
// Uses sync.Once to ensure single initialisation; record helpers are
// no-ops until it has run.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (shutdown func(context.Context) error, err error) {
	initOnce.Do(func() {
		initErr = doInitMetrics(ctx, cfg)
	})

	if initErr != nil {
		return nil, initErr
	}

	return shutdownMetrics, nil
}

func doInitMetrics(ctx context.Context, cfg MetricsConfig) error {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "oceanpost"
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return err
	}

	var readers []sdkmetric.Reader
	var promHandler http.Handler

	if cfg.OTLPEndpoint != "" {
		otlpExporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(), // Use WithTLSCredentials for production
		)
		if err != nil {
			return err
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(otlpExporter,
			sdkmetric.WithInterval(cfg.FlushInterval),
		))
	}

	if cfg.EnablePrometheus {
		promExp, err := promexporter.New()
		if err != nil {
			return err
		}
		readers = append(readers, promExp)
		promHandler = promhttp.Handler()
	}

	// If no exporters configured, use a no-op periodic reader to still collect metrics
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewPeriodicReader(noopExporter{},
			sdkmetric.WithInterval(cfg.FlushInterval),
		))
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	meter := mp.Meter(meterName)

	cacheLookupsTotal, err := meter.Int64Counter(
		"oceanpost_cache_lookups_total",
		metric.WithDescription("Total content cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return err
	}

	cacheEntries, err := meter.Int64Gauge(
		"oceanpost_cache_entries",
		metric.WithDescription("Current number of cached payloads"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	cacheBytes, err := meter.Int64Gauge(
		"oceanpost_cache_bytes",
		metric.WithDescription("Approximate serialized size of cached payloads"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	storeOpsTotal, err := meter.Int64Counter(
		"oceanpost_store_ops_total",
		metric.WithDescription("Total content-store operations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	storeOpDuration, err := meter.Float64Histogram(
		"oceanpost_store_op_duration_seconds",
		metric.WithDescription("Duration of content-store operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return err
	}

	storeBytesTotal, err := meter.Int64Counter(
		"oceanpost_store_bytes_total",
		metric.WithDescription("Total bytes transferred to and from the content store"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	ledgerCallsTotal, err := meter.Int64Counter(
		"oceanpost_ledger_calls_total",
		metric.WithDescription("Total ledger calls by method and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	ledgerCallDuration, err := meter.Float64Histogram(
		"oceanpost_ledger_call_duration_seconds",
		metric.WithDescription("Duration of ledger calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60),
	)
	if err != nil {
		return err
	}

	syncsTotal, err := meter.Int64Counter(
		"oceanpost_syncs_total",
		metric.WithDescription("Total count-synchronization runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return err
	}

	syncDuration, err := meter.Float64Histogram(
		"oceanpost_sync_duration_seconds",
		metric.WithDescription("Duration of count-synchronization runs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60),
	)
	if err != nil {
		return err
	}

	promotionsTotal, err := meter.Int64Counter(
		"oceanpost_promotions_total",
		metric.WithDescription("Total promotion requests issued to the ledger"),
		metric.WithUnit("{promotion}"),
	)
	if err != nil {
		return err
	}

	globalMetrics = &Metrics{
		cacheLookupsTotal:  cacheLookupsTotal,
		cacheEntries:       cacheEntries,
		cacheBytes:         cacheBytes,
		storeOpsTotal:      storeOpsTotal,
		storeOpDuration:    storeOpDuration,
		storeBytesTotal:    storeBytesTotal,
		ledgerCallsTotal:   ledgerCallsTotal,
		ledgerCallDuration: ledgerCallDuration,
		syncsTotal:         syncsTotal,
		syncDuration:       syncDuration,
		promotionsTotal:    promotionsTotal,
		meterProvider:      mp,
		promHandler:        promHandler,
	}

	return nil
}

// shutdownMetrics shuts down the metrics provider and clears the global state.
func shutdownMetrics(ctx context.Context) error {
	if globalMetrics == nil {
		return nil
	}
	err := globalMetrics.meterProvider.Shutdown(ctx)
	globalMetrics = nil
	return err
}

// RecordCacheLookup records a content cache lookup.
// result is "hit", "miss", or "expired".
func RecordCacheLookup(ctx context.Context, result string) {
	if globalMetrics == nil {
		return
	}
	globalMetrics.cacheLookupsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)))
}

// UpdateCacheStats updates the cache size gauges.
func UpdateCacheStats(ctx context.Context, entries int, bytes int64) {
	if globalMetrics == nil {
		return
	}
	globalMetrics.cacheEntries.Record(ctx, int64(entries))
	globalMetrics.cacheBytes.Record(ctx, bytes)
}

// RecordStoreOp records a content-store operation.
func RecordStoreOp(ctx context.Context, store, op, outcome string, duration time.Duration, bytes int64) {
	if globalMetrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("store", store),
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	}
	globalMetrics.storeOpsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	globalMetrics.storeOpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if bytes > 0 {
		globalMetrics.storeBytesTotal.Add(ctx, bytes, metric.WithAttributes(attrs...))
	}
}

// RecordLedgerCall records a ledger call.
func RecordLedgerCall(ctx context.Context, method, outcome string, duration time.Duration) {
	if globalMetrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	}
	globalMetrics.ledgerCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	globalMetrics.ledgerCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSync records one count-synchronization run.
func RecordSync(ctx context.Context, outcome string, duration time.Duration) {
	if globalMetrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	globalMetrics.syncsTotal.Add(ctx, 1, attrs)
	globalMetrics.syncDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordPromotion records a promotion request issued to the ledger.
func RecordPromotion(ctx context.Context) {
	if globalMetrics == nil {
		return
	}
	globalMetrics.promotionsTotal.Add(ctx, 1)
}

// PrometheusHandler returns the Prometheus metrics HTTP handler.
// Returns a handler that returns 404 if Prometheus export is not enabled,
// allowing safe registration regardless of initialization order.
func PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if globalMetrics == nil || globalMetrics.promHandler == nil {
			http.NotFound(w, r)
			return
		}
		globalMetrics.promHandler.ServeHTTP(w, r)
	})
}

// noopExporter is a no-op metrics exporter for when no exporters are configured.
type noopExporter struct{}

func (noopExporter) Temporality(_ sdkmetric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func (noopExporter) Aggregation(_ sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return nil
}

func (noopExporter) Export(_ context.Context, _ *metricdata.ResourceMetrics) error {
	return nil
}

func (noopExporter) ForceFlush(_ context.Context) error {
	return nil
}

func (noopExporter) Shutdown(_ context.Context) error {
	return nil
}
