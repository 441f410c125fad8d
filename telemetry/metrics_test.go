package telemetry

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordHelpersAreNoopsBeforeInit(t *testing.T) {
	ctx := context.Background()

	// None of these should panic when metrics are uninitialised.
	RecordCacheLookup(ctx, "hit")
	UpdateCacheStats(ctx, 3, 1024)
	RecordStoreOp(ctx, "memory", "upload", "success", time.Millisecond, 42)
	RecordLedgerCall(ctx, "setContentPointer", "error", time.Second)
	RecordSync(ctx, "success", time.Second)
	RecordPromotion(ctx)
}

func TestPrometheusHandlerBeforeInit(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)

	PrometheusHandler().ServeHTTP(rec, req)
	require.Equal(t, 404, rec.Code)
}

func TestInitMetricsAndRecord(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitMetrics(ctx, MetricsConfig{
		ServiceName:      "oceanpost-test",
		EnablePrometheus: true,
	})
	require.NoError(t, err)
	defer func() { _ = shutdown(ctx) }()

	RecordCacheLookup(ctx, "miss")
	UpdateCacheStats(ctx, 1, 128)
	RecordStoreOp(ctx, "memory", "fetch", "success", 2*time.Millisecond, 256)
	RecordLedgerCall(ctx, "promote", "success", 50*time.Millisecond)
	RecordSync(ctx, "success", 120*time.Millisecond)
	RecordPromotion(ctx)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	PrometheusHandler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "oceanpost_cache_lookups_total")
}
