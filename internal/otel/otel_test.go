package otel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		otel.SetMeterProvider(noop.NewMeterProvider())
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
	})
}

func TestSetupOTelSDKDisabled(t *testing.T) {
	resetGlobals(t)
	ctx := context.Background()

	shutdown, err := SetupOTelSDK(ctx, "versionstamp", Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	// Calling shutdown twice is harmless.
	assert.NoError(t, shutdown(ctx))
}

func TestSetupOTelSDKWritesTextfile(t *testing.T) {
	resetGlobals(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "versionstamp.prom")

	shutdown, err := SetupOTelSDK(ctx, "versionstamp", Config{Textfile: path})
	require.NoError(t, err)

	counter, err := otel.GetMeterProvider().Meter("versionstamp/test").Int64Counter("versionstamp.runs")
	require.NoError(t, err)
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "written")))

	require.NoError(t, shutdown(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "versionstamp_runs")
	assert.Contains(t, string(data), `outcome="written"`)
}

func TestSetupOTelSDKTextfileUnwritable(t *testing.T) {
	resetGlobals(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "missing", "dir", "versionstamp.prom")

	shutdown, err := SetupOTelSDK(ctx, "versionstamp", Config{Textfile: path})
	require.NoError(t, err)

	err = shutdown(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing metrics textfile")
	assert.Contains(t, fmt.Sprintf("%+v", err), "otel.SetupOTelSDK")
}

func TestSetupOTelSDKInsecureExportsOverHTTP(t *testing.T) {
	resetGlobals(t)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", srv.URL)

	shutdown, err := SetupOTelSDK(ctx, "versionstamp", Config{Enabled: true, Insecure: true})
	require.NoError(t, err)

	counter, err := otel.GetMeterProvider().Meter("versionstamp/test").Int64Counter("versionstamp.runs")
	require.NoError(t, err)
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "written")))

	require.NoError(t, shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, paths, "/v1/metrics")
}
