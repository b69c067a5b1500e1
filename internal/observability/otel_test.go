package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/tbourn/go-request-storage/internal/config"
)

func restoreSeams(t *testing.T) {
	t.Helper()
	origExporter := newOTLPExporterFn
	origResource := newServiceResourceFn
	t.Cleanup(func() {
		newOTLPExporterFn = origExporter
		newServiceResourceFn = origResource
	})
}

func TestSetupOTel_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("expected a shutdown func even when disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_ExporterErrorPropagates(t *testing.T) {
	restoreSeams(t)
	boom := errors.New("exporter down")
	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, boom
	}

	cfg := config.OTELConfig{Enabled: true, Endpoint: "localhost:4317", Insecure: true, SampleRatio: 1}
	if _, err := SetupOTel(context.Background(), cfg, "test"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want exporter failure", err)
	}
}

func TestSetupOTel_ResourceErrorPropagates(t *testing.T) {
	restoreSeams(t)
	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, nil
	}
	boom := errors.New("resource build failed")
	newServiceResourceFn = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return nil, boom
	}

	cfg := config.OTELConfig{Enabled: true, Endpoint: "localhost:4317", Insecure: true, SampleRatio: 1}
	if _, err := SetupOTel(context.Background(), cfg, "test"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want resource failure", err)
	}
}
