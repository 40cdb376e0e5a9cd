package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/reclaim/pkg/metrics"
	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

const meterName = "github.com/ajitpratap0/reclaim"

// metricsServer serves the pool registry in the Prometheus text format.
type metricsServer struct {
	server   *http.Server
	listener net.Listener
	done     chan error
}

func startMetricsServer(addr string, registry *metrics.Registry, logger *zap.Logger) (*metricsServer, error) {
	// The default gatherer carries the Go and process collectors and the
	// frame throughput gauge.
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewPoolCollector(registry))
	gatherers := prometheus.Gatherers{reg, prometheus.DefaultGatherer}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeConfig, "failed to listen for metrics").
			WithDetail("addr", addr)
	}
	s := &metricsServer{
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		listener: ln,
		done:     make(chan error, 1),
	}
	go func() {
		err := s.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return s, nil
}

func (s *metricsServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *metricsServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}

// telemetry exports traces and pool metrics as JSON to a writer through the
// OpenTelemetry SDK.
type telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registration   metric.Registration
}

func startTelemetry(w io.Writer, registry *metrics.Registry, interval time.Duration) (*telemetry, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", "reclaim"),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeInternal, "failed to build telemetry resource")
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeInternal, "failed to create trace exporter")
	}
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeInternal, "failed to create metric exporter")
	}

	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := &telemetry{
		tracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(traceExporter),
		),
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		),
	}
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetMeterProvider(t.meterProvider)

	t.registration, err = metrics.RegisterOTel(t.meterProvider.Meter(meterName), registry)
	if err != nil {
		_ = t.Shutdown(context.Background())
		return nil, err
	}
	return t, nil
}

// Shutdown flushes pending spans and a final metric collection.
func (t *telemetry) Shutdown(ctx context.Context) error {
	errs := []error{t.meterProvider.ForceFlush(ctx)}
	if t.registration != nil {
		errs = append(errs, t.registration.Unregister())
	}
	errs = append(errs, t.meterProvider.Shutdown(ctx), t.tracerProvider.Shutdown(ctx))
	return errors.Join(errs...)
}
