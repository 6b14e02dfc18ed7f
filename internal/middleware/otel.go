package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"zapcatalog/internal/infrastructure"
)

// Telemetry starts a server span for each request and records the request
// duration histogram, tagged by method, route pattern and status code. A nil
// tracer skips the span; nil metrics skip the histogram.
func Telemetry(tracer trace.Tracer, metrics *infrastructure.AppMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			span := trace.SpanFromContext(ctx)
			if tracer != nil {
				ctx, span = tracer.Start(ctx, r.Method+" "+r.URL.Path,
					trace.WithSpanKind(trace.SpanKindServer),
					trace.WithAttributes(
						semconv.HTTPRequestMethodKey.String(r.Method),
						semconv.URLPathKey.String(r.URL.Path),
						semconv.ServerAddressKey.String(r.Host),
					),
				)
				defer span.End()
				ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
			}
			r = r.WithContext(ctx)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			duration := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			if metrics != nil && metrics.RequestDuration != nil {
				metrics.RequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("route", routePattern(r)),
					attribute.Int("status_code", status),
				))
			}

			span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(status))
			if status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}

// routePattern prefers the chi route pattern over the raw path so metrics
// stay low-cardinality across product IDs and tokens.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
