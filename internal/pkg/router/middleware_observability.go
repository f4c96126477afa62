package router

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBodyBytes = 32 * 1024

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
	capped bool
	err    error
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	if room := maxLoggedBodyBytes - w.body.Len(); room > 0 {
		w.body.Write(p[:min(len(p), room)])
		w.capped = w.capped || len(p) > room
	} else if len(p) > 0 {
		w.capped = true
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *statusRecorder) SetError(err error) { w.err = err }

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// loggableBody returns masked JSON, plain text, or a placeholder for binary data.
func loggableBody(body []byte, capped bool, keys map[string]struct{}) any {
	if len(body) == 0 {
		return nil
	}
	if masked, ok := instrument.MaskJSON(body, keys); ok {
		return masked
	}
	if !utf8.Valid(body) {
		return "<binary body omitted>"
	}
	if capped {
		return string(body) + "...(truncated)"
	}
	return string(body)
}

// peekBody reads up to maxLoggedBodyBytes and restores r.Body for the handler.
func peekBody(r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}

	//nolint:errcheck // best effort for logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	if len(head) > maxLoggedBodyBytes {
		return head[:maxLoggedBodyBytes], true
	}
	return head, false
}

func maskedHeaders(h http.Header, keys map[string]struct{}) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	masked, _ := instrument.Mask(out, keys).(map[string]any)
	return masked
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	var keys map[string]struct{}
	if cfg != nil {
		keys = instrument.MaskKeys(cfg.GetArray("instrument.mask_fields"))
	}

	tracer := ins.Tracer("http.server")
	meter := ins.Meter("http.server")

	requests, err := meter.Int64Counter("http.server.requests", metric.WithDescription("Number of HTTP requests received"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	duration, err := meter.Float64Histogram("http.server.duration", metric.WithDescription("HTTP request duration in milliseconds"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			start := time.Now()

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
				),
			)
			defer span.End()

			reqBody, reqCapped := peekBody(r)
			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"remote_addr", r.RemoteAddr,
				"headers", maskedHeaders(r.Header, keys),
				"body", loggableBody(reqBody, reqCapped, keys),
			)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.Status()
			elapsed := time.Since(start)
			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}

			if rec.err != nil {
				span.RecordError(rec.err)
			}
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			span.SetAttributes(attrs...)

			if requests != nil {
				requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if duration != nil {
				duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attrs...))
			}

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"status", status,
				"bytes", rec.bytes,
				"latency_ms", elapsed.Milliseconds(),
				"body", loggableBody(rec.body.Bytes(), rec.capped, keys),
			)
		})
	}
}
