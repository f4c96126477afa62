package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

const masked = "***"

func initLogging(w io.Writer, serviceName string, lp *sdklog.LoggerProvider, maskFields []string) {
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		AddSource:   true,
		ReplaceAttr: replaceAttr,
	})

	if lp != nil {
		handler = multiHandler{handler, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp))}
	}

	slog.SetDefault(slog.New(&contextHandler{
		next:        &maskHandler{next: handler, keys: MaskKeys(maskFields)},
		serviceName: serviceName,
	}))
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		_, rel, found := strings.Cut(src.File, "/internal/")
		if !found {
			return slog.Attr{}
		}
		return slog.String("file", fmt.Sprintf("internal/%s:%d", rel, src.Line))
	}
	return a
}

// contextHandler decorates records with request scoped identifiers.
type contextHandler struct {
	next        slog.Handler
	serviceName string
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cid := GetCorrelationID(ctx); cid != "" {
		r.AddAttrs(slog.String("correlation_id", cid))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if h.serviceName != "" {
		r.AddAttrs(slog.String("service", h.serviceName))
	}

	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), serviceName: h.serviceName}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), serviceName: h.serviceName}
}

type multiHandler []slog.Handler

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}

// maskHandler rewrites sensitive attributes before they reach any sink.
type maskHandler struct {
	next slog.Handler
	keys map[string]struct{}
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, r slog.Record) error {
	if len(h.keys) == 0 {
		return h.next.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(maskAttr(a, h.keys))
		return true
	})

	return h.next.Handle(ctx, out)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = maskAttr(a, h.keys)
	}
	return &maskHandler{next: h.next.WithAttrs(maskedAttrs), keys: h.keys}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{next: h.next.WithGroup(name), keys: h.keys}
}

// MaskKeys normalizes field names into a lookup set for Mask.
func MaskKeys(fields []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			keys[f] = struct{}{}
		}
	}
	return keys
}

// Mask walks decoded JSON (maps and slices) and replaces the value of every
// key found in keys, case-insensitively.
func Mask(v any, keys map[string]struct{}) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if _, hit := keys[strings.ToLower(k)]; hit {
				out[k] = masked
				continue
			}
			out[k] = Mask(inner, keys)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = inner
		}
		return Mask(out, keys)
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = Mask(inner, keys)
		}
		return out
	default:
		return v
	}
}

// MaskJSON masks a JSON document. It reports false when data is not JSON.
func MaskJSON(data []byte, keys map[string]struct{}) (string, bool) {
	if len(data) == 0 || (data[0] != '{' && data[0] != '[') {
		return "", false
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", false
	}

	out, err := json.Marshal(Mask(doc, keys))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func maskAttr(a slog.Attr, keys map[string]struct{}) slog.Attr {
	if _, hit := keys[strings.ToLower(a.Key)]; hit {
		return slog.String(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = maskAttr(g, keys)
		}
		a.Value = slog.GroupValue(out...)
	case slog.KindString:
		if s, ok := MaskJSON([]byte(a.Value.String()), keys); ok {
			a.Value = slog.StringValue(s)
		}
	case slog.KindAny:
		switch val := a.Value.Any().(type) {
		case map[string]any, map[string]string, []any:
			a.Value = slog.AnyValue(Mask(val, keys))
		case []byte:
			if s, ok := MaskJSON(val, keys); ok {
				a.Value = slog.StringValue(s)
			}
		}
	}

	return a
}
