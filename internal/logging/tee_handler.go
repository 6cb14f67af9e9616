package logging

import (
	"context"
	"log/slog"
)

// teeHandler delivers each record to every handler whose level accepts it.
// Records are stamped with the episode and run ids carried by the context
// unless the logger or the record already sets them.
type teeHandler struct {
	handlers []slog.Handler
	bound    map[string]bool
}

// TeeHandler duplicates output to handlers. Nil handlers are skipped.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	filtered := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 0 {
		return NoopHandler{}
	}
	return &teeHandler{handlers: filtered}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	if missing := h.contextAttrs(ctx, record); len(missing) > 0 {
		record = record.Clone()
		record.AddAttrs(missing...)
	}
	var firstErr error
	for idx, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if idx < len(h.handlers)-1 {
			rec = record.Clone()
		}
		if err := handler.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) contextAttrs(ctx context.Context, record slog.Record) []slog.Attr {
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return nil
	}
	present := map[string]bool{}
	record.Attrs(func(attr slog.Attr) bool {
		present[attr.Key] = true
		return true
	})
	missing := fields[:0]
	for _, field := range fields {
		if !h.bound[field.Key] && !present[field.Key] {
			missing = append(missing, field)
		}
	}
	return missing
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &teeHandler{
		handlers: make([]slog.Handler, len(h.handlers)),
		bound:    make(map[string]bool, len(h.bound)+len(attrs)),
	}
	for key := range h.bound {
		next.bound[key] = true
	}
	for _, attr := range attrs {
		next.bound[attr.Key] = true
	}
	for i, handler := range h.handlers {
		next.handlers[i] = handler.WithAttrs(attrs)
	}
	return next
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := &teeHandler{handlers: make([]slog.Handler, len(h.handlers)), bound: h.bound}
	for i, handler := range h.handlers {
		next.handlers[i] = handler.WithGroup(name)
	}
	return next
}
