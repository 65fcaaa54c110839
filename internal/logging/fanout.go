package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Route pairs a handler with the lowest level it should receive.
type Route struct {
	Handler slog.Handler
	Min     slog.Leveler
}

// Fanout copies each record to every route whose minimum level it meets.
// Route levels are authoritative: a handler's own Enabled is not asked, so
// the database sink stays at ERROR even when the console runs at DEBUG.
type Fanout struct {
	routes []Route
}

func NewFanout(routes ...Route) *Fanout {
	kept := make([]Route, 0, len(routes))
	for _, r := range routes {
		if r.Handler == nil {
			continue
		}
		if r.Min == nil {
			r.Min = slog.LevelInfo
		}
		kept = append(kept, r)
	}
	return &Fanout{routes: kept}
}

func (f *Fanout) Enabled(_ context.Context, level slog.Level) bool {
	for _, r := range f.routes {
		if level >= r.Min.Level() {
			return true
		}
	}
	return false
}

// Handle delivers to all matching routes and joins their errors, so a
// failing sink does not starve the ones after it.
func (f *Fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, r := range f.routes {
		if record.Level < r.Min.Level() {
			continue
		}
		if err := r.Handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	routes := make([]Route, len(f.routes))
	for i, r := range f.routes {
		routes[i] = Route{Handler: fn(r.Handler), Min: r.Min}
	}
	return &Fanout{routes: routes}
}
