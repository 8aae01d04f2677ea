package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// consoleHidden lists attribute keys kept out of console lines. They remain in
// the structured file log.
var consoleHidden = map[string]bool{
	"intention": true,
	"time":      true,
	"level":     true,
	"msg":       true,
	"component": true,
	"trace":     true,
}

// plainHandler prints the message (prefixed by the intention icon) followed by
// key=value pairs, without time/level decorations. Intended for clean console output.
type plainHandler struct {
	w       io.Writer
	attrs   []slog.Attr
	mu      *sync.Mutex
	leveler slog.Leveler
}

func newPlainHandler(w io.Writer, leveler slog.Leveler) slog.Handler {
	return &plainHandler{w: w, leveler: leveler, mu: &sync.Mutex{}}
}

// Enabled implements slog.Handler by checking level
func (h *plainHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	if h.leveler == nil {
		return true
	}
	return lvl >= h.leveler.Level()
}

// Handle renders one line: icon + message + visible attributes
func (h *plainHandler) Handle(_ context.Context, r slog.Record) error {
	all := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, a)
		return true
	})

	var (
		intention string
		pairs     strings.Builder
	)
	for _, a := range flatten(all) {
		if a.Key == "intention" {
			intention = a.Value.String()
		}
		if consoleHidden[a.Key] {
			continue
		}
		fmt.Fprintf(&pairs, " %s=%v", a.Key, a.Value)
	}

	var line strings.Builder
	if intention != "" {
		line.WriteString(iconFor(Intention(intention)))
		line.WriteByte(' ')
	}
	if r.Level >= slog.LevelWarn {
		line.WriteString(r.Level.String())
		line.WriteString(": ")
	}
	line.WriteString(r.Message)
	line.WriteString(pairs.String())

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, line.String())
	return err
}

// flatten expands group attributes one level, which is all the console needs
func flatten(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Value.Kind() == slog.KindGroup {
			out = append(out, a.Value.Group()...)
			continue
		}
		out = append(out, a)
	}
	return out
}

// WithAttrs returns a new handler with additional attributes bound
func (h *plainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup groups attributes; for plain output we encode as a group attr
func (h *plainHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), slog.Group(name))
	return &nh
}
