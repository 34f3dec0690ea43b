package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Transcript collects the human readable lines of one run so they can be shipped to the
// operator at the end. Safe for concurrent use.
type Transcript struct {
	mu    sync.Mutex
	lines []string
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(line string) {
	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
}

// Flush returns the collected lines and empties the transcript.
func (t *Transcript) Flush() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.lines
	t.lines = nil
	return out
}

// Reset drops anything collected so far.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.lines = nil
	t.mu.Unlock()
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines)
}

// Logger returns a logger that writes through base and also records into t. Only loggers
// derived from it feed the transcript, base itself stays untouched.
func (t *Transcript) Logger(base *slog.Logger) *slog.Logger {
	return slog.New(t.Handler(base.Handler()))
}

// Handler wraps next so that records at info level or above are also appended to t.
func (t *Transcript) Handler(next slog.Handler) slog.Handler {
	return &teeHandler{t: t, next: next}
}

type teeHandler struct {
	t      *Transcript
	next   slog.Handler
	attrs  []slog.Attr
	groups []string
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || h.next.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		h.t.Append(h.render(r))
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefixed := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		prefixed = append(prefixed, h.qualify(a))
	}
	return &teeHandler{
		t:      h.t,
		next:   h.next.WithAttrs(attrs),
		attrs:  append(append([]slog.Attr(nil), h.attrs...), prefixed...),
		groups: h.groups,
	}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &teeHandler{
		t:      h.t,
		next:   h.next.WithGroup(name),
		attrs:  h.attrs,
		groups: append(append([]string(nil), h.groups...), name),
	}
}

func (h *teeHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	return slog.Attr{Key: strings.Join(h.groups, ".") + "." + a.Key, Value: a.Value}
}

// render formats a record as "<prefix>msg key=value ...".
func (h *teeHandler) render(r slog.Record) string {
	var b strings.Builder
	switch {
	case r.Level >= slog.LevelError:
		b.WriteString("❌ ")
	case r.Level >= slog.LevelWarn:
		b.WriteString("⚠️ ")
	}
	b.WriteString(r.Message)

	write := func(a slog.Attr) {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			return
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(h.qualify(a))
		return true
	})
	return b.String()
}
