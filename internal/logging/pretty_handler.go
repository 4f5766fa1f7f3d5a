package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders "ts LEVEL component/stage: msg [file:line] key=value".
// Component and stage move into the prefix; everything else trails the message.
type consoleHandler struct {
	out       *lockedWriter
	level     *slog.LevelVar
	addSource bool

	component string
	stage     string
	groups    string
	attrs     []byte
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(p []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := lw.w.Write(p)
	return err
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	// Record attrs go into a copy so the handler stays reusable.
	rec := *h
	rec.attrs = append(make([]byte, 0, len(h.attrs)+64), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		rec.collect(rec.groups, attr)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf := make([]byte, 0, 128+len(rec.attrs))
	buf = ts.UTC().AppendFormat(buf, time.RFC3339)
	buf = append(buf, ' ')
	buf = append(buf, levelLabel(record.Level)...)
	buf = append(buf, ' ')
	if prefix := rec.prefix(); prefix != "" {
		buf = append(buf, prefix...)
		buf = append(buf, ": "...)
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf = append(buf, msg...)
	} else {
		buf = append(buf, "(no message)"...)
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			buf = append(buf, " ["...)
			buf = append(buf, filepath.Base(src.File)...)
			buf = append(buf, ':')
			buf = strconv.AppendInt(buf, int64(src.Line), 10)
			buf = append(buf, ']')
		}
	}
	buf = append(buf, rec.attrs...)
	buf = append(buf, '\n')
	return h.out.write(buf)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]byte(nil), h.attrs...)
	for _, attr := range attrs {
		clone.collect(clone.groups, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = h.groups + name + "."
	return &clone
}

func (h *consoleHandler) prefix() string {
	switch {
	case h.component != "" && h.stage != "":
		return h.component + "/" + h.stage
	case h.component != "":
		return h.component
	default:
		return h.stage
	}
}

// collect appends attr to the pending key=value text, or lifts it into the
// prefix when it names the component or stage at the top level.
func (h *consoleHandler) collect(groups string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		nested := groups
		if attr.Key != "" {
			nested = groups + attr.Key + "."
		}
		for _, child := range attr.Value.Group() {
			h.collect(nested, child)
		}
		return
	}
	if attr.Key == "" {
		return
	}
	if groups == "" {
		switch attr.Key {
		case FieldComponent:
			if h.component == "" {
				h.component = plainString(attr.Value)
			}
			return
		case FieldStage:
			h.stage = plainString(attr.Value)
			return
		}
	}
	h.attrs = append(h.attrs, ' ')
	h.attrs = append(h.attrs, groups...)
	h.attrs = append(h.attrs, attr.Key...)
	h.attrs = append(h.attrs, '=')
	h.attrs = appendValue(h.attrs, attr.Value)
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
