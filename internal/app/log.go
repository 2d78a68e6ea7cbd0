package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// logFileName is the operation log inside the configured log directory.
const logFileName = "evault.log"

// lineHandler writes one tab-separated line per record:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Values carrying whitespace, control bytes or invalid UTF-8 are Go-quoted so a
// hostile case id or file name cannot forge extra fields or lines.
type lineHandler struct {
	w     io.Writer
	opID  string
	level slog.Level
	attrs []slog.Attr
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var line bytes.Buffer
	line.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05Z"))
	for _, field := range []string{r.Level.String(), h.opID, r.Message} {
		line.WriteByte('\t')
		line.WriteString(field)
	}

	for _, a := range h.attrs {
		writeAttr(&line, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&line, a)
		return true
	})
	line.WriteByte('\n')

	// One Write per record keeps lines whole when several processes share the file.
	_, err := h.w.Write(line.Bytes())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *lineHandler) WithGroup(string) slog.Handler { return h }

func writeAttr(buf *bytes.Buffer, a slog.Attr) {
	v := a.Value.Resolve().String()
	if needsQuote(v) {
		v = strconv.Quote(v)
	}
	buf.WriteByte('\t')
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(v)
}

func needsQuote(s string) bool {
	if !utf8.ValidString(s) {
		return true
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '"' {
			return true
		}
	}
	return false
}

// newLogger opens <logDir>/evault.log for appending and returns a logger that
// mirrors every line at Info and above to console. The caller closes the file.
func newLogger(logDir string, opID string, console io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	h := &lineHandler{w: io.MultiWriter(f, console), opID: opID, level: slog.LevelInfo}
	return slog.New(h), f, nil
}

// slogAdapter satisfies evidence.Logger.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
