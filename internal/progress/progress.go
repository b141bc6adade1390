// Package progress reports how far each measurement export has got.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Reporter starts a Tracker per measurement.
type Reporter interface {
	Begin(name string, total int64) Tracker
}

// Tracker receives the running position of one measurement.
// Positions are monotonically non-decreasing.
type Tracker interface {
	Set(pos int64)
	Finish()
}

// ── No-op ──────────────────────────────────────────────────

type nopReporter struct{}

type nopTracker struct{}

// Nop returns a Reporter that discards everything.
func Nop() Reporter { return nopReporter{} }

func (nopReporter) Begin(string, int64) Tracker { return nopTracker{} }
func (nopTracker) Set(int64)                    {}
func (nopTracker) Finish()                      {}

// ── Terminal bar ───────────────────────────────────────────

const (
	defaultBarWidth = 30
	minBarWidth     = 10
)

// BarReporter draws a single-line bar, redrawn in place with \r.
type BarReporter struct {
	w     io.Writer
	width int
}

// NewBarReporter draws bars of the given width (cells) to w.
func NewBarReporter(w io.Writer, width int) *BarReporter {
	if width < minBarWidth {
		width = defaultBarWidth
	}
	return &BarReporter{w: w, width: width}
}

func (r *BarReporter) Begin(name string, total int64) Tracker {
	t := &barTracker{w: r.w, width: r.width, name: name, total: total}
	t.draw()
	return t
}

type barTracker struct {
	w     io.Writer
	width int
	name  string
	total int64
	pos   int64
}

func (t *barTracker) Set(pos int64) {
	if pos < t.pos {
		return
	}
	t.pos = pos
	t.draw()
}

func (t *barTracker) Finish() {
	t.draw()
	fmt.Fprintln(t.w)
}

func (t *barTracker) draw() {
	fmt.Fprintf(t.w, "\r%s", Render(t.name, t.pos, t.total, t.width))
}

// Render formats one bar line: `name [#####-----] 50/100 50%`.
func Render(name string, pos, total int64, width int) string {
	frac := 1.0
	if total > 0 {
		frac = float64(pos) / float64(total)
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))
	return fmt.Sprintf("%s [%s%s] %d/%d %3.0f%%",
		name,
		strings.Repeat("#", filled),
		strings.Repeat("-", width-filled),
		pos, total, frac*100,
	)
}

// ── Log lines ──────────────────────────────────────────────

// LogReporter emits debug lines only; the exporter logs the outcome.
// Used when stderr is not a terminal.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter reports through logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Begin(name string, total int64) Tracker {
	return &logTracker{logger: r.logger.With("measurement", name), total: total}
}

type logTracker struct {
	logger *slog.Logger
	total  int64
	pos    int64
}

func (t *logTracker) Set(pos int64) {
	if pos < t.pos {
		return
	}
	t.pos = pos
	t.logger.Debug("export progress", "rows", pos, "total", t.total)
}

func (t *logTracker) Finish() {
	t.logger.Debug("export finished", "rows", t.pos, "total", t.total)
}

// ── Selection ──────────────────────────────────────────────

// Auto draws a bar on f when it is a terminal and falls back to log lines otherwise.
func Auto(f *os.File, logger *slog.Logger) Reporter {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return NewLogReporter(logger)
	}
	width := defaultBarWidth
	if cols, _, err := term.GetSize(fd); err == nil {
		// leave room for the name and counters
		width = cols / 3
	}
	return NewBarReporter(f, width)
}
