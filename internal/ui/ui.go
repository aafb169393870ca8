// Package ui defines the progress sink every stage reports through, with
// console and structured-log implementations.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// ANSI color codes.
const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	yellow  = "\033[33m"
	green   = "\033[32m"
	red     = "\033[31m"
	cyan    = "\033[36m"
	magenta = "\033[35m"
)

// UI receives progress from long-running stages. Stages report one
// StageProgress per item of their dominant loop, which is also where they
// check for cancellation.
type UI interface {
	StageStart(stage string, total int)
	StageProgress(stage string, done, total int, item string)
	StageDone(stage, summary string)
	Warn(msg string)
	Info(msg string)
	Error(msg string)
}

// Or returns u, or Nop when u is nil.
func Or(u UI) UI {
	if u == nil {
		return Nop{}
	}
	return u
}

// Nop discards everything.
type Nop struct{}

// StageStart does nothing.
func (Nop) StageStart(string, int) {}

// StageProgress does nothing.
func (Nop) StageProgress(string, int, int, string) {}

// StageDone does nothing.
func (Nop) StageDone(string, string) {}

// Warn does nothing.
func (Nop) Warn(string) {}

// Info does nothing.
func (Nop) Info(string) {}

// Error does nothing.
func (Nop) Error(string) {}

// Printer writes colored progress lines to stderr. Progress is printed at
// most once per ten percent so large stages stay readable.
type Printer struct {
	w        io.Writer
	lastTens map[string]int
}

// Verify Printer satisfies UI at compile time.
var _ UI = (*Printer)(nil)

// New returns a Printer writing to os.Stderr.
func New() *Printer {
	return NewWriter(os.Stderr)
}

// NewWriter returns a Printer writing to w.
func NewWriter(w io.Writer) *Printer {
	return &Printer{w: w, lastTens: make(map[string]int)}
}

// Banner prints the startup banner.
func (p *Printer) Banner() {
	fmt.Fprintln(p.w, bold+cyan+"  ╔═══════════════════════════════════╗"+reset)
	fmt.Fprintln(p.w, bold+cyan+"  ║"+reset+bold+"   WZPATCH  "+dim+"sound bank patcher "+reset+bold+cyan+"   ║"+reset)
	fmt.Fprintln(p.w, bold+cyan+"  ╚═══════════════════════════════════╝"+reset)
	fmt.Fprintln(p.w)
}

// StageStart prints a stage header.
func (p *Printer) StageStart(stage string, total int) {
	p.lastTens[stage] = -1
	if total > 0 {
		fmt.Fprintf(p.w, bold+magenta+"── %s ──"+reset+dim+" %d item(s)"+reset+"\n", stage, total)
		return
	}
	fmt.Fprintf(p.w, bold+magenta+"── %s ──"+reset+"\n", stage)
}

// StageProgress prints a progress line when a new ten percent step is reached.
func (p *Printer) StageProgress(stage string, done, total int, item string) {
	if total <= 0 {
		return
	}
	tens := done * 10 / total
	if last, ok := p.lastTens[stage]; ok && tens <= last && done != total {
		return
	}
	p.lastTens[stage] = tens
	fmt.Fprintf(p.w, dim+"  %3d%%"+reset+" %d/%d %s\n", done*100/total, done, total, item)
}

// StageDone prints the stage summary.
func (p *Printer) StageDone(stage, summary string) {
	delete(p.lastTens, stage)
	fmt.Fprintf(p.w, green+bold+"✓ %s"+reset+" %s\n", stage, summary)
}

// Warn prints a warning.
func (p *Printer) Warn(msg string) {
	fmt.Fprintf(p.w, yellow+bold+"⚠ "+reset+"%s\n", msg)
}

// Error prints an error.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, red+bold+"error: "+reset+"%s\n", msg)
}

// Info prints a dimmed informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintf(p.w, dim+"%s"+reset+"\n", msg)
}

// Cancelled reports that a stage stopped early on user request.
func (p *Printer) Cancelled(stage string) {
	fmt.Fprintf(p.w, red+bold+"✗ %s cancelled"+reset+", partial output kept\n", stage)
}

// List prints a titled, bulleted list. Nothing is printed for an empty list.
func (p *Printer) List(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(p.w, bold+"%s"+reset+" (%d)\n", title, len(items))
	for _, it := range items {
		fmt.Fprintf(p.w, "  "+dim+"•"+reset+" %s\n", it)
	}
}

// KeyValues prints aligned key/value pairs under a title.
func (p *Printer) KeyValues(title string, pairs [][2]string) {
	fmt.Fprintln(p.w, dim+title+":"+reset)
	width := 0
	for _, kv := range pairs {
		width = max(width, len(kv[0]))
	}
	for _, kv := range pairs {
		fmt.Fprintf(p.w, "  %s:%s %s\n", kv[0], strings.Repeat(" ", width-len(kv[0])), kv[1])
	}
}

// Size renders a byte count for humans, e.g. "1.5 MiB".
func Size(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
