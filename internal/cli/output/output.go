// Package output renders command results as text tables, markdown, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects how results are written.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
)

// Modes lists the accepted --output values.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON), string(ModeYAML)}
}

// ParseMode validates a mode name. Empty means auto.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModeAuto, nil
	case "md":
		return ModeMarkdown, nil
	case "yml":
		return ModeYAML, nil
	case ModeAuto, ModeText, ModeMarkdown, ModeJSON, ModeYAML:
		return m, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected one of %s)", s, strings.Join(Modes(), ", "))
	}
}

// Renderer writes results and status lines.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   Mode
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal flag.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	return &Renderer{out: out, errOut: errOut, isTTY: isTTY, mode: mode}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mode returns the effective mode. Auto resolves to text on a terminal
// and markdown otherwise.
func (r *Renderer) Mode() Mode {
	if r.mode == ModeAuto || r.mode == "" {
		if r.isTTY {
			return ModeText
		}
		return ModeMarkdown
	}
	return r.mode
}

// Out returns the result writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Status writes a progress line to the error stream. Safe for concurrent use.
func (r *Renderer) Status(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.errOut, format+"\n", args...)
}

// Println writes a line to the result stream.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Table holds tabular results.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// Render writes the table in text or markdown mode, or data in JSON/YAML mode.
func (r *Renderer) Render(t Table, data any) error {
	switch r.Mode() {
	case ModeJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case ModeYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case ModeMarkdown:
		if t.Title != "" {
			_, _ = fmt.Fprintf(r.out, "## %s\n\n", t.Title)
		}
		if len(t.Rows) == 0 {
			_, _ = fmt.Fprintln(r.out, "(0 rows)")
			return nil
		}
		_, _ = fmt.Fprintln(r.out, newWriter(t).RenderMarkdown())
		return nil
	default:
		if len(t.Rows) == 0 {
			if t.Title != "" {
				_, _ = fmt.Fprintln(r.out, t.Title)
			}
			_, _ = fmt.Fprintln(r.out, "(0 rows)")
			return nil
		}
		w := newWriter(t)
		w.SetOutputMirror(r.out)
		w.SetStyle(table.StyleLight)
		if t.Title != "" {
			w.SetTitle(t.Title)
		}
		w.Render()
		return nil
	}
}

func newWriter(t Table) table.Writer {
	w := table.NewWriter()
	header := make(table.Row, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	w.AppendHeader(header)
	for _, row := range t.Rows {
		w.AppendRow(table.Row(row))
	}
	return w
}
