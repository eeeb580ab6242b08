// Package output renders CLI results: human-readable result listings
// when stdout is a terminal, JSON when piped or requested.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/kasane-search/kasane/internal/search"
)

// Format selects the rendering style.
type Format string

const (
	// FormatText renders a human-readable listing.
	FormatText Format = "text"
	// FormatJSON renders the full response as indented JSON.
	FormatJSON Format = "json"
)

// Writer renders search responses and status messages.
type Writer struct {
	out      io.Writer
	useColor bool
}

// New creates a Writer. Color is enabled only when out is a terminal
// and NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return &Writer{
		out:      out,
		useColor: isTerminal(out) && !noColor(),
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

func noColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DefaultFormat returns JSON when stdout is piped, text otherwise.
func DefaultFormat() Format {
	if isTerminal(os.Stdout) {
		return FormatText
	}
	return FormatJSON
}

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
	colorCyan  = "\033[36m"
)

func (w *Writer) paint(color, s string) string {
	if !w.useColor {
		return s
	}
	return color + s + colorReset
}

// Response renders a search response in the given format.
func (w *Writer) Response(resp *search.Response, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Total == 0 {
		_, _ = fmt.Fprintf(w.out, "No results for %q (%s mode)\n", resp.Query, resp.Mode)
		return nil
	}

	_, _ = fmt.Fprintf(w.out, "%s  %s\n",
		w.paint(colorBold, fmt.Sprintf("%d result(s)", resp.Total)),
		w.paint(colorDim, fmt.Sprintf("query=%q mode=%s", resp.Query, resp.Mode)))

	for i, r := range resp.Results {
		title := r.DocID
		if r.Meta != nil && r.Meta.Title != "" {
			title = fmt.Sprintf("%s  %s", r.DocID, r.Meta.Title)
		}
		_, _ = fmt.Fprintf(w.out, "%2d. %s  %s\n",
			i+1,
			w.paint(colorCyan, title),
			w.paint(colorDim, fmt.Sprintf("score=%.4f source=%s", r.Score, r.Source)))

		detail := fmt.Sprintf("sparse=%.4f dense=%.4f", r.SparseScore, r.DenseScore)
		if len(r.MatchedTerms) > 0 {
			detail += " terms=" + strings.Join(r.MatchedTerms, ",")
		}
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.paint(colorDim, detail))
	}
	return nil
}

// Statusf prints a status line. Write errors are ignored for console
// output.
func (w *Writer) Statusf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Errorf prints an error line.
func (w *Writer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, "error: "+format+"\n", args...)
}

// JSON renders any value as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
