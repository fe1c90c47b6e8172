package render

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiOrange = "\x1b[38;5;208m"
	ansiDim    = "\x1b[2m"
)

// WriteText prints the view for a terminal: the refined sentence with
// stylistic spans in green and sourced spans in orange, then the change list.
func WriteText(w io.Writer, v View, color bool) error {
	var b strings.Builder
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}

	b.WriteString("Refined:\n  ")
	for _, s := range v.Spans {
		switch s.Category {
		case Stylistic:
			b.WriteString(paint(ansiGreen, s.Text))
		case Sourced:
			b.WriteString(paint(ansiOrange, s.Text))
		default:
			b.WriteString(s.Text)
		}
	}
	fmt.Fprintf(&b, "\n\nChange details (%s):\n", v.ModsLabel)

	if v.Empty {
		fmt.Fprintf(&b, "  %s\n", paint(ansiDim, EmptyMessage))
	}
	for _, d := range v.Details {
		code := ansiGreen
		if d.Category == Sourced {
			code = ansiOrange
		}
		fmt.Fprintf(&b, "  [%s] %q\n", paint(code, d.Label), d.Text)
		if d.Explanation != "" {
			fmt.Fprintf(&b, "      why: %s\n", d.Explanation)
		}
		if d.Quote != "" {
			fmt.Fprintf(&b, "      reference in PDF: %q\n", d.Quote)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
