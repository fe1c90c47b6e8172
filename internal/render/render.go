// Package render turns a RefinementResult into the reconstructed sentence and
// the change-detail list, with a single active segment shared by both.
package render

import (
	"fmt"
	"strings"

	"github.com/thywilljoshua/scholar-refine/internal/ai"
)

// Category is the visual treatment of a segment.
type Category string

const (
	Unchanged Category = "unchanged"
	Stylistic Category = "stylistic"
	Sourced   Category = "source"
)

// EmptyMessage is shown instead of an empty detail list.
const EmptyMessage = "No significant changes were made to the sentence."

func CategoryOf(t ai.SegmentType) Category {
	switch t {
	case ai.SegmentStyle:
		return Stylistic
	case ai.SegmentSource:
		return Sourced
	default:
		return Unchanged
	}
}

// Span is one segment of the reconstructed sentence. Index is the segment's
// position in the result and is the identity used for highlighting.
type Span struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	Category Category `json:"category"`
	Active   bool     `json:"active,omitempty"`
}

// Detail is an entry of the change list; only non-original segments get one.
type Detail struct {
	Index       int      `json:"index"`
	Text        string   `json:"text"`
	Category    Category `json:"category"`
	Label       string   `json:"label"`
	Explanation string   `json:"explanation,omitempty"`
	Quote       string   `json:"quote,omitempty"`
	Active      bool     `json:"active,omitempty"`
}

type View struct {
	Sentence  string   `json:"sentence"`
	Spans     []Span   `json:"spans"`
	Details   []Detail `json:"details"`
	Empty     bool     `json:"empty"`
	ModsLabel string   `json:"modsLabel"`
	// Active is the highlighted segment index, or -1.
	Active int `json:"active"`
}

// Reconstruct concatenates the segment texts in order.
func Reconstruct(res ai.RefinementResult) string {
	var b strings.Builder
	for _, s := range res.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

func Build(res ai.RefinementResult) View {
	v := View{
		Sentence: Reconstruct(res),
		Spans:    make([]Span, 0, len(res.Segments)),
		Active:   -1,
	}
	for i, s := range res.Segments {
		cat := CategoryOf(s.Type)
		v.Spans = append(v.Spans, Span{Index: i, Text: s.Text, Category: cat})
		if cat == Unchanged {
			continue
		}
		d := Detail{
			Index:       i,
			Text:        s.Text,
			Category:    cat,
			Label:       "Stylistic",
			Explanation: s.Explanation,
		}
		if cat == Sourced {
			d.Label = "Based on PDF"
			d.Quote = s.OriginalSource
		}
		v.Details = append(v.Details, d)
	}
	v.Empty = len(v.Details) == 0
	v.ModsLabel = modsLabel(len(v.Details))
	return v
}

// Activate returns a copy of v with segment i highlighted in both the
// sentence and the detail list. Unchanged segments cannot be active; any
// index that does not name a change clears the highlight.
func (v View) Activate(i int) View {
	out := v
	out.Spans = make([]Span, len(v.Spans))
	out.Details = make([]Detail, len(v.Details))
	out.Active = -1

	found := false
	for _, d := range v.Details {
		if d.Index == i {
			found = true
			break
		}
	}
	if found {
		out.Active = i
	}
	for k, s := range v.Spans {
		s.Active = found && s.Index == i
		out.Spans[k] = s
	}
	for k, d := range v.Details {
		d.Active = found && d.Index == i
		out.Details[k] = d
	}
	return out
}

func modsLabel(n int) string {
	if n == 1 {
		return "1 mod"
	}
	return fmt.Sprintf("%d mods", n)
}
