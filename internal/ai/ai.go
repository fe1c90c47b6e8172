package ai

import (
	"context"

	"github.com/thywilljoshua/scholar-refine/internal/intake"
)

// SegmentType is the provenance tag the model attaches to a span of the
// refined sentence.
type SegmentType string

const (
	SegmentOriginal SegmentType = "original"
	SegmentStyle    SegmentType = "style"
	SegmentSource   SegmentType = "source"
)

func (t SegmentType) Valid() bool {
	switch t {
	case SegmentOriginal, SegmentStyle, SegmentSource:
		return true
	}
	return false
}

// Segment is one contiguous span of the refined sentence. OriginalSource is
// only meaningful for source segments; Explanation never accompanies an
// original segment.
type Segment struct {
	Text           string      `json:"text"`
	Type           SegmentType `json:"type"`
	OriginalSource string      `json:"originalSource,omitempty"`
	Explanation    string      `json:"explanation,omitempty"`
}

// RefinementResult is the ordered segment list returned for one request.
// Concatenating every Text in order yields the refined sentence.
type RefinementResult struct {
	Segments []Segment `json:"segments"`
}

// Refiner turns a draft sentence plus reference PDFs into a tagged result.
// Implementations make exactly one outbound request per call.
type Refiner interface {
	Refine(ctx context.Context, docs []intake.Document, sentence, instruction string) (RefinementResult, error)
}

// Unavailable is used when no model could be configured; every call fails
// with a request error carrying Reason.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Refine(ctx context.Context, docs []intake.Document, sentence, instruction string) (RefinementResult, error) {
	return RefinementResult{}, &Error{Kind: KindRequest, Message: fallback(u.Reason)}
}
