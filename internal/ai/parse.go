package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type wireSegment struct {
	Text           *string     `json:"text"`
	Type           SegmentType `json:"type"`
	OriginalSource string      `json:"originalSource"`
	Explanation    string      `json:"explanation"`
}

type wireResult struct {
	Segments *[]wireSegment `json:"segments"`
}

// ParseResult decodes the model's text into a RefinementResult. There is no
// partial result: an empty body or any shape violation fails the whole call.
func ParseResult(text string) (RefinementResult, error) {
	if strings.TrimSpace(text) == "" {
		return RefinementResult{}, &Error{Kind: KindNoResponse, Message: msgNoResponse}
	}

	dec := json.NewDecoder(strings.NewReader(stripCodeFences(text)))
	var w wireResult
	if err := dec.Decode(&w); err != nil {
		return RefinementResult{}, parseError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return RefinementResult{}, parseError(errors.New("unexpected data after the JSON object"))
	}
	if w.Segments == nil {
		return RefinementResult{}, parseError(fmt.Errorf("missing segments array"))
	}

	out := RefinementResult{Segments: make([]Segment, 0, len(*w.Segments))}
	for i, s := range *w.Segments {
		if s.Text == nil {
			return RefinementResult{}, parseError(fmt.Errorf("segment %d: missing text", i))
		}
		if !s.Type.Valid() {
			return RefinementResult{}, parseError(fmt.Errorf("segment %d: unknown type %q", i, s.Type))
		}
		out.Segments = append(out.Segments, Segment{
			Text:           *s.Text,
			Type:           s.Type,
			OriginalSource: s.OriginalSource,
			Explanation:    s.Explanation,
		})
	}
	return out, nil
}

func parseError(err error) *Error {
	return &Error{Kind: KindParse, Message: msgParse, Err: err}
}

// stripCodeFences removes a ```json ... ``` wrapper some models add even in
// JSON mode.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
