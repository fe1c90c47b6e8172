package ai

import genai "google.golang.org/genai"

// RefinementSchema constrains the model to {"segments": [Segment...]}.
func RefinementSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"segments": {
				Type:        genai.TypeArray,
				Description: "The rewritten sentence broken down into sequential segments to support color-coding.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text": {
							Type:        genai.TypeString,
							Description: "The text content of this segment.",
						},
						"type": {
							Type: genai.TypeString,
							Enum: []string{
								string(SegmentOriginal),
								string(SegmentStyle),
								string(SegmentSource),
							},
							Description: "original: Unchanged text. style: Changed for flow/grammar. source: Changed based on PDF content.",
						},
						"originalSource": {
							Type:        genai.TypeString,
							Description: "If type is 'source', provide the exact quote from the PDF used as reference. Leave empty otherwise.",
						},
						"explanation": {
							Type:        genai.TypeString,
							Description: "Brief reason for the change (e.g. 'Corrected grammar', 'Added specific finding from PDF').",
						},
					},
					Required: []string{"text", "type"},
				},
			},
		},
		Required: []string{"segments"},
	}
}
