package ai

import (
	"fmt"
	"strings"
)

// DefaultInstruction applies when the user leaves the instruction blank.
const DefaultInstruction = "Optimize for academic clarity and verify against the paper."

// BuildPrompt renders the single instruction block sent after the attachments.
// The sentence is embedded verbatim.
func BuildPrompt(sentence, instruction string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	return fmt.Sprintf(`You are an expert academic editor.

Task:
1. Read the attached PDF(s).
2. Rewrite the User's Input Sentence to be academically rigorous.
3. You MUST output the result as a sequential list of text segments that reconstruct the full refined sentence.

Tagging Rules:
- If a part of the text is largely unchanged from the input (ignoring minor punctuation), tag it as "original".
- If you modify words solely for better flow, grammar, conciseness, or academic tone, tag it as "style".
- If you modify, add, or correct facts/claims based specifically on content found in the PDF, tag it as "source".

Constraint:
- The concatenation of all 'text' fields in the JSON array must form the complete, readable rewritten sentence.
- For "source" tags, you MUST provide the 'originalSource' (the verbatim quote from the PDF).
- Never attach 'originalSource' or 'explanation' to "original" segments.

User Instruction: %s

User Input Sentence: "%s"
`, instruction, sentence)
}
