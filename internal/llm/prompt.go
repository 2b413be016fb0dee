package llm

import (
	"fmt"
	"strings"
)

// maxPromptText caps how much report text we ship per request. Lab reports
// are short; anything past this is boilerplate footers.
const maxPromptText = 12000

// BuildExtractionUserPrompt packages the document text plus filename and
// preparation hints for the extraction call.
func BuildExtractionUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if filename := strings.TrimSpace(req.FilenameHint); filename != "" {
		b.WriteString("Filename: ")
		b.WriteString(filename)
		b.WriteString("\n")
	}
	if req.PrepMethod != "" {
		fmt.Fprintf(&b, "Text prepared via: %s (confidence %.2f)\n", req.PrepMethod, req.Confidence)
	}
	text := strings.TrimSpace(req.Text)
	b.WriteString("\nReport text:\n")
	if len(text) > maxPromptText {
		b.WriteString(text[:maxPromptText])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}

// BuildStandardizeUserPrompt lists the established mappings verbatim, then
// the new names to be grouped. The "canonical -> raw" line format keeps the
// context compact and unambiguous for the model.
func BuildStandardizeUserPrompt(known []KnownMapping, unmapped []string) string {
	var b strings.Builder
	b.WriteString("Established mappings (common name -> raw name), do not change these:\n")
	if len(known) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, m := range known {
		b.WriteString(m.CanonicalName)
		b.WriteString(" -> ")
		b.WriteString(m.RawName)
		b.WriteString("\n")
	}
	b.WriteString("\nNew raw test names to group and assign common names:\n")
	for _, name := range unmapped {
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String()
}
