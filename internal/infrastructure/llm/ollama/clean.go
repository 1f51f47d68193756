package ollama

import (
	"regexp"
	"strings"
)

// Prompt-leakage artifacts scrubbed from raw model output. Grouped by
// class: bracketed source markers, parenthetical evidence/part references,
// prompt-structure echoes, meta-commentary.
var (
	reBracketSource  = regexp.MustCompile(`(?i)\[Source\s+\d+\]`)
	reBracketTable   = regexp.MustCompile(`(?i)\[Table\s+Data\]`)
	reParenSource    = regexp.MustCompile(`(?i)\(Source\s+\d+(?:,\s*Source\s+\d+)*\)`)
	reParenEvidence  = regexp.MustCompile(`(?i)\(Evidence\s+\d+(?:,\s*Evidence\s+\d+)*\)`)
	reBracketEvid    = regexp.MustCompile(`(?i)\[Evidence\s+\d+\]`)
	reBareEvidence   = regexp.MustCompile(`(?i)\bEvidence\s+\d+\b`)
	reParenPart      = regexp.MustCompile(`(?i)\(Part\s+\d+(?:,\s*Part\s+\d+)*\)`)
	reBracketPart    = regexp.MustCompile(`(?i)\[Part\s+\d+\]`)
	reAnswerLabel    = regexp.MustCompile(`(?i)Answer:\s*`)
	reEchoCut        = regexp.MustCompile(`(?i)Source:\s*|Question:\s*|Context:\s*`)
	reSourceContext  = regexp.MustCompile(`(?i)Source:\s*Context\s*`)
	reTrailingSrcs   = regexp.MustCompile(`(?is)\n\s*Sources?\s*:.*$`)
	reQuestionTail   = regexp.MustCompile(`(?is)Question:\s*.*`)
	reContextLabel   = regexp.MustCompile(`(?im)^Context:\s*$`)
	reExtraNewlines  = regexp.MustCompile(`\n{3,}`)
	reMetaCommentary = []*regexp.Regexp{
		regexp.MustCompile(`(?is)This\s+(?:synthesized\s+)?answer\s+(?:integrates|includes|provides|addresses).*?(?:\n\n|$)`),
		regexp.MustCompile(`(?is)This\s+response\s+(?:integrates|includes|provides|addresses).*?(?:\n\n|$)`),
		regexp.MustCompile(`(?is)The\s+(?:above\s+)?answer\s+(?:integrates|includes|provides|addresses).*?(?:\n\n|$)`),
		regexp.MustCompile(`(?is)Note:\s*This\s+answer.*?(?:\n\n|$)`),
		regexp.MustCompile(`(?is)In\s+summary,\s*this\s+answer.*?(?:\n\n|$)`),
	}
)

// CleanModelOutput strips prompt artifacts and structure labels from raw
// model output. Idempotent: a second pass changes nothing.
func CleanModelOutput(text string) string {
	cleaned := text

	cleaned = reBracketSource.ReplaceAllString(cleaned, "")
	cleaned = reBracketTable.ReplaceAllString(cleaned, "")
	cleaned = reParenSource.ReplaceAllString(cleaned, "")
	cleaned = reParenEvidence.ReplaceAllString(cleaned, "")
	cleaned = reBracketEvid.ReplaceAllString(cleaned, "")
	cleaned = reBareEvidence.ReplaceAllString(cleaned, "")
	cleaned = reParenPart.ReplaceAllString(cleaned, "")
	cleaned = reBracketPart.ReplaceAllString(cleaned, "")

	// A repeated "Answer:" echo means the model replayed the prompt
	// structure; the final section is the actual answer, and anything
	// after the next Source/Question/Context label is more echo.
	if parts := reAnswerLabel.Split(cleaned, -1); len(parts) > 1 {
		cleaned = reEchoCut.Split(parts[len(parts)-1], 2)[0]
	}

	cleaned = reSourceContext.ReplaceAllString(cleaned, "")
	cleaned = reTrailingSrcs.ReplaceAllString(cleaned, "")

	for _, re := range reMetaCommentary {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	cleaned = reQuestionTail.ReplaceAllString(cleaned, "")
	cleaned = reContextLabel.ReplaceAllString(cleaned, "")
	cleaned = reExtraNewlines.ReplaceAllString(cleaned, "\n\n")

	return strings.TrimSpace(cleaned)
}
