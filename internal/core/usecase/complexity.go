package usecase

import "strings"

// ComplexityThresholds tunes the complex-query heuristic. Zero values fall
// back to the defaults the heuristic was calibrated with.
type ComplexityThresholds struct {
	MinQuestionWords  int
	MinIndicators     int
	LongQuestionChars int
}

func (t ComplexityThresholds) withDefaults() ComplexityThresholds {
	if t.MinQuestionWords <= 0 {
		t.MinQuestionWords = 2
	}
	if t.MinIndicators <= 0 {
		t.MinIndicators = 2
	}
	if t.LongQuestionChars <= 0 {
		t.LongQuestionChars = 50
	}
	return t
}

var questionWords = []string{"what", "how", "why", "when", "where", "which", "who"}

var complexityIndicators = []string{
	" and ",
	" also ",
	" furthermore ",
	" additionally ",
	" what ",
	" how ",
	" why ",
	" compare ",
	" difference ",
	" as described ",
	" according to ",
	" in paper ",
	" in document ",
	" standard ",
	" treatment ",
	" side effects ",
	" outcomes ",
}

// isComplexQuery is a crude substring heuristic, not a classifier. It errs
// toward treating long multi-part questions as complex so they go through
// decomposition.
func isComplexQuery(question string, t ComplexityThresholds) bool {
	t = t.withDefaults()
	lower := strings.ToLower(question)

	questionCount := 0
	for _, word := range questionWords {
		if strings.Contains(lower, word) {
			questionCount++
		}
	}

	indicatorCount := 0
	for _, indicator := range complexityIndicators {
		if strings.Contains(lower, indicator) {
			indicatorCount++
		}
	}

	return questionCount >= t.MinQuestionWords ||
		indicatorCount >= t.MinIndicators ||
		(len(question) > t.LongQuestionChars && indicatorCount >= 1)
}
