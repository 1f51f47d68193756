package ollama

import (
	"fmt"
	"strings"
)

const answerSystemPrompt = "You are an expert research assistant answering questions for researchers. " +
	"Answer only using the provided context. If the answer is not in the context, explicitly state that you don't know. " +
	"Include all relevant specifics from the source material: exact figures, percentages, p-values, confidence intervals, " +
	"sample sizes, methodologies, outcomes and limitations. " +
	"Do NOT include placeholder citations like [Source 1], [Source 2] or [Table Data] in your answer. " +
	"Sources will be listed separately - just provide the answer text itself."

func buildAnswerPrompt(question string, contexts []string) string {
	return fmt.Sprintf(
		"%s\n\nQuestion: %s\n\nContext:\n%s\n\n"+
			"Provide a thorough, precise answer. "+
			"Provide only your answer directly without repeating the question, context, or any labels like 'Answer:' or 'Source:'.",
		answerSystemPrompt, question, strings.Join(contexts, "\n\n"))
}

func buildCompressionPrompt(question string, contexts []string) string {
	return fmt.Sprintf(
		"Compress the following context into a dense summary relevant to the question. "+
			"Retain all critical details: exact quantitative data, methodologies, findings and limitations. "+
			"Do not speculate.\n\n"+
			"Question: %s\n\nContext:\n%s\n\n"+
			"Return only the compressed summary.",
		question, strings.Join(contexts, "\n\n"))
}
