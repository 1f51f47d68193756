package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"veridoc/internal/core/domain"
	"veridoc/internal/core/ports"
)

const (
	maxSubQuestions   = 5
	minSubQuestionLen = 10
	maxReasonedTables = 3
)

// orchestrator handles multi-part questions: decompose into typed
// sub-questions, answer each through the TEXT or TABLE path, synthesize one
// answer from the collected evidence, verify against the union of source
// chunks. Sub-questions always take the direct retrieval path, so
// decomposition never recurses.
type orchestrator struct {
	generator   ports.AnswerGenerator
	tables      ports.TableStore
	pipeline    *QueryUseCase
	logger      *slog.Logger
	temperature float64
}

func newOrchestrator(
	generator ports.AnswerGenerator,
	tables ports.TableStore,
	pipeline *QueryUseCase,
	logger *slog.Logger,
	temperature float64,
) *orchestrator {
	return &orchestrator{
		generator:   generator,
		tables:      tables,
		pipeline:    pipeline,
		logger:      logger,
		temperature: temperature,
	}
}

type intermediateAnswer struct {
	question string
	qType    domain.QuestionType
	answer   string
}

func (o *orchestrator) answerIteratively(ctx context.Context, query string, allowedDocIDs []string) (*domain.Answer, error) {
	routed := o.route(ctx, query)
	o.logger.Info("orchestrating sub-questions", "count", len(routed))

	var (
		intermediates   []intermediateAnswer
		allSources      []string
		allSourceChunks []string
	)

	for i, sub := range routed {
		o.logger.Info("answering sub-question",
			"step", i+1,
			"total", len(routed),
			"type", string(sub.Type),
		)

		var (
			answer  string
			sources []string
			chunks  []string
		)
		if sub.Type == domain.QuestionTable {
			answer, sources = o.answerTable(ctx, sub.Question, allowedDocIDs)
			// Tables are structured data; the reasoned answer stands in as
			// its own verification chunk.
			if answer != "" {
				chunks = []string{answer}
			}
		} else {
			text, subSources, hits, err := o.pipeline.answerSimple(ctx, sub.Question, allowedDocIDs)
			if err != nil {
				return nil, fmt.Errorf("answer sub-question %d: %w", i+1, err)
			}
			answer = text
			sources = subSources
			chunks = hitTexts(hits)
		}

		intermediates = append(intermediates, intermediateAnswer{
			question: sub.Question,
			qType:    sub.Type,
			answer:   answer,
		})
		allSources = append(allSources, sources...)
		allSourceChunks = append(allSourceChunks, chunks...)
	}

	if len(allSourceChunks) == 0 {
		return &domain.Answer{Text: msgNoDocuments}, nil
	}

	final, err := o.generator.GenerateFromPrompt(ctx, buildSynthesisPrompt(query, intermediates), o.temperature)
	if err != nil {
		// Concatenated intermediate answers still answer the question.
		o.logger.Warn("synthesis failed, concatenating intermediate answers", "error", err)
		parts := make([]string, 0, len(intermediates))
		for _, a := range intermediates {
			if a.answer != "" {
				parts = append(parts, a.answer)
			}
		}
		final = strings.Join(parts, "\n\n")
	}

	verification := o.pipeline.verifier.VerifyAnswer(ctx, final, allSourceChunks)

	return &domain.Answer{
		Text:         final,
		Sources:      dedupSources(allSources),
		Verification: verification,
	}, nil
}

// route asks the generator to decompose AND classify in one shot, expecting
// a JSON array. Any parse failure degrades to plain decomposition with all
// sub-questions forced to TEXT.
func (o *orchestrator) route(ctx context.Context, query string) []domain.SubQuestion {
	response, err := o.generator.GenerateFromPrompt(ctx, buildRoutingPrompt(query), 0.2)
	if err != nil {
		o.logger.Warn("query routing failed, using TEXT decomposition", "error", err)
		return o.textOnly(ctx, query)
	}

	payload := extractJSONArray(response)
	if payload == "" {
		o.logger.Warn("no JSON array in routing response, using TEXT decomposition")
		return o.textOnly(ctx, query)
	}

	var parsed []struct {
		Question string `json:"question"`
		Type     string `json:"type"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		wrapped := domain.WrapError(domain.ErrParse, "route query", err)
		o.logger.Warn("routing JSON parse failed, using TEXT decomposition", "error", wrapped)
		return o.textOnly(ctx, query)
	}

	var out []domain.SubQuestion
	for _, entry := range parsed {
		question := strings.TrimSpace(entry.Question)
		if len(question) <= minSubQuestionLen {
			continue
		}
		qType := domain.QuestionText
		if strings.EqualFold(strings.TrimSpace(entry.Type), string(domain.QuestionTable)) {
			qType = domain.QuestionTable
		}
		out = append(out, domain.SubQuestion{Question: question, Type: qType})
		if len(out) == maxSubQuestions {
			break
		}
	}
	if len(out) == 0 {
		return o.textOnly(ctx, query)
	}
	return out
}

func (o *orchestrator) textOnly(ctx context.Context, query string) []domain.SubQuestion {
	questions := o.decompose(ctx, query)
	out := make([]domain.SubQuestion, 0, len(questions))
	for _, question := range questions {
		out = append(out, domain.SubQuestion{Question: question, Type: domain.QuestionText})
	}
	return out
}

// decompose parses the numbered-list output of the decomposition prompt.
// Empty or failed decomposition falls back to the original query.
func (o *orchestrator) decompose(ctx context.Context, query string) []string {
	response, err := o.generator.GenerateFromPrompt(ctx, buildDecompositionPrompt(query), 0.3)
	if err != nil {
		o.logger.Warn("query decomposition failed, using original query", "error", err)
		return []string{query}
	}

	var subQuestions []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "1234567890")
		line = strings.TrimLeft(line, ".)")
		line = strings.TrimLeft(line, " ")
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "• ")
		line = strings.TrimPrefix(line, "* ")
		if lower := strings.ToLower(line); strings.HasPrefix(lower, "sub-question") {
			if _, rest, ok := strings.Cut(line, ":"); ok {
				line = strings.TrimSpace(rest)
			}
		}
		if len(line) > minSubQuestionLen {
			subQuestions = append(subQuestions, line)
		}
	}

	if len(subQuestions) == 0 {
		return []string{query}
	}
	if len(subQuestions) > maxSubQuestions {
		subQuestions = subQuestions[:maxSubQuestions]
	}
	return subQuestions
}

// answerTable reasons over up to maxReasonedTables stored tables with a
// low-temperature extraction prompt. Failures and the no-tables case return
// an empty answer; the synthesis step works with whatever the TEXT path
// produced.
func (o *orchestrator) answerTable(ctx context.Context, question string, allowedDocIDs []string) (string, []string) {
	tables, err := o.tables.ListByDocIDs(ctx, allowedDocIDs)
	if err != nil {
		o.logger.Warn("table lookup failed", "error", err)
		return "", nil
	}
	if len(tables) == 0 {
		return "", nil
	}
	if len(tables) > maxReasonedTables {
		tables = tables[:maxReasonedTables]
	}

	answer, err := o.generator.GenerateFromPrompt(ctx, buildTableReasoningPrompt(question, tables), 0.0)
	if err != nil {
		o.logger.Warn("table reasoning failed", "error", err)
		return "", nil
	}

	sources := make([]string, 0, len(tables))
	for _, table := range tables {
		sources = append(sources, fmt.Sprintf("table://%s/%s", table.DocID, table.Sheet))
	}
	return answer, sources
}

func buildDecompositionPrompt(query string) string {
	return fmt.Sprintf(
		"You are an expert research assistant. Deconstruct the following complex user query "+
			"into a series of simple, sequential, and answerable sub-questions that will enable "+
			"a comprehensive answer for researchers.\n\n"+
			"Each sub-question should focus on extracting specific, detailed information such as:\n"+
			"- Quantitative data (statistics, percentages, p-values, sample sizes)\n"+
			"- Methodologies (study designs, protocols, procedures)\n"+
			"- Findings (outcomes, efficacy, safety data)\n"+
			"- Comparative information (treatments, approaches, populations)\n\n"+
			"Return only a numbered list of these sub-questions.\n\n"+
			"Query: %s\n\nSub-questions:",
		query)
}

func buildRoutingPrompt(query string) string {
	return fmt.Sprintf(
		"You are a research query router. Deconstruct the user query into sub-questions. "+
			"For each sub-question, classify it as either TEXT (for conceptual, procedural, or "+
			"discussion-based info) or TABLE (for quantitative data, statistics, p-values, or comparisons).\n\n"+
			"Query: %s\n\n"+
			`Return a JSON list of objects, like this: `+
			`[{"question": "sub-question 1", "type": "TEXT"}, {"question": "sub-question 2", "type": "TABLE"}]`,
		query)
}

// buildSynthesisPrompt labels evidence by analysis type, never by number,
// so the model has nothing to cite as "Evidence 1" or "Part 2".
func buildSynthesisPrompt(query string, intermediates []intermediateAnswer) string {
	evidence := make([]string, 0, len(intermediates))
	for _, a := range intermediates {
		evidence = append(evidence, fmt.Sprintf(
			"Information from %s analysis:\nQuestion addressed: %s\nFindings: %s",
			a.qType, a.question, a.answer))
	}

	return fmt.Sprintf(
		"You are an expert research assistant. Using the following collected information from "+
			"multiple analyses, synthesize a single, highly detailed, comprehensive answer.\n\n"+
			"Original Query: %s\n\nCollected Information:\n%s\n\n"+
			"Instructions for synthesis:\n"+
			"- Provide a thorough, detailed answer that addresses all aspects of the original query\n"+
			"- Include ALL specific quantitative data: exact figures, percentages, p-values, "+
			"confidence intervals, sample sizes\n"+
			"- Integrate information from all sources coherently and naturally\n"+
			"- Do NOT cite or reference \"Evidence 1\", \"Part 1\", \"Information from TEXT analysis\", etc.\n"+
			"- Do NOT include placeholder citations like [Source 1], [Table Data], (Evidence 1), etc.\n"+
			"- Do NOT include meta-commentary or descriptions of what the answer includes\n"+
			"- Present the information as a unified, coherent answer without referencing the "+
			"intermediate steps\n\nSynthesized Answer:",
		query, strings.Join(evidence, "\n\n"))
}

func buildTableReasoningPrompt(question string, tables []domain.Table) string {
	contexts := make([]string, 0, len(tables))
	for _, table := range tables {
		contexts = append(contexts, serializeTable(table))
	}

	return fmt.Sprintf(
		"You are analyzing structured data from documents. Answer the question based on "+
			"the tables provided.\n\n"+
			"Question: %s\n\nTables:\n%s\n\n"+
			"Instructions:\n"+
			"1. Identify which table(s) contain relevant information\n"+
			"2. Extract the specific data points or statistics needed to answer the question\n"+
			"3. If the answer requires calculation, show your reasoning\n"+
			"4. Provide a clear, accurate answer based on the table data\n"+
			"5. Do NOT include placeholder citations like [Source 1], [Table Data], etc.\n"+
			"6. Just provide the answer text itself\n\nAnswer:",
		question, strings.Join(contexts, "\n"))
}

const maxSerializedRows = 10

func serializeTable(table domain.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table %d (sheet %q):\n", table.TableIndex, table.Sheet)
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(table.Columns, ", "))
	fmt.Fprintf(&b, "Rows: %d\n", len(table.Rows))
	b.WriteString("Data (first rows):\n")
	rows := table.Rows
	if len(rows) > maxSerializedRows {
		rows = rows[:maxSerializedRows]
	}
	for _, row := range rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}
