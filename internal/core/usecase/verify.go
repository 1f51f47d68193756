package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"veridoc/internal/core/domain"
	"veridoc/internal/core/ports"
)

const (
	minClaimChars       = 20
	longClaimChars      = 50
	verifyChunkPreview  = 500
	defaultVerifyLimit  = 4
	supportsConfidence  = 1.0
	uncertainConfidence = 0.5
)

// VerifyAnswerUseCase checks each factual claim of a generated answer
// against the retrieved source chunks with a three-way entailment prompt.
type VerifyAnswerUseCase struct {
	generator   ports.AnswerGenerator
	logger      *slog.Logger
	concurrency int
}

func NewVerifyAnswerUseCase(generator ports.AnswerGenerator, logger *slog.Logger, concurrency int) *VerifyAnswerUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultVerifyLimit
	}
	return &VerifyAnswerUseCase{
		generator:   generator,
		logger:      logger,
		concurrency: concurrency,
	}
}

var (
	reSentenceSplit = regexp.MustCompile(`[.;]\s+|\n+`)
	reQuantitative  = regexp.MustCompile(`(?i)\d+[.%]|\bp\s*[<>=]\s*\d|confidence|interval|sample\s*size`)
)

// Fragments echoing prompt structure or describing the answer itself are
// never factual claims.
var claimSkipMarkers = []string{
	"this answer",
	"this response",
	"the above",
	"note:",
	"in summary",
	"question:",
	"answer:",
	"source:",
	"evidence",
	"part ",
}

var findingTerms = []string{
	"showed",
	"found",
	"demonstrated",
	"indicated",
	"revealed",
	"result",
	"outcome",
	"efficacy",
	"safety",
	"response",
	"rate",
	"percentage",
	"improvement",
	"reduction",
	"increase",
}

// extractClaims splits the answer on sentence boundaries and keeps the
// fragments that read like checkable factual statements. No cap: every
// extracted claim gets verified.
func extractClaims(answer string) []string {
	sentences := reSentenceSplit.Split(answer, -1)

	var claims []string
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < minClaimChars {
			continue
		}

		lower := strings.ToLower(sentence)
		skip := false
		for _, marker := range claimSkipMarkers {
			if strings.Contains(lower, marker) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		hasQuantitative := reQuantitative.MatchString(sentence)
		hasFinding := false
		for _, term := range findingTerms {
			if strings.Contains(lower, term) {
				hasFinding = true
				break
			}
		}

		if hasQuantitative || hasFinding || len(sentence) > longClaimChars {
			claims = append(claims, sentence)
		}
	}
	return claims
}

func buildVerificationPrompt(claim, chunkPreview string) string {
	return fmt.Sprintf(
		"Given the source text, does it support the following claim? "+
			"Answer only 'Supports', 'Refutes', or 'Not Mentioned'.\n\n"+
			"Source: %s\n\nClaim: %s\n\n"+
			"Answer (only 'Supports', 'Refutes', or 'Not Mentioned'):",
		chunkPreview, claim)
}

// verifyClaim scans the chunks in order. Supports ends the scan immediately
// since no later chunk can improve on it; Refutes is held best-so-far
// because a later chunk may still support the claim. A failed generator
// call skips that chunk only.
func (uc *VerifyAnswerUseCase) verifyClaim(ctx context.Context, claim string, sourceChunks []string) domain.VerificationResult {
	result := domain.VerificationResult{
		Claim:      claim,
		Status:     domain.VerdictNotMentioned,
		ChunkIndex: -1,
		Confidence: uncertainConfidence,
	}
	if len(sourceChunks) == 0 {
		result.Confidence = 0
		return result
	}

	for idx, chunk := range sourceChunks {
		preview := chunk
		if len(preview) > verifyChunkPreview {
			preview = preview[:verifyChunkPreview]
		}

		response, err := uc.generator.GenerateFromPrompt(ctx, buildVerificationPrompt(claim, preview), 0.0)
		if err != nil {
			uc.logger.Warn("claim verification call failed",
				"chunk_index", idx,
				"error", err,
			)
			continue
		}

		verdict := strings.ToUpper(strings.TrimSpace(response))
		switch {
		case strings.Contains(verdict, "SUPPORTS") || strings.HasPrefix(verdict, "SUPPORT"):
			result.Status = domain.VerdictSupports
			result.ChunkIndex = idx
			result.Confidence = supportsConfidence
			return result
		case strings.Contains(verdict, "REFUTES") || strings.HasPrefix(verdict, "REFUTE"):
			if result.Status == domain.VerdictNotMentioned {
				result.Status = domain.VerdictRefutes
				result.ChunkIndex = idx
			}
		}
	}

	return result
}

// VerifyAnswer runs every extracted claim through verifyClaim with bounded
// parallelism across claims. Chunks within a claim stay sequential so the
// Supports early exit keeps its cost savings. Results come back in claim
// order regardless of completion order.
func (uc *VerifyAnswerUseCase) VerifyAnswer(ctx context.Context, answer string, sourceChunks []string) []domain.VerificationResult {
	// Nothing to check claims against: skip verification entirely rather
	// than stamping every claim Not Mentioned.
	if len(sourceChunks) == 0 {
		uc.logger.Info("no source chunks, skipping verification")
		return nil
	}

	claims := extractClaims(answer)
	if len(claims) == 0 {
		uc.logger.Info("no claims extracted from answer")
		return nil
	}
	uc.logger.Info("verifying answer claims",
		"claims", len(claims),
		"source_chunks", len(sourceChunks),
	)

	results := make([]domain.VerificationResult, len(claims))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.concurrency)

	for i, claim := range claims {
		group.Go(func() error {
			results[i] = uc.verifyClaim(groupCtx, claim, sourceChunks)
			return nil
		})
	}
	// Workers never return errors; failed calls degrade to Not Mentioned.
	_ = group.Wait()

	return results
}
