package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"veridoc/internal/core/domain"
)

func TestExtractClaimsMinLength(t *testing.T) {
	answer := "Yes. No. The drug showed a 45% response rate among treated participants."
	claims := extractClaims(answer)
	for _, claim := range claims {
		if len(claim) < minClaimChars {
			t.Fatalf("claim shorter than %d chars extracted: %q", minClaimChars, claim)
		}
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d: %v", len(claims), claims)
	}
}

func TestExtractClaimsSkipsMetaLanguage(t *testing.T) {
	answer := "This answer integrates information from several trials comprehensively.\n" +
		"Note: the sources were previously summarized for this purpose.\n" +
		"The treatment demonstrated a significant reduction in symptoms."
	claims := extractClaims(answer)
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d: %v", len(claims), claims)
	}
	if !strings.Contains(claims[0], "significant reduction") {
		t.Fatalf("kept the wrong claim: %q", claims[0])
	}
}

func TestExtractClaimsKeepsQuantitativeAndLongFragments(t *testing.T) {
	answer := "Response was observed in 45% of patients; " +
		"the weather during the study period stayed consistently mild throughout"
	claims := extractClaims(answer)
	if len(claims) != 2 {
		t.Fatalf("expected quantitative + long fragments kept, got %v", claims)
	}
}

func TestVerifyClaimEarlyExitOnSupports(t *testing.T) {
	calls := 0
	gen := &generatorFake{promptFn: func(string) (string, error) {
		calls++
		if calls == 2 {
			return "Supports", nil
		}
		return "Not Mentioned", nil
	}}
	uc := NewVerifyAnswerUseCase(gen, nil, 1)

	result := uc.verifyClaim(context.Background(), "the drug showed a 45% response rate", []string{"c1", "c2", "c3"})
	if result.Status != domain.VerdictSupports {
		t.Fatalf("expected Supports, got %s", result.Status)
	}
	if result.ChunkIndex != 1 {
		t.Fatalf("expected chunk index 1, got %d", result.ChunkIndex)
	}
	if calls != 2 {
		t.Fatalf("expected early exit after 2 calls, got %d", calls)
	}
	if result.Confidence != supportsConfidence {
		t.Fatalf("expected confidence %v, got %v", supportsConfidence, result.Confidence)
	}
}

func TestVerifyClaimRefutesBestSoFarThenSupports(t *testing.T) {
	responses := []string{"Refutes", "Not Mentioned", "Supports"}
	calls := 0
	gen := &generatorFake{promptFn: func(string) (string, error) {
		response := responses[calls]
		calls++
		return response, nil
	}}
	uc := NewVerifyAnswerUseCase(gen, nil, 1)

	result := uc.verifyClaim(context.Background(), "claim under test here", []string{"c1", "c2", "c3"})
	if result.Status != domain.VerdictSupports {
		t.Fatalf("a later Supports must override an earlier Refutes, got %s", result.Status)
	}
	if result.ChunkIndex != 2 {
		t.Fatalf("expected chunk index 2, got %d", result.ChunkIndex)
	}
}

func TestVerifyClaimRefutesSticksWithoutSupports(t *testing.T) {
	responses := []string{"Not Mentioned", "Refutes", "Not Mentioned"}
	calls := 0
	gen := &generatorFake{promptFn: func(string) (string, error) {
		response := responses[calls]
		calls++
		return response, nil
	}}
	uc := NewVerifyAnswerUseCase(gen, nil, 1)

	result := uc.verifyClaim(context.Background(), "claim under test here", []string{"c1", "c2", "c3"})
	if result.Status != domain.VerdictRefutes {
		t.Fatalf("expected Refutes, got %s", result.Status)
	}
	if result.ChunkIndex != 1 {
		t.Fatalf("expected chunk index 1, got %d", result.ChunkIndex)
	}
	if calls != 3 {
		t.Fatalf("Refutes must not stop the scan, got %d calls", calls)
	}
	if result.Confidence != uncertainConfidence {
		t.Fatalf("expected confidence %v, got %v", uncertainConfidence, result.Confidence)
	}
}

func TestVerifyClaimSkipsFailedChunks(t *testing.T) {
	calls := 0
	gen := &generatorFake{promptFn: func(string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("model unavailable")
		}
		return "Supports", nil
	}}
	uc := NewVerifyAnswerUseCase(gen, nil, 1)

	result := uc.verifyClaim(context.Background(), "claim under test here", []string{"c1", "c2"})
	if result.Status != domain.VerdictSupports {
		t.Fatalf("a failed chunk must be skipped, got %s", result.Status)
	}
	if result.ChunkIndex != 1 {
		t.Fatalf("expected chunk index 1, got %d", result.ChunkIndex)
	}
}

func TestVerifyClaimNoChunks(t *testing.T) {
	uc := NewVerifyAnswerUseCase(&generatorFake{}, nil, 1)
	result := uc.verifyClaim(context.Background(), "claim under test here", nil)
	if result.Status != domain.VerdictNotMentioned || result.ChunkIndex != -1 {
		t.Fatalf("expected Not Mentioned/-1 for empty chunks, got %+v", result)
	}
}

func TestVerifyAnswerSupportsScenario(t *testing.T) {
	gen := &generatorFake{promptFn: func(string) (string, error) {
		return "Supports", nil
	}}
	uc := NewVerifyAnswerUseCase(gen, nil, 2)

	results := uc.VerifyAnswer(context.Background(),
		"The drug showed a 45% response rate.",
		[]string{"In the trial, the drug showed a 45% response rate among participants."})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != domain.VerdictSupports {
		t.Fatalf("expected Supports, got %s", results[0].Status)
	}
}

func TestVerifyAnswerKeepsClaimOrderUnderConcurrency(t *testing.T) {
	answer := "The first cohort showed a 45% response rate in the trial. " +
		"The second cohort demonstrated a 30% reduction in adverse events. " +
		"The third cohort revealed a 12% improvement in survival outcomes."
	gen := &generatorFake{promptFn: func(prompt string) (string, error) {
		return "Supports", nil
	}}
	uc := NewVerifyAnswerUseCase(gen, nil, 3)

	results := uc.VerifyAnswer(context.Background(), answer, []string{"source chunk"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	wantOrder := []string{"45%", "30%", "12%"}
	for i, marker := range wantOrder {
		if !strings.Contains(results[i].Claim, marker) {
			t.Fatalf("result %d out of order: %q", i, results[i].Claim)
		}
	}
}

func TestVerifyAnswerNoSourceChunksSkipsVerification(t *testing.T) {
	gen := &generatorFake{}
	uc := NewVerifyAnswerUseCase(gen, nil, 1)

	results := uc.VerifyAnswer(context.Background(), "The drug showed a 45% response rate.", nil)
	if results != nil {
		t.Fatalf("expected no verification results without source chunks, got %+v", results)
	}
	if gen.promptCount() != 0 {
		t.Fatalf("verification must be skipped, got %d generator calls", gen.promptCount())
	}
}

func TestVerifyAnswerNoClaims(t *testing.T) {
	uc := NewVerifyAnswerUseCase(&generatorFake{}, nil, 1)
	if results := uc.VerifyAnswer(context.Background(), "Short.", []string{"chunk"}); results != nil {
		t.Fatalf("expected nil results for unclaimable answer, got %v", results)
	}
}
