package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_HYBRID_CANDIDATES", "")
	t.Setenv("RAG_FUSION_RRF_K", "")
	t.Setenv("RERANK_WEIGHT_SEMANTIC", "")
	t.Setenv("GEN_TEMPERATURE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RAGTopK)
	}
	if cfg.RAGHybridCandidates != 25 {
		t.Fatalf("expected default hybrid candidates 25, got %d", cfg.RAGHybridCandidates)
	}
	if cfg.RAGFusionRRFK != 60 {
		t.Fatalf("expected default fusion rrf k 60, got %d", cfg.RAGFusionRRFK)
	}
	if cfg.RerankWeightSemantic != 0.4 {
		t.Fatalf("expected default semantic weight 0.4, got %v", cfg.RerankWeightSemantic)
	}
	if cfg.GenTemperature != 0.2 {
		t.Fatalf("expected default temperature 0.2, got %v", cfg.GenTemperature)
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "8")
	t.Setenv("RAG_FUSION_RRF_K", "75")
	t.Setenv("RERANK_WEIGHT_SEMANTIC", "0.5")
	t.Setenv("COMPLEXITY_MIN_INDICATORS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 8 {
		t.Fatalf("expected top k 8, got %d", cfg.RAGTopK)
	}
	if cfg.RAGFusionRRFK != 75 {
		t.Fatalf("expected fusion rrf k 75, got %d", cfg.RAGFusionRRFK)
	}
	if cfg.RerankWeightSemantic != 0.5 {
		t.Fatalf("expected semantic weight 0.5, got %v", cfg.RerankWeightSemantic)
	}
	if cfg.ComplexityMinIndicators != 3 {
		t.Fatalf("expected min indicators 3, got %d", cfg.ComplexityMinIndicators)
	}
}

func TestLoadMalformedEnvKeepsDefault(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected fallback top k 5, got %d", cfg.RAGTopK)
	}
}

func TestLoadYAMLOverlayBeatsDefaultsNotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	overlay := "rag_top_k: 9\nollama:\n  gen_model: mistral:7b\nchunk_size: 1200\n"
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("OLLAMA_GEN_MODEL", "")
	t.Setenv("CHUNK_SIZE", "700")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 9 {
		t.Fatalf("overlay must beat the default, got top k %d", cfg.RAGTopK)
	}
	if cfg.OllamaGenModel != "mistral:7b" {
		t.Fatalf("nested overlay key not applied, got %q", cfg.OllamaGenModel)
	}
	if cfg.ChunkSize != 700 {
		t.Fatalf("env must beat the overlay, got chunk size %d", cfg.ChunkSize)
	}
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n  - not yaml: ["), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}
