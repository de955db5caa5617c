package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Retrieval.TopN != 10 {
		t.Errorf("TopN = %d, want 10", cfg.Retrieval.TopN)
	}
	if cfg.Drafting.Variants != 2 {
		t.Errorf("Variants = %d, want 2", cfg.Drafting.Variants)
	}
	if cfg.Embedding.Provider != "auto" {
		t.Errorf("Embedding.Provider = %q, want auto", cfg.Embedding.Provider)
	}
	if err := validate.Struct(&cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Ingest.Concurrency)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
data_dir: /tmp/prospector-test
retrieval:
  top_n: 3
  query: icp
llm:
  provider: ollama
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retrieval.TopN != 3 || cfg.Retrieval.Query != "icp" {
		t.Errorf("Retrieval = %+v", cfg.Retrieval)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("Provider = %q", cfg.LLM.Provider)
	}
	// untouched sections keep defaults
	if cfg.Drafting.Variants != 2 {
		t.Errorf("Variants = %d, want default 2", cfg.Drafting.Variants)
	}
	if got := cfg.ResolvedDBPath(); got != "/tmp/prospector-test/prospector.db" {
		t.Errorf("ResolvedDBPath = %q", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, "config.yaml", "embedding:\n  provider: word2vec\n")
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unknown embedder")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PROSPECTOR_DB", "/tmp/x.db")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_HOST", "mail.example.com")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.ResolvedDBPath() != "/tmp/x.db" {
		t.Errorf("db path = %q", cfg.ResolvedDBPath())
	}
	if cfg.LLM.GeminiKey != "g-key" {
		t.Errorf("GeminiKey = %q", cfg.LLM.GeminiKey)
	}
	if cfg.SMTP.Port != 2525 || cfg.SMTP.Host != "mail.example.com" {
		t.Errorf("SMTP = %+v", cfg.SMTP)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.ListenAddr(); got != "127.0.0.1:37778" {
		t.Errorf("ListenAddr = %q", got)
	}
}
