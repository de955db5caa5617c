package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds all prospector configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Drafting  DraftingConfig  `yaml:"drafting"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	Provider     string `yaml:"provider" validate:"oneof=claude-cli anthropic ollama gemini mock"`
	Model        string `yaml:"model"` // e.g. "haiku", "gemini-1.5-flash"
	OllamaURL    string `yaml:"ollama_url"`
	OllamaModel  string `yaml:"ollama_model"` // e.g. "llama3.2"
	AnthropicKey string `yaml:"anthropic_key"`
	GeminiKey    string `yaml:"gemini_key"`
}

type EmbeddingConfig struct {
	Provider    string `yaml:"provider" validate:"oneof=auto ollama gemini tfidf"`
	Model       string `yaml:"model"` // e.g. "nomic-embed-text"
	MaxFeatures int    `yaml:"max_features" validate:"gte=0"`
}

type IngestConfig struct {
	Concurrency int  `yaml:"concurrency" validate:"gte=1"`
	TimeoutSecs int  `yaml:"timeout_secs" validate:"gte=1"`
	MaxEntries  int  `yaml:"max_entries" validate:"gte=1"`
	Browser     bool `yaml:"browser"`
}

type RetrievalConfig struct {
	TopN  int    `yaml:"top_n" validate:"gte=1"`
	Query string `yaml:"query" validate:"oneof=fixed icp"`
}

type DraftingConfig struct {
	Variants  int    `yaml:"variants" validate:"gte=1"`
	ValueProp string `yaml:"value_prop"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		DataDir:  "", // resolved at runtime via DefaultDataDir()
		LogLevel: "info",
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		LLM: LLMConfig{
			Provider: "claude-cli",
			Model:    "haiku",
		},
		Embedding: EmbeddingConfig{
			Provider:    "auto",
			MaxFeatures: 512,
		},
		Ingest: IngestConfig{
			Concurrency: 4,
			TimeoutSecs: 20,
			MaxEntries:  50,
		},
		Retrieval: RetrievalConfig{
			TopN:  10,
			Query: "fixed",
		},
		Drafting: DraftingConfig{
			Variants:  2,
			ValueProp: "Help automate compliance and accelerate onboarding with minimal engineering effort.",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/prospector/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "prospector", "config.yaml")
}

// DefaultDataDir returns $XDG_DATA_HOME/prospector.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "prospector")
}

// Load reads the config file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.ApplyEnv()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from PROSPECTOR_* and provider key variables.
func (c *Config) ApplyEnv() {
	setString(&c.Database.Path, "PROSPECTOR_DB")
	setString(&c.DataDir, "PROSPECTOR_DATA_DIR")
	setString(&c.LogLevel, "PROSPECTOR_LOG_LEVEL")
	setString(&c.LLM.Provider, "PROSPECTOR_LLM")
	setString(&c.Embedding.Provider, "PROSPECTOR_EMBEDDER")
	setString(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.LLM.GeminiKey, "GEMINI_API_KEY")
	setString(&c.LLM.OllamaURL, "OLLAMA_URL")
	setString(&c.SMTP.Host, "SMTP_HOST")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.SMTP.From, "SMTP_FROM")
	setString(&c.SMTP.To, "SMTP_TO")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ResolvedDataDir returns DataDir, or the XDG default when unset.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDataDir()
}

// ResolvedDBPath returns Database.Path, or prospector.db inside the data dir.
func (c *Config) ResolvedDBPath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.ResolvedDataDir(), "prospector.db")
}

// DraftsDir is where draft artifacts are written.
func (c *Config) DraftsDir() string {
	return filepath.Join(c.ResolvedDataDir(), "drafts")
}

// ContextsPath is the exported retrieval snapshot.
func (c *Config) ContextsPath() string {
	return filepath.Join(c.ResolvedDataDir(), "processed", "contexts.json")
}
