package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lazypower/prospector/internal/config"
)

func TestNewClientClaudeCLI(t *testing.T) {
	cfg := config.LLMConfig{Provider: "claude-cli", Model: "haiku"}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*ClaudeCLI); !ok {
		t.Errorf("expected *ClaudeCLI, got %T", client)
	}
}

func TestNewClientAnthropic(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic", AnthropicKey: "test-key"}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	a, ok := client.(*Anthropic)
	if !ok {
		t.Fatalf("expected *Anthropic, got %T", client)
	}
	if a.model != "claude-haiku-4-5-20251001" {
		t.Errorf("default model = %q", a.model)
	}
}

func TestNewClientMissingKeys(t *testing.T) {
	for _, provider := range []string{"anthropic", "gemini"} {
		_, err := NewClient(context.Background(), config.LLMConfig{Provider: provider})
		if err == nil {
			t.Errorf("%s: expected error for missing API key", provider)
		}
	}
}

func TestNewClientOllama(t *testing.T) {
	cfg := config.LLMConfig{Provider: "ollama", OllamaModel: "llama3.2"}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*Ollama); !ok {
		t.Errorf("expected *Ollama, got %T", client)
	}
}

func TestNewClientMock(t *testing.T) {
	client, err := NewClient(context.Background(), config.LLMConfig{Provider: "mock"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	resp, err := client.Complete(context.Background(), "hi")
	if err != nil || resp.Content != "" {
		t.Errorf("mock = %+v, %v", resp, err)
	}
}

func TestNewClientUnknown(t *testing.T) {
	_, err := NewClient(context.Background(), config.LLMConfig{Provider: "gpt"})
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFilterEnv(t *testing.T) {
	env := []string{
		"HOME=/home/user",
		"CLAUDE_SESSION_ID=abc123",
		"CLAUDE_TRANSCRIPT=/tmp/t.jsonl",
		"PATH=/usr/bin",
	}
	filtered := filterEnv(env)
	if len(filtered) != 2 {
		t.Errorf("expected 2 vars, got %d: %v", len(filtered), filtered)
	}
	for _, e := range filtered {
		if strings.HasPrefix(e, "CLAUDE_") {
			t.Errorf("CLAUDE_ var not filtered: %s", e)
		}
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": `{"subject":"Hi"}`}},
			"usage":   map[string]int{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	a := NewAnthropic("k", "m")
	a.endpoint = srv.URL
	resp, err := a.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"subject":"Hi"}` || resp.TokensUsed != 15 {
		t.Errorf("resp = %+v", resp)
	}

	bad := NewAnthropic("wrong", "m")
	bad.endpoint = srv.URL
	if _, err := bad.Complete(context.Background(), "prompt"); err == nil {
		t.Error("expected error on 401")
	}
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/api/generate" || req["format"] != "json" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer srv.Close()

	resp, err := NewOllama(srv.URL+"/", "llama3.2").Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" || resp.Provider != "ollama" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestDraftPrompt(t *testing.T) {
	long := strings.Repeat("x", 120)
	p := DraftPrompt(
		[]string{"fintech", "series-b"},
		[]EvidenceLine{{Title: "Acme raises", URL: "https://acme.com/a"}, {Title: long, URL: "https://acme.com/b"}},
		"We help.",
	)

	for _, want := range []string{
		"ICP_TAGS: fintech, series-b",
		"VALUE_PROP: We help.",
		"- Acme raises :: https://acme.com/a",
		"- " + strings.Repeat("x", 80) + " :: https://acme.com/b",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, strings.Repeat("x", 81)) {
		t.Error("evidence title should be cut at 80 characters")
	}
}

func TestMockClient(t *testing.T) {
	mock := &MockClient{
		Response: &Response{Content: "test response", Provider: "mock"},
	}

	resp, err := mock.Complete(context.Background(), "test prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("content = %q, want %q", resp.Content, "test response")
	}
	if len(mock.Calls) != 1 || mock.Calls[0] != "test prompt" {
		t.Errorf("calls = %v", mock.Calls)
	}
}

func TestMockClientSequence(t *testing.T) {
	mock := &MockClient{Responses: []*Response{{Content: "one"}, {Content: "two"}}}
	var got []string
	for i := 0; i < 3; i++ {
		resp, _ := mock.Complete(context.Background(), "p")
		got = append(got, resp.Content)
	}
	if strings.Join(got, ",") != "one,two,two" {
		t.Errorf("sequence = %v", got)
	}

	failing := &MockClient{Err: errors.New("boom")}
	if _, err := failing.Complete(context.Background(), "p"); err == nil {
		t.Error("expected error")
	}
}
