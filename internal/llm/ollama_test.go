package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTagsServer(t *testing.T, models ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		type model struct {
			Name string `json:"name"`
		}
		var out struct {
			Models []model `json:"models"`
		}
		for _, m := range models {
			out.Models = append(out.Models, model{Name: m})
		}
		json.NewEncoder(w).Encode(out)
	}))
}

func TestGenerateSuccess(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "the reply"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "qwen2.5:latest", 0.1, 3, nil)
	reply, ok := c.Generate(context.Background(), "classify this")

	if !ok || reply != "the reply" {
		t.Fatalf("Generate() = %q, %v", reply, ok)
	}
	if gotBody["model"] != "qwen2.5:latest" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["prompt"] != "classify this" {
		t.Errorf("prompt = %v", gotBody["prompt"])
	}
	if gotBody["stream"] != false {
		t.Errorf("stream = %v, want false", gotBody["stream"])
	}
	opts, _ := gotBody["options"].(map[string]any)
	if opts["temperature"] != 0.1 {
		t.Errorf("temperature = %v", opts["temperature"])
	}
}

func TestGenerateRetriesOnServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "ok now"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "m", 0, 3, nil)
	reply, ok := c.Generate(context.Background(), "p")

	if !ok || reply != "ok now" {
		t.Fatalf("Generate() = %q, %v", reply, ok)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "m", 0, 2, nil)
	reply, ok := c.Generate(context.Background(), "p")

	if ok || reply != "" {
		t.Fatalf("Generate() = %q, %v; want failure", reply, ok)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (no extra attempts)", calls.Load())
	}
}

func TestGenerateConnectionRefused(t *testing.T) {
	// Reserve a port and close it so the connection is refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOllamaClient(url, "m", 0, 2, nil)
	if _, ok := c.Generate(context.Background(), "p"); ok {
		t.Error("Generate() should fail when the backend is unreachable")
	}
}

func TestCheckConnection(t *testing.T) {
	srv := newTagsServer(t, "qwen2.5:latest")
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "qwen2.5:latest", 0, 1, nil)
	if !c.CheckConnection(context.Background()) {
		t.Error("CheckConnection() = false, want true")
	}

	down := NewOllamaClient("http://127.0.0.1:1", "m", 0, 1, nil)
	if down.CheckConnection(context.Background()) {
		t.Error("CheckConnection() to dead endpoint = true")
	}
}

func TestCheckModelMatching(t *testing.T) {
	srv := newTagsServer(t, "qwen2.5:latest", "llama3:8b")
	defer srv.Close()

	tests := []struct {
		model string
		want  bool
	}{
		{"qwen2.5:latest", true}, // exact
		{"qwen2.5:7b", true},     // same base name
		{"qwen2.5", true},        // base equals listed base
		{"llama3", true},
		{"mistral:latest", false},
		{"qwen", false}, // prefix of a base name is not a match
	}

	for _, tt := range tests {
		c := NewOllamaClient(srv.URL, tt.model, 0, 1, nil)
		if got := c.CheckModel(context.Background()); got != tt.want {
			t.Errorf("CheckModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}
