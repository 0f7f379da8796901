package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sitevoice/fieldreport/internal/common"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func TestExtractFieldsRequestShape(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse(`{"workPerformed":[],"deliveries":[],"delays":[],"safetyNotes":null}`)))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"}, nil)
	raw, err := c.ExtractFields(context.Background(), "quiet day, no deliveries")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !json.Valid(raw) {
		t.Fatalf("content not JSON: %s", raw)
	}

	if gotBody["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", gotBody["model"])
	}
	if gotBody["temperature"] != float64(0) {
		t.Fatalf("temperature = %v, want 0", gotBody["temperature"])
	}
	rf, _ := gotBody["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Fatalf("response_format = %v", gotBody["response_format"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	user, _ := msgs[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "quiet day, no deliveries") {
		t.Fatalf("user message missing transcript: %v", content)
	}
}

func TestExtractFieldsEmptyContentIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse("   ")))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	if _, err := c.ExtractFields(context.Background(), "t"); !errors.Is(err, common.ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}
}

func TestExtractFieldsNoChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	if _, err := c.ExtractFields(context.Background(), "t"); !errors.Is(err, common.ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}
}

func TestExtractFieldsUpstreamStatusErrorIsTagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	if _, err := c.ExtractFields(context.Background(), "t"); !errors.Is(err, common.ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}
}
