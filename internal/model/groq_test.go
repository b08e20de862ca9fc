package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGroqGenerate(t *testing.T) {
	var gotReq groqRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Visit Araku Valley in winter."}, "finish_reason": "stop"},
			},
		})
	}))
	defer srv.Close()

	g, err := NewGroqWithBaseURL("test-key", "test-model", "You are a travel assistant.", srv.URL)
	if err != nil {
		t.Fatalf("NewGroqWithBaseURL error: %v", err)
	}

	reply, err := g.Generate(context.Background(), []Message{
		{Role: "user", Content: "where should I go?"},
		{Role: "model", Content: "What are your interests?"},
		{Role: "user", Content: "mountains"},
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if reply.Text != "Visit Araku Valley in winter." {
		t.Errorf("unexpected reply text %q", reply.Text)
	}
	if reply.BlockReason != "" {
		t.Errorf("unexpected block reason %q", reply.BlockReason)
	}

	// System prompt first, then history with assistant role mapping.
	if len(gotReq.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" {
		t.Errorf("expected leading system message, got %q", gotReq.Messages[0].Role)
	}
	if gotReq.Messages[2].Role != "assistant" {
		t.Errorf("expected model role mapped to assistant, got %q", gotReq.Messages[2].Role)
	}
}

func TestGroqGenerateContentFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": ""}, "finish_reason": "content_filter"},
			},
		})
	}))
	defer srv.Close()

	g, _ := NewGroqWithBaseURL("test-key", "", "", srv.URL)
	reply, err := g.Generate(context.Background(), []Message{{Role: "user", Content: "blocked thing"}})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if reply.BlockReason != "content_filter" {
		t.Errorf("expected content_filter block reason, got %q", reply.BlockReason)
	}
}

func TestGroqGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	g, _ := NewGroqWithBaseURL("test-key", "", "", srv.URL)
	reply, err := g.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if reply.Text != "" || reply.BlockReason != "" {
		t.Errorf("expected empty reply, got %+v", reply)
	}
}

func TestGroqGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "requests"}}`))
	}))
	defer srv.Close()

	g, _ := NewGroqWithBaseURL("test-key", "", "", srv.URL)
	_, err := g.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error on HTTP 429")
	}
	if !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("expected upstream message in error, got %v", err)
	}
}

func TestNewGroqRequiresKey(t *testing.T) {
	if _, err := NewGroq("", "", ""); err == nil {
		t.Error("expected error for missing API key")
	}
}
