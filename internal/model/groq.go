package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.3-70b-versatile"
	groqTimeout        = 60 * time.Second
)

// Groq speaks the OpenAI-compatible chat completion API exposed by Groq.
type Groq struct {
	apiKey       string
	baseURL      string
	modelName    string
	systemPrompt string
	httpClient   *http.Client
}

// NewGroq creates a Groq provider. modelName may be empty to use the default.
func NewGroq(apiKey, modelName, systemPrompt string) (*Groq, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}
	if modelName == "" {
		modelName = defaultGroqModel
	}
	return &Groq{
		apiKey:       apiKey,
		baseURL:      defaultGroqBaseURL,
		modelName:    modelName,
		systemPrompt: systemPrompt,
		httpClient:   &http.Client{Timeout: groqTimeout},
	}, nil
}

// NewGroqWithBaseURL creates a provider pointing at a custom base URL (for
// testing).
func NewGroqWithBaseURL(apiKey, modelName, systemPrompt, baseURL string) (*Groq, error) {
	g, err := NewGroq(apiKey, modelName, systemPrompt)
	if err != nil {
		return nil, err
	}
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g, nil
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model    string        `json:"model"`
	Messages []groqMessage `json:"messages"`
}

type groqResponse struct {
	Choices []struct {
		Message      groqMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type groqErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate sends the history as an OpenAI-style chat completion request.
// A finish_reason of "content_filter" maps to Reply.BlockReason; an empty
// choice list maps to an empty Reply.
func (g *Groq) Generate(ctx context.Context, history []Message) (Reply, error) {
	msgs := make([]groqMessage, 0, len(history)+1)
	if g.systemPrompt != "" {
		msgs = append(msgs, groqMessage{Role: "system", Content: g.systemPrompt})
	}
	for _, m := range history {
		role := m.Role
		if role == "model" {
			role = "assistant"
		}
		msgs = append(msgs, groqMessage{Role: role, Content: m.Content})
	}

	body, err := json.Marshal(groqRequest{Model: g.modelName, Messages: msgs})
	if err != nil {
		return Reply{}, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Reply{}, fmt.Errorf("reading groq response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr groqErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return Reply{}, fmt.Errorf("groq API error (HTTP %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return Reply{}, fmt.Errorf("groq API error: HTTP %d", resp.StatusCode)
	}

	var cr groqResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return Reply{}, fmt.Errorf("decoding groq response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Reply{}, nil
	}
	if cr.Choices[0].FinishReason == "content_filter" {
		return Reply{BlockReason: "content_filter"}, nil
	}
	return Reply{Text: strings.TrimSpace(cr.Choices[0].Message.Content)}, nil
}
