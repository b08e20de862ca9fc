package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini adapts the Google Generative AI SDK to the Provider contract.
type Gemini struct {
	client       *genai.Client
	modelName    string
	systemPrompt string
}

// NewGemini creates a Gemini provider. modelName may be empty to use the
// default. systemPrompt is attached as the model's system instruction.
func NewGemini(ctx context.Context, apiKey, modelName, systemPrompt string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{
		client:       client,
		modelName:    modelName,
		systemPrompt: systemPrompt,
	}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate sends the history to Gemini and maps the SDK response onto the
// three-outcome Reply contract: prompt-feedback safety blocks become
// BlockReason, missing candidates or non-text parts become an empty Text.
func (g *Gemini) Generate(ctx context.Context, history []Message) (Reply, error) {
	if len(history) == 0 {
		return Reply{}, fmt.Errorf("history is empty")
	}

	m := g.client.GenerativeModel(g.modelName)
	if g.systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(g.systemPrompt)},
		}
	}

	last := history[len(history)-1]
	if last.Role != "user" {
		return Reply{}, fmt.Errorf("last message in history is not from the user")
	}

	chat := m.StartChat()
	chat.History = toGenaiContent(history[:len(history)-1])

	resp, err := chat.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return Reply{}, fmt.Errorf("gemini SendMessage failed: %w", err)
	}

	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return Reply{BlockReason: resp.PromptFeedback.BlockReason.String()}, nil
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Reply{}, nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return Reply{Text: strings.TrimSpace(text.String())}, nil
}

func toGenaiContent(history []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := msg.Role
		if role != "user" {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return out
}
