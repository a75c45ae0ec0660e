// Package gemini implements domain.Generator on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/fairyhunter13/sift/internal/adapter/ai"
	"github.com/fairyhunter13/sift/internal/domain"
)

const (
	// ProviderName labels metrics and errors.
	ProviderName = "gemini"
	defaultModel = "gemini-2.5-flash"
)

// modelsAPI is the part of *genai.Models the generator uses.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator sends single-turn prompts to Gemini at temperature 0.
type Generator struct {
	models modelsAPI
	model  string
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", domain.ErrInvalidArgument)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("op=gemini.NewGenerator: %w", err)
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{models: client.Models, model: model}, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// Generate returns the concatenated text parts of the first answer.
// Client errors (bad key, blocked prompt) are marked permanent.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ai.Permanent(fmt.Errorf("%w: prompt must not be empty", domain.ErrInvalidArgument))
	}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classify(err)
	}
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		break
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
			return "", ai.Permanent(fmt.Errorf("gemini blocked prompt: %s", fb.BlockReason))
		}
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", domain.ErrUpstreamRateLimit, apiErr.Message)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return ai.Permanent(fmt.Errorf("gemini status %d %s: %s", apiErr.Code, apiErr.Status, apiErr.Message))
		}
	}
	return fmt.Errorf("generate content: %w", err)
}
