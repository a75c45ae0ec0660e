// Package openrouter implements domain.Generator on the OpenRouter
// (OpenAI-compatible) chat completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/sift/internal/adapter/ai"
	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/domain"
)

// ProviderName labels metrics and errors.
const ProviderName = "openrouter"

// Client sends one user message per prompt at temperature 0.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	referer string
	title   string
	hc      *http.Client
}

// New builds a client from configuration. The HTTP client carries no timeout
// of its own; the caller's context bounds each call.
func New(cfg config.Config) *Client {
	return &Client{
		apiKey:  cfg.OpenRouterAPIKey,
		baseURL: strings.TrimRight(cfg.OpenRouterBaseURL, "/"),
		model:   cfg.OpenRouterModel,
		referer: cfg.OpenRouterReferer,
		title:   cfg.OpenRouterTitle,
		hc:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Model returns the configured model id.
func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Generate implements domain.Generator. 429 and 5xx answers are returned as
// retryable errors; other 4xx answers are permanent.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ai.Permanent(fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrInvalidArgument))
	}
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: 0,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", ai.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", ai.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("ai provider rate limited",
			slog.String("provider", ProviderName),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
		return "", fmt.Errorf("%w: status 429", domain.ErrUpstreamRateLimit)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		slog.Warn("ai provider 4xx",
			slog.String("provider", ProviderName),
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.model),
			slog.String("body", snippet(raw)))
		return "", ai.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		slog.Error("ai provider non-2xx",
			slog.String("provider", ProviderName),
			slog.Int("status", resp.StatusCode),
			slog.String("body", snippet(raw)))
		return "", fmt.Errorf("chat status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("empty choices from OpenRouter API")
	}
	if out.Model != "" && out.Model != c.model {
		slog.Warn("model substitution detected",
			slog.String("requested_model", c.model),
			slog.String("actual_model", out.Model))
	}
	slog.Debug("openrouter call finished",
		slog.String("model", c.model),
		slog.Duration("duration", time.Since(start)))
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func snippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}
