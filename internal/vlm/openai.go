package vlm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/prompts"
)

// OpenAIConfig holds configuration for the chat-completions client.
type OpenAIConfig struct {
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// OpenAIAnalyzer implements Analyzer on an OpenAI-compatible chat completions API.
type OpenAIAnalyzer struct {
	client    *resty.Client
	model     string
	apiKey    string
	maxTokens int
	endpoint  string
}

// NewOpenAIAnalyzer creates a new OpenAIAnalyzer.
// Parameters:
//   - cfg: model, credentials and endpoint.
//
// Returns:
//   - *OpenAIAnalyzer: initialized client wrapper.
func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	client := resty.New().
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	return &OpenAIAnalyzer{
		client:    client,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens,
		endpoint:  baseURL + "/chat/completions",
	}
}

// Model returns the model name being used.
func (a *OpenAIAnalyzer) Model() string {
	return a.model
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string, or []interface{} of parts
}

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imagePart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (a *OpenAIAnalyzer) AnalyzeBatch(ctx context.Context, images []string, prompt string) (*BatchResponse, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", domain.ErrProviderUnavailable)
	}

	parts := make([]interface{}, 0, len(images)+1)
	parts = append(parts, textPart{Type: "text", Text: prompt})
	for _, img := range images {
		parts = append(parts, imagePart{
			Type:     "image_url",
			ImageURL: imageURL{URL: "data:image/jpeg;base64," + img},
		})
	}

	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.AnalystSystemPrompt},
			{Role: "user", Content: parts},
		},
		MaxTokens: a.maxTokens,
	}

	var resp chatResponse
	httpResp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(a.endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: failed to call VLM API: %v", domain.ErrProviderUnavailable, err)
	}

	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, fmt.Errorf("%w: VLM API returned HTTP %d: %s", domain.ErrProviderUnavailable, httpResp.StatusCode(), msg)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: VLM API error: %s", domain.ErrProviderUnavailable, resp.Error.Message)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: no choices in response", domain.ErrMalformedAIResponse)
	}

	out := &BatchResponse{Text: resp.Choices[0].Message.Content}
	if resp.Usage != nil {
		out.Usage = domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}
