package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/prompts"
)

// InspirationConfig holds settings of the Gemini generator and the liveness check.
type InspirationConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	LivenessTimeout time.Duration
	MaxCount        int
}

// InspirationService suggests live design reference websites.
type InspirationService struct {
	client   *resty.Client
	probe    *resty.Client
	apiKey   string
	endpoint string
	maxCount int
}

// NewInspirationService creates a new InspirationService.
func NewInspirationService(cfg InspirationConfig) *InspirationService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.LivenessTimeout <= 0 {
		cfg.LivenessTimeout = 3 * time.Second
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = 10
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	return &InspirationService{
		client: resty.New().
			SetHeader("Content-Type", "application/json").
			SetHeader("x-goog-api-key", cfg.APIKey).
			SetTimeout(cfg.Timeout),
		probe:    resty.New().SetTimeout(cfg.LivenessTimeout),
		apiKey:   cfg.APIKey,
		endpoint: fmt.Sprintf("%s/models/%s:generateContent", baseURL, cfg.Model),
		maxCount: cfg.MaxCount,
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Find asks the generator for count reference websites matching keywords and
// returns the ones that answer a HEAD request, in generator order.
func (s *InspirationService) Find(ctx context.Context, keywords []string, count int) ([]domain.Inspiration, error) {
	ctx = logger.SetProvider(ctx, "gemini")
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key not configured", domain.ErrProviderUnavailable)
	}
	keywords = nonEmpty(keywords)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: keywords are required", domain.ErrInvalidRequest)
	}
	if count <= 0 || count > s.maxCount {
		count = s.maxCount
	}

	candidates, err := s.generate(ctx, prompts.InspirationPrompt(keywords, count))
	if err != nil {
		return nil, err
	}
	live := s.filterLive(ctx, candidates)
	logger.With(logger.Fields{"candidates": len(candidates)}).WithCount(len(live)).
		Info(ctx, "Inspiration sites checked")
	return live, nil
}

func (s *InspirationService) generate(ctx context.Context, prompt string) ([]domain.Inspiration, error) {
	req := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{ResponseMimeType: "application/json"},
	}

	var resp geminiResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: failed to call Gemini API: %v", domain.ErrProviderUnavailable, err)
	}
	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, fmt.Errorf("%w: Gemini API returned HTTP %d: %s", domain.ErrProviderUnavailable, httpResp.StatusCode(), msg)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates in Gemini response", domain.ErrMalformedAIResponse)
	}

	return parseInspirations(resp.Candidates[0].Content.Parts[0].Text)
}

// parseInspirations decodes the generator JSON array, tolerating a markdown
// code fence around it. Entries without an http(s) URL are dropped.
func parseInspirations(text string) ([]domain.Inspiration, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var items []domain.Inspiration
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedAIResponse, err)
	}

	out := make([]domain.Inspiration, 0, len(items))
	for _, item := range items {
		u, err := url.Parse(strings.TrimSpace(item.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		out = append(out, domain.Inspiration{URL: u.String(), Description: strings.TrimSpace(item.Description)})
	}
	return out, nil
}

// filterLive probes every site concurrently.
func (s *InspirationService) filterLive(ctx context.Context, items []domain.Inspiration) []domain.Inspiration {
	alive := make([]bool, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			resp, err := s.probe.R().SetContext(ctx).Head(target)
			if err != nil {
				logger.CtxDebug(ctx, "Site %s unreachable: %v", target, err)
				return
			}
			alive[i] = resp.StatusCode() < 400
		}(i, item.URL)
	}
	wg.Wait()

	live := make([]domain.Inspiration, 0, len(items))
	for i, item := range items {
		if alive[i] {
			live = append(live, item)
		}
	}
	return live
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
