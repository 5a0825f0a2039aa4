package pexels

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/source"
)

const (
	// Name is the provider tag of this adapter.
	Name = "pexels"

	// MaxPerPage is the Pexels search page ceiling.
	MaxPerPage = 80

	defaultBaseURL = "https://api.pexels.com/v1"
)

type searchResponse struct {
	TotalResults int     `json:"total_results"`
	Photos       []photo `json:"photos"`
}

type photo struct {
	ID           int64  `json:"id"`
	Alt          string `json:"alt"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Photographer string `json:"photographer"`
	Src          struct {
		Large    string `json:"large"`
		Original string `json:"original"`
	} `json:"src"`
}

// Adapter implements source.Source for the Pexels search API.
type Adapter struct {
	apiKey string
	client *resty.Client
}

// NewAdapter creates a new Pexels adapter.
func NewAdapter(apiKey, baseURL string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout)
	return &Adapter{apiKey: apiKey, client: client}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) FetchCandidates(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%w: pexels API key not configured", domain.ErrProviderUnavailable)
	}

	var result searchResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", a.apiKey).
		SetQueryParams(map[string]string{
			"query":       query,
			"per_page":    strconv.Itoa(source.ClampLimit(limit, MaxPerPage)),
			"orientation": "landscape",
		}).
		SetResult(&result).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("%w: pexels request failed: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: pexels returned status %d", domain.ErrProviderUnavailable, resp.StatusCode())
	}

	logger.CtxInfo(ctx, "Pexels returned %d images", len(result.Photos))

	records := make([]domain.ImageRecord, 0, len(result.Photos))
	for _, p := range result.Photos {
		author := p.Photographer
		if author == "" {
			author = "Unknown"
		}
		records = append(records, domain.ImageRecord{
			SourceID:    strconv.FormatInt(p.ID, 10),
			Description: p.Alt,
			URL:         p.Src.Large,
			DownloadURL: p.Src.Original,
			Author:      author,
			Source:      Name,
			Width:       p.Width,
			Height:      p.Height,
		})
	}
	return records, nil
}

// DownloadBytes fetches the image; Pexels accepts the API key on media URLs.
func (a *Adapter) DownloadBytes(ctx context.Context, record domain.ImageRecord) ([]byte, error) {
	return source.FetchBytes(ctx, a.client, record.BestURL(), map[string]string{"Authorization": a.apiKey})
}
