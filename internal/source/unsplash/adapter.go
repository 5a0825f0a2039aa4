package unsplash

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
	Name = "unsplash"

	// MaxPerPage is the Unsplash search page ceiling.
	MaxPerPage = 30

	defaultBaseURL = "https://api.unsplash.com"
)

type searchResponse struct {
	Total   int     `json:"total"`
	Results []photo `json:"results"`
}

type photo struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	URLs           struct {
		Regular string `json:"regular"`
		Full    string `json:"full"`
	} `json:"urls"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

// Adapter implements source.Source for the Unsplash search API.
type Adapter struct {
	apiKey string
	client *resty.Client
}

// NewAdapter creates a new Unsplash adapter.
// Parameters:
//   - apiKey: Unsplash access key; empty keeps the adapter registered but unavailable.
//   - baseURL: API root; empty uses the public endpoint.
//   - timeout: per-request timeout.
//
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(apiKey, baseURL string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept-Version", "v1")
	return &Adapter{apiKey: apiKey, client: client}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) FetchCandidates(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%w: unsplash API key not configured", domain.ErrProviderUnavailable)
	}

	var result searchResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Client-ID "+a.apiKey).
		SetQueryParams(map[string]string{
			"query":       query,
			"per_page":    strconv.Itoa(source.ClampLimit(limit, MaxPerPage)),
			"orientation": "landscape",
		}).
		SetResult(&result).
		Get("/search/photos")
	if err != nil {
		return nil, fmt.Errorf("%w: unsplash request failed: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: unsplash returned status %d", domain.ErrProviderUnavailable, resp.StatusCode())
	}

	logger.CtxInfo(ctx, "Unsplash returned %d images (total available: %d)", len(result.Results), result.Total)

	records := make([]domain.ImageRecord, 0, len(result.Results))
	for _, p := range result.Results {
		description := p.Description
		if description == "" {
			description = p.AltDescription
		}
		author := p.User.Name
		if author == "" {
			author = "Unknown"
		}
		records = append(records, domain.ImageRecord{
			SourceID:    p.ID,
			Description: description,
			URL:         p.URLs.Regular,
			DownloadURL: p.URLs.Full,
			Author:      author,
			Source:      Name,
			Width:       p.Width,
			Height:      p.Height,
		})
	}
	return records, nil
}

func (a *Adapter) DownloadBytes(ctx context.Context, record domain.ImageRecord) ([]byte, error) {
	return source.FetchBytes(ctx, a.client, record.BestURL(), nil)
}
