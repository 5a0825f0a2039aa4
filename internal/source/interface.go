package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/surrogates/internal/domain"
)

// Source searches a stock image provider and fetches image bytes.
type Source interface {
	// Name returns the provider tag, e.g. "unsplash".
	Name() string

	// FetchCandidates searches for up to limit images matching query.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - query: free-text search query.
	//   - limit: maximum number of records; adapters clamp it to their page size.
	// Returns:
	//   - []domain.ImageRecord: candidates in provider order, possibly empty.
	//   - error: wraps domain.ErrProviderUnavailable when the provider cannot serve.
	FetchCandidates(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error)

	// DownloadBytes fetches the image of record, preferring the full resolution URL.
	DownloadBytes(ctx context.Context, record domain.ImageRecord) ([]byte, error)
}

// FetchBytes GETs url with client and returns the body of a 200 response.
func FetchBytes(ctx context.Context, client *resty.Client, url string, headers map[string]string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("no download URL")
	}
	resp, err := client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("download returned empty body")
	}
	return body, nil
}

// ClampLimit bounds limit to [1, max].
func ClampLimit(limit, max int) int {
	if limit < 1 {
		return 1
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
