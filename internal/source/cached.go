package source

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/timmy/surrogates/internal/cache"
	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
)

// CachedSource memoizes FetchCandidates results of the wrapped Source.
// Cache failures are logged and fall through to the provider.
type CachedSource struct {
	Source
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedSource wraps s with c.
func NewCachedSource(s Source, c cache.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{Source: s, cache: c, ttl: ttl}
}

func (s *CachedSource) FetchCandidates(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error) {
	key := cache.Key("candidates", s.Name(), query, strconv.Itoa(limit))

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.CtxWarn(ctx, "Candidate cache read failed: %v", err)
	}
	if ok {
		var records []domain.ImageRecord
		if err := json.Unmarshal(data, &records); err == nil {
			logger.CtxDebug(ctx, "Candidate cache hit for %s query %q", s.Name(), query)
			return records, nil
		}
	}

	records, err := s.Source.FetchCandidates(ctx, query, limit)
	if err != nil || len(records) == 0 {
		return records, err
	}

	if encoded, err := json.Marshal(records); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
			logger.CtxWarn(ctx, "Candidate cache write failed: %v", err)
		}
	}
	return records, nil
}
