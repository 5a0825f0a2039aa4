// Package vlm talks to vision language models that rate batches of images.
package vlm

import (
	"context"

	"github.com/timmy/surrogates/internal/domain"
)

// BatchResponse is the raw text answer of one multi-image request.
type BatchResponse struct {
	Text  string
	Usage domain.Usage
}

// Analyzer sends a prompt with a batch of base64 JPEG images to a model.
type Analyzer interface {
	// AnalyzeBatch returns the model text for images.
	// Errors wrap domain.ErrMalformedAIResponse when the answer has no content,
	// domain.ErrTimeout on deadline, domain.ErrProviderUnavailable otherwise.
	AnalyzeBatch(ctx context.Context, images []string, prompt string) (*BatchResponse, error)
}
