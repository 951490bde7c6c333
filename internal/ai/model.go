// Package ai wraps the external completion service behind a small Model
// interface with a primary/fallback policy.
package ai

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("completion returned no text")

// Prompt is one completion request: a system instruction followed by user
// lines in chronological order.
type Prompt struct {
	System string
	Lines  []string
}

type Model interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}
