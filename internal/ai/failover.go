package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/CHUDOAL/Valve-sait/internal/metrics"
)

var ErrAllModelsFailed = errors.New("all completion models failed")

// Failover tries each model in order and returns the first answer. Any error
// from a model, including its own timeout, moves on to the next one.
type Failover struct {
	models  []Model
	timeout time.Duration
	logger  zerolog.Logger
}

func NewFailover(timeout time.Duration, logger zerolog.Logger, models ...Model) *Failover {
	return &Failover{
		models:  models,
		timeout: timeout,
		logger:  logger.With().Str("component", "ai").Logger(),
	}
}

func (f *Failover) Name() string {
	if len(f.models) == 0 {
		return "none"
	}
	return f.models[0].Name()
}

func (f *Failover) Complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, span := otel.Tracer("portal/ai").Start(ctx, "ai.complete")
	defer span.End()

	var lastErr error
	for i, model := range f.models {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		text, err := f.attempt(ctx, model, prompt)
		if err == nil {
			span.SetAttributes(
				attribute.String("ai.model", model.Name()),
				attribute.Int("ai.attempt", i+1),
			)
			return text, nil
		}

		lastErr = err
		f.logger.Warn().Err(err).Str("model", model.Name()).Int("attempt", i+1).Msg("completion failed")
	}

	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all models failed")
	return "", fmt.Errorf("%w, last error: %w", ErrAllModelsFailed, lastErr)
}

func (f *Failover) attempt(ctx context.Context, model Model, prompt Prompt) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := model.Complete(ctx, prompt)
	metrics.AICompletionSeconds.WithLabelValues(model.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AICompletions.WithLabelValues(model.Name(), "error").Inc()
		return "", err
	}
	metrics.AICompletions.WithLabelValues(model.Name(), "ok").Inc()
	return text, nil
}
