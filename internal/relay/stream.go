package relay

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/hub"
	"github.com/CHUDOAL/Valve-sait/internal/metrics"
)

const payloadField = "payload"

type Stream struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	hub     *hub.Hub
	block   time.Duration
	backoff time.Duration
	logger  zerolog.Logger

	tailFn func(context.Context) (string, error)
}

func NewStream(client *redis.Client, stream string, maxLen int64, h *hub.Hub, logger zerolog.Logger) *Stream {
	s := &Stream{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		hub:     h,
		block:   5 * time.Second,
		backoff: 2 * time.Second,
		logger:  logger.With().Str("component", "relay").Str("stream", stream).Logger(),
	}
	s.tailFn = s.tail
	return s
}

// Broadcast appends payload to the stream. If redis refuses the write the
// payload is still delivered to this instance's connections.
func (s *Stream) Broadcast(ctx context.Context, payload []byte) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{payloadField: payload},
	}).Err()
	if err == nil {
		return nil
	}

	s.logger.Warn().Err(err).Msg("stream publish failed, delivering locally")
	metrics.RelayFallbacks.Inc()
	s.hub.Broadcast(payload)
	return nil
}

// Start tails the stream from its current end until ctx is cancelled. Redis
// being unreachable at boot is retried like any later read error.
func (s *Stream) Start(ctx context.Context) error {
	lastID, err := s.resolveTail(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next, err := s.read(ctx, lastID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("stream read error")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff):
			}
			continue
		}
		lastID = next
	}
}

func (s *Stream) resolveTail(ctx context.Context) (string, error) {
	for {
		id, err := s.tailFn(ctx)
		if err == nil {
			return id, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn().Err(err).Msg("resolve stream tail failed, retrying")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.backoff):
		}
	}
}

func (s *Stream) tail(ctx context.Context) (string, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	if len(msgs) == 0 {
		return "0-0", nil
	}
	return msgs[0].ID, nil
}

func (s *Stream) read(ctx context.Context, lastID string) (string, error) {
	result, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, lastID},
		Count:   50,
		Block:   s.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return lastID, nil
		}
		return lastID, err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			lastID = msg.ID
			payload, ok := decodePayload(msg.Values)
			if !ok {
				s.logger.Warn().Str("message_id", msg.ID).Msg("skipping malformed stream entry")
				continue
			}
			s.hub.Broadcast(payload)
		}
	}
	return lastID, nil
}

func decodePayload(values map[string]any) ([]byte, bool) {
	switch v := values[payloadField].(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	}
	return nil, false
}
