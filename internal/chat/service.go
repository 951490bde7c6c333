// Package chat is the chat gateway: it persists submissions, serves history
// and runs assistant turns, pushing every stored message to live connections.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/ai"
	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/ids"
	"github.com/CHUDOAL/Valve-sait/internal/media"
	"github.com/CHUDOAL/Valve-sait/internal/metrics"
	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/ratelimit"
	"github.com/CHUDOAL/Valve-sait/internal/relay"
)

type MessageStore interface {
	Create(ctx context.Context, msgs ...models.Message) ([]models.Message, error)
	ListRecent(ctx context.Context, limit int) ([]models.MessageWithAuthor, error)
	ListRecentText(ctx context.Context, limit int) ([]models.MessageWithAuthor, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

type AttachmentStore interface {
	StoreChatAttachment(ctx context.Context, in media.Upload) (media.Stored, error)
	Remove(ctx context.Context, ref string) error
}

type Config struct {
	HistoryLimit     int
	ContextFetch     int
	ContextWindow    int
	BroadcastTimeout time.Duration
	SystemPrompt     string
}

type Deps struct {
	Messages    MessageStore
	Users       UserReader
	Attachments AttachmentStore
	Broadcaster relay.Broadcaster
	// Model is nil when no completion credentials are configured.
	Model     ai.Model
	Limiter   ratelimit.Limiter
	Assistant models.User
}

type Service struct {
	messages    MessageStore
	users       UserReader
	attachments AttachmentStore
	broadcaster relay.Broadcaster
	model       ai.Model
	limiter     ratelimit.Limiter
	assistant   models.User
	cfg         Config
	log         zerolog.Logger
	now         func() time.Time
}

func NewService(deps Deps, cfg Config, log zerolog.Logger) *Service {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.ContextFetch <= 0 {
		cfg.ContextFetch = 10
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 5
	}
	if cfg.BroadcastTimeout <= 0 {
		cfg.BroadcastTimeout = 5 * time.Second
	}
	return &Service{
		messages:    deps.Messages,
		users:       deps.Users,
		attachments: deps.Attachments,
		broadcaster: deps.Broadcaster,
		model:       deps.Model,
		limiter:     limiter,
		assistant:   deps.Assistant,
		cfg:         cfg,
		log:         log.With().Str("component", "chat").Logger(),
		now:         time.Now,
	}
}

type Submission struct {
	Text       string
	Attachment *media.Upload
}

// Submit stores one message and broadcasts it. The returned view is the same
// payload every connection receives, the submitter's included.
func (s *Service) Submit(ctx context.Context, author models.User, sub Submission) (MessageView, error) {
	if strings.TrimSpace(sub.Text) == "" && sub.Attachment == nil {
		return MessageView{}, apperr.Validation("empty_message", "message text or attachment required")
	}

	msg := models.Message{
		ID:        ids.New(),
		AuthorID:  author.ID,
		Kind:      models.MessageKindText,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if sub.Text != "" {
		text := sub.Text
		msg.Content = &text
	}

	if sub.Attachment != nil {
		upload := *sub.Attachment
		upload.OwnerID = author.ID
		stored, err := s.attachments.StoreChatAttachment(ctx, upload)
		if err != nil {
			if apperr.KindOf(err) != apperr.KindInternal {
				return MessageView{}, err
			}
			return MessageView{}, apperr.Internal(fmt.Errorf("store attachment: %w", err))
		}
		msg.Kind = stored.Category.Kind
		msg.MediaRef = &stored.Ref
	}

	saved, err := s.messages.Create(ctx, msg)
	if err != nil {
		if msg.MediaRef != nil {
			if rmErr := s.attachments.Remove(context.WithoutCancel(ctx), *msg.MediaRef); rmErr != nil {
				s.log.Warn().Err(rmErr).Str("media_ref", *msg.MediaRef).Msg("orphaned attachment")
			}
		}
		return MessageView{}, apperr.Internal(fmt.Errorf("persist message: %w", err))
	}
	metrics.MessagesPersisted.WithLabelValues(string(msg.Kind)).Inc()

	current, err := s.users.GetByID(ctx, author.ID)
	if err != nil {
		current = author
	}

	view := newView(saved[0], current)
	s.broadcast(ctx, view)
	return view, nil
}

// History returns the most recent messages, oldest first.
func (s *Service) History(ctx context.Context) ([]MessageView, error) {
	recent, err := s.messages.ListRecent(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list messages: %w", err))
	}

	views := make([]MessageView, len(recent))
	for i, m := range recent {
		views[len(recent)-1-i] = viewFromJoined(m)
	}
	return views, nil
}

// AITurn sends the utterance with recent chat context to the completion
// model, then stores and broadcasts the utterance followed by the reply.
func (s *Service) AITurn(ctx context.Context, author models.User, utterance string) (AITurnResult, error) {
	if s.model == nil {
		return AITurnResult{}, apperr.New(apperr.KindServiceUnavailable, "ai_not_configured", "AI assistant is not configured")
	}
	if strings.TrimSpace(utterance) == "" {
		return AITurnResult{}, apperr.Validation("empty_message", "message is required")
	}

	allowed, err := s.limiter.Allow(ctx, author.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", author.ID).Msg("rate limiter unavailable")
	} else if !allowed {
		return AITurnResult{}, apperr.New(apperr.KindRateLimited, "ai_rate_limited", "too many AI requests, try again later")
	}

	lines, err := s.contextLines(ctx, author, utterance)
	if err != nil {
		return AITurnResult{}, err
	}

	reply, err := s.model.Complete(ctx, ai.Prompt{System: s.cfg.SystemPrompt, Lines: lines})
	if err != nil {
		return AITurnResult{}, apperr.Wrap(apperr.KindUpstreamFailure, "ai_upstream_failure", "AI assistant failed to answer", err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	userMsg := models.Message{
		ID:        ids.New(),
		AuthorID:  author.ID,
		Content:   &utterance,
		Kind:      models.MessageKindText,
		CreatedAt: now,
	}
	aiMsg := models.Message{
		ID:        ids.New(),
		AuthorID:  s.assistant.ID,
		Content:   &reply,
		Kind:      models.MessageKindText,
		CreatedAt: now.Add(time.Microsecond),
	}

	saved, err := s.messages.Create(ctx, userMsg, aiMsg)
	if err != nil {
		return AITurnResult{}, apperr.Internal(fmt.Errorf("persist ai turn: %w", err))
	}
	metrics.MessagesPersisted.WithLabelValues(string(models.MessageKindText)).Add(2)

	current, err := s.users.GetByID(ctx, author.ID)
	if err != nil {
		current = author
	}

	result := AITurnResult{
		UserMessage: newView(saved[0], current),
		AIMessage:   newView(saved[1], s.assistant),
	}
	s.broadcast(ctx, result.UserMessage, result.AIMessage)
	return result, nil
}

// contextLines reads ContextFetch text messages and keeps the trailing
// ContextWindow lines, the new utterance included.
func (s *Service) contextLines(ctx context.Context, author models.User, utterance string) ([]string, error) {
	recent, err := s.messages.ListRecentText(ctx, s.cfg.ContextFetch)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("load context: %w", err))
	}

	lines := make([]string, 0, len(recent)+1)
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		if m.Content == nil {
			continue
		}
		lines = append(lines, formatLine(m.DisplayName, *m.Content))
	}
	lines = append(lines, formatLine(author.DisplayName, utterance))

	if len(lines) > s.cfg.ContextWindow {
		lines = lines[len(lines)-s.cfg.ContextWindow:]
	}
	return lines, nil
}

func formatLine(name, content string) string {
	return name + ": " + content
}

// broadcast outlives the request: a client that hangs up after the commit
// must not keep the message from everyone else.
func (s *Service) broadcast(ctx context.Context, views ...MessageView) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BroadcastTimeout)
	defer cancel()

	for _, view := range views {
		payload, err := json.Marshal(view)
		if err != nil {
			s.log.Error().Err(err).Str("message_id", view.ID).Msg("encode broadcast")
			continue
		}
		if err := s.broadcaster.Broadcast(ctx, payload); err != nil {
			s.log.Error().Err(err).Str("message_id", view.ID).Msg("broadcast failed")
		}
	}
}
