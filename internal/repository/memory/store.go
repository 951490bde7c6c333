// Package memory keeps every store in process memory. It backs the portal when
// no postgres DSN is configured and serves as the store in tests.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/repository"
)

type Store struct {
	Users    *UserStore
	Sessions *SessionStore
	Tasks    *TaskStore
	Messages *MessageStore
}

func New() *Store {
	users := &UserStore{byID: make(map[string]models.User)}
	return &Store{
		Users:    users,
		Sessions: &SessionStore{},
		Tasks:    &TaskStore{byID: make(map[string]models.Task)},
		Messages: &MessageStore{users: users},
	}
}

type UserStore struct {
	mu   sync.RWMutex
	byID map[string]models.User
}

func (s *UserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
		if existing.DisplayName == user.DisplayName {
			return repository.ErrDisplayNameTaken
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.byID[user.ID] = user
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *UserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) ListByRole(_ context.Context, role models.UserRole) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []models.User{}
	for _, user := range s.byID {
		if user.Role == role && user.Status == models.UserStatusActive {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].DisplayName < users[j].DisplayName })
	return users, nil
}

func (s *UserStore) UpdateProfile(_ context.Context, id string, displayName string, bio *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	for otherID, other := range s.byID {
		if otherID != id && other.DisplayName == displayName {
			return repository.ErrDisplayNameTaken
		}
	}
	user.DisplayName = displayName
	user.Bio = bio
	user.UpdatedAt = time.Now().UTC()
	s.byID[id] = user
	return nil
}

func (s *UserStore) UpdateAvatar(_ context.Context, id string, avatarRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.AvatarRef = &avatarRef
	user.UpdatedAt = time.Now().UTC()
	s.byID[id] = user
	return nil
}

type SessionStore struct {
	mu       sync.RWMutex
	sessions []models.Session
}

func (s *SessionStore) Create(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.CreatedAt = time.Now().UTC()
	s.sessions = append(s.sessions, session)
	return nil
}

func (s *SessionStore) FindValid(_ context.Context, tokenHash []byte, now time.Time) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if bytes.Equal(session.TokenHash, tokenHash) && session.Valid(now) {
			return session, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (s *SessionStore) DeleteByTokenHash(_ context.Context, tokenHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	for _, session := range s.sessions {
		if !bytes.Equal(session.TokenHash, tokenHash) {
			kept = append(kept, session)
		}
	}
	s.sessions = kept
	return nil
}

func (s *SessionStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	kept := s.sessions[:0]
	for _, session := range s.sessions {
		if session.ExpiresAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, session)
	}
	s.sessions = kept
	return removed, nil
}

// Len reports how many sessions are stored, expired or not.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

type TaskStore struct {
	mu   sync.RWMutex
	byID map[string]models.Task
}

func (s *TaskStore) Create(_ context.Context, task models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.byID[task.ID] = task
	return task, nil
}

func (s *TaskStore) GetByID(_ context.Context, id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.byID[id]
	if !ok {
		return models.Task{}, repository.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskStore) ListByCreator(_ context.Context, creatorID string) ([]models.Task, error) {
	return s.filter(func(t models.Task) bool { return t.CreatorID == creatorID }), nil
}

func (s *TaskStore) ListByAssignee(_ context.Context, assigneeID string) ([]models.Task, error) {
	return s.filter(func(t models.Task) bool { return t.AssigneeID == assigneeID }), nil
}

func (s *TaskStore) UpdateStatus(_ context.Context, id string, status models.TaskStatus) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.byID[id]
	if !ok {
		return models.Task{}, repository.ErrTaskNotFound
	}
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	s.byID[id] = task
	return task, nil
}

func (s *TaskStore) filter(keep func(models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := []models.Task{}
	for _, task := range s.byID {
		if keep(task) {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

type MessageStore struct {
	mu       sync.RWMutex
	users    *UserStore
	messages []models.Message
	seq      int64
}

func (s *MessageStore) Create(_ context.Context, msgs ...models.Message) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		s.seq++
		msg.Seq = s.seq
		s.messages = append(s.messages, msg)
		out = append(out, msg)
	}
	return out, nil
}

func (s *MessageStore) ListRecent(ctx context.Context, limit int) ([]models.MessageWithAuthor, error) {
	return s.recent(ctx, limit, func(models.Message) bool { return true })
}

func (s *MessageStore) ListRecentText(ctx context.Context, limit int) ([]models.MessageWithAuthor, error) {
	return s.recent(ctx, limit, func(m models.Message) bool { return m.Kind == models.MessageKindText })
}

// Count reports how many messages have been stored.
func (s *MessageStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *MessageStore) recent(ctx context.Context, limit int, keep func(models.Message) bool) ([]models.MessageWithAuthor, error) {
	s.mu.RLock()
	sorted := make([]models.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		if keep(msg) {
			sorted = append(sorted, msg)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].Seq > sorted[j].Seq
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]models.MessageWithAuthor, 0, len(sorted))
	for _, msg := range sorted {
		author, err := s.users.GetByID(ctx, msg.AuthorID)
		if err != nil {
			// inner join semantics
			continue
		}
		out = append(out, models.MessageWithAuthor{
			Message:     msg,
			DisplayName: author.DisplayName,
			AvatarRef:   author.AvatarRef,
		})
	}
	return out, nil
}
