package models

import "time"

type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindImage MessageKind = "image"
	MessageKindVideo MessageKind = "video"
	MessageKindAudio MessageKind = "audio"
)

// Message is immutable once stored. Content is nil for media-only messages and
// MediaRef is set iff Kind is not text.
type Message struct {
	ID        string
	Seq       int64
	AuthorID  string
	Content   *string
	Kind      MessageKind
	MediaRef  *string
	CreatedAt time.Time
}

// MessageWithAuthor is a message joined with the author's current profile.
type MessageWithAuthor struct {
	Message
	DisplayName string
	AvatarRef   *string
}
