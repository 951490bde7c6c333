package chat

import (
	"time"

	"github.com/CHUDOAL/Valve-sait/internal/models"
)

// MessageView is the denormalized payload returned over HTTP and pushed to
// every live connection.
type MessageView struct {
	ID          string             `json:"id"`
	AuthorID    string             `json:"authorId"`
	DisplayName string             `json:"displayName"`
	AvatarRef   *string            `json:"avatarRef"`
	Content     *string            `json:"content"`
	Kind        models.MessageKind `json:"kind"`
	MediaRef    *string            `json:"mediaRef"`
	CreatedAt   string             `json:"createdAt"`
}

type AITurnResult struct {
	UserMessage MessageView `json:"userMessage"`
	AIMessage   MessageView `json:"aiMessage"`
}

func newView(msg models.Message, author models.User) MessageView {
	return MessageView{
		ID:          msg.ID,
		AuthorID:    msg.AuthorID,
		DisplayName: author.DisplayName,
		AvatarRef:   author.AvatarRef,
		Content:     msg.Content,
		Kind:        msg.Kind,
		MediaRef:    msg.MediaRef,
		CreatedAt:   msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func viewFromJoined(m models.MessageWithAuthor) MessageView {
	return newView(m.Message, models.User{DisplayName: m.DisplayName, AvatarRef: m.AvatarRef})
}
