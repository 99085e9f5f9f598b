package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageReaction is unique per (message_id, user_id, emoji).
type MessageReaction struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type ReactionWithUser struct {
	MessageReaction
	// Joined field
	User Profile `json:"user"`
}
