package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is the raw messages row. created_at is server-assigned and is the
// authoritative ordering key; it never changes after creation. Soft delete
// clears content and image_url and sets is_deleted; the client never
// reverses that transition.
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Content        *string    `json:"content,omitempty"`
	ImageURL       *string    `json:"image_url,omitempty"`
	ReplyToID      *uuid.UUID `json:"reply_to_id,omitempty"`
	IsDeleted      bool       `json:"is_deleted"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MessageWithSender is a message joined with its sender profile, used for
// one-level reply-to resolution (no recursive thread lookup).
type MessageWithSender struct {
	Message Message `json:"message"`
	Sender  Profile `json:"sender"`
}

// MessageWithDetails is the unit the timeline works with: message, sender,
// reaction set and optional reply-to target.
type MessageWithDetails struct {
	Message   Message            `json:"message"`
	Sender    Profile            `json:"sender"`
	Reactions []ReactionWithUser `json:"reactions"`
	ReplyTo   *MessageWithSender `json:"reply_to,omitempty"`
}
