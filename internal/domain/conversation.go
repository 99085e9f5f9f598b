package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConversationTypeDirect = "direct"
	ConversationTypeGroup  = "group"
)

type Conversation struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Name       *string   `json:"name,omitempty"`
	IconText   *string   `json:"icon_text,omitempty"`
	IconColor  *string   `json:"icon_color,omitempty"`
	InviteCode *string   `json:"invite_code,omitempty"`
	CreatedBy  uuid.UUID `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConversationMember carries the read watermark. last_read_at is written
// only by explicit mark-as-read calls, never inferred from message receipt.
type ConversationMember struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	LastReadAt     time.Time `json:"last_read_at"`
	JoinedAt       time.Time `json:"joined_at"`
}

type MemberWithProfile struct {
	ConversationMember
	// Joined field
	Profile Profile `json:"profile"`
}

// ConversationWithDetails is a read model assembled on demand for the
// conversation list, never persisted.
type ConversationWithDetails struct {
	Conversation  Conversation        `json:"conversation"`
	Members       []MemberWithProfile `json:"members"`
	LatestMessage *Message            `json:"latest_message,omitempty"`
	UnreadCount   int                 `json:"unread_count"`
}
