package domain

import (
	"time"

	"github.com/google/uuid"
)

type Friendship struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FriendID  uuid.UUID `json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
	// Joined fields
	FriendDisplayName string `json:"friend_display_name,omitempty"`
	FriendAvatarColor string `json:"friend_avatar_color,omitempty"`
}
