package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByFriendCode(ctx context.Context, code string) (*domain.Profile, error)
}

type MessageRepository interface {
	// FetchPage returns up to limit messages in chronological order. With a
	// cursor, only messages strictly older than the cursor are returned.
	FetchPage(ctx context.Context, conversationID uuid.UUID, cursor *time.Time, limit int) ([]domain.MessageWithDetails, error)
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	LatestByConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	// CountUnread counts messages newer than after, excluding the viewer's own.
	CountUnread(ctx context.Context, conversationID uuid.UUID, after time.Time, viewerID uuid.UUID) (int, error)
}

type ReactionRepository interface {
	Add(ctx context.Context, reaction *domain.MessageReaction) error
	Remove(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	GetByInviteCode(ctx context.Context, code string) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error)
	FindDirectBetween(ctx context.Context, userID, otherID uuid.UUID) (*domain.Conversation, error)
	Update(ctx context.Context, conv *domain.Conversation) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	AddMembers(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) error
	RemoveMember(ctx context.Context, conversationID, userID uuid.UUID) error
	GetMember(ctx context.Context, conversationID, userID uuid.UUID) (*domain.ConversationMember, error)
	ListMembers(ctx context.Context, conversationIDs []uuid.UUID) ([]domain.MemberWithProfile, error)
	UpdateLastRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
}

type FriendshipRepository interface {
	Create(ctx context.Context, friendship *domain.Friendship) error
	Exists(ctx context.Context, userID, friendID uuid.UUID) (bool, error)
	Delete(ctx context.Context, userID, friendID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Friendship, error)
}
