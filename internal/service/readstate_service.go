package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TheLunarRock/hi-and-low-game/internal/repository"
)

// ReadStateService owns the per-(conversation, user) last_read_at
// watermark. The watermark moves only through explicit MarkRead calls,
// never from message receipt alone.
type ReadStateService struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	now              func() time.Time
}

func NewReadStateService(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
) *ReadStateService {
	return &ReadStateService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		now:              time.Now,
	}
}

// MarkRead advances the watermark to now. No batching or debounce; callers
// treat it as fire-and-forget.
func (s *ReadStateService) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	return s.conversationRepo.UpdateLastRead(ctx, conversationID, userID, s.now())
}

// UnreadCount counts messages newer than the viewer's watermark that the
// viewer did not send. A missing membership reads as zero.
func (s *ReadStateService) UnreadCount(ctx context.Context, conversationID, viewerID uuid.UUID) (int, error) {
	member, err := s.conversationRepo.GetMember(ctx, conversationID, viewerID)
	if err != nil {
		return 0, err
	}
	if member == nil {
		return 0, nil
	}
	return s.messageRepo.CountUnread(ctx, conversationID, member.LastReadAt, viewerID)
}
