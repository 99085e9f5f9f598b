package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
	"github.com/TheLunarRock/hi-and-low-game/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInviteNotFound       = errors.New("invite code not found")
	ErrNotGroup             = errors.New("conversation is not a group")
)

type ConversationService struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	now              func() time.Time
}

func NewConversationService(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
) *ConversationService {
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		now:              time.Now,
	}
}

// ListWithDetails assembles the conversation list read model: members with
// profiles, latest message, and the viewer's unread count. Recomputed on
// each refresh, never persisted.
func (s *ConversationService) ListWithDetails(ctx context.Context, userID uuid.UUID) ([]domain.ConversationWithDetails, error) {
	convs, err := s.conversationRepo.ListByUser(ctx, userID, domain.ConversationsPerPage)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	if len(convs) == 0 {
		return []domain.ConversationWithDetails{}, nil
	}

	ids := make([]uuid.UUID, len(convs))
	for i, conv := range convs {
		ids[i] = conv.ID
	}

	allMembers, err := s.conversationRepo.ListMembers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	membersByConv := make(map[uuid.UUID][]domain.MemberWithProfile)
	for _, m := range allMembers {
		membersByConv[m.ConversationID] = append(membersByConv[m.ConversationID], m)
	}

	results := make([]domain.ConversationWithDetails, 0, len(convs))
	for _, conv := range convs {
		detail := domain.ConversationWithDetails{
			Conversation: conv,
			Members:      membersByConv[conv.ID],
		}

		latest, err := s.messageRepo.LatestByConversation(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching latest message: %w", err)
		}
		detail.LatestMessage = latest

		if latest != nil {
			for _, m := range detail.Members {
				if m.UserID == userID {
					count, err := s.messageRepo.CountUnread(ctx, conv.ID, m.LastReadAt, userID)
					if err != nil {
						return nil, fmt.Errorf("counting unread: %w", err)
					}
					detail.UnreadCount = count
					break
				}
			}
		}

		results = append(results, detail)
	}

	return results, nil
}

// CreateDirect returns the existing direct conversation for the pair if one
// exists; direct conversations are unique per member pair.
func (s *ConversationService) CreateDirect(ctx context.Context, userID, friendID uuid.UUID) (*domain.Conversation, error) {
	existing, err := s.conversationRepo.FindDirectBetween(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:        uuid.New(),
		Type:      domain.ConversationTypeDirect,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversationRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	if err := s.conversationRepo.AddMembers(ctx, conv.ID, []uuid.UUID{userID, friendID}); err != nil {
		return nil, fmt.Errorf("adding members: %w", err)
	}

	return conv, nil
}

func (s *ConversationService) CreateGroup(ctx context.Context, userID uuid.UUID, name, iconText, iconColor string, memberIDs []uuid.UUID) (*domain.Conversation, error) {
	inviteCode := newInviteCode()
	now := s.now()
	conv := &domain.Conversation{
		ID:         uuid.New(),
		Type:       domain.ConversationTypeGroup,
		Name:       &name,
		IconText:   &iconText,
		IconColor:  &iconColor,
		InviteCode: &inviteCode,
		CreatedBy:  userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.conversationRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}

	members := []uuid.UUID{userID}
	for _, id := range memberIDs {
		if id != userID {
			members = append(members, id)
		}
	}
	if err := s.conversationRepo.AddMembers(ctx, conv.ID, members); err != nil {
		return nil, fmt.Errorf("adding members: %w", err)
	}

	return conv, nil
}

// JoinByInviteCode is idempotent: joining a group twice returns the group.
func (s *ConversationService) JoinByInviteCode(ctx context.Context, userID uuid.UUID, inviteCode string) (*domain.Conversation, error) {
	conv, err := s.conversationRepo.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrInviteNotFound
	}

	member, err := s.conversationRepo.GetMember(ctx, conv.ID, userID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return conv, nil
	}

	if err := s.conversationRepo.AddMembers(ctx, conv.ID, []uuid.UUID{userID}); err != nil {
		return nil, fmt.Errorf("joining group: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) Leave(ctx context.Context, userID, conversationID uuid.UUID) error {
	return s.conversationRepo.RemoveMember(ctx, conversationID, userID)
}

type GroupUpdate struct {
	Name      *string
	IconText  *string
	IconColor *string
}

func (s *ConversationService) UpdateGroup(ctx context.Context, conversationID uuid.UUID, update GroupUpdate) (*domain.Conversation, error) {
	conv, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if conv.Type != domain.ConversationTypeGroup {
		return nil, ErrNotGroup
	}

	if update.Name != nil {
		conv.Name = update.Name
	}
	if update.IconText != nil {
		conv.IconText = update.IconText
	}
	if update.IconColor != nil {
		conv.IconColor = update.IconColor
	}

	if err := s.conversationRepo.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("updating group: %w", err)
	}
	return conv, nil
}

func newInviteCode() string {
	return uuid.NewString()[:domain.InviteCodeLength]
}
