package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
	"github.com/TheLunarRock/hi-and-low-game/internal/repository"
)

// Function-field stubs: each test wires only the methods it expects to be
// called; an unexpected call hits the embedded nil interface and panics.

type stubMessageRepo struct {
	repository.MessageRepository
	fetchPageFn   func(ctx context.Context, conversationID uuid.UUID, cursor *time.Time, limit int) ([]domain.MessageWithDetails, error)
	createFn      func(ctx context.Context, msg *domain.Message) error
	getByIDFn     func(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	softDeleteFn  func(ctx context.Context, id uuid.UUID) error
	latestFn      func(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	countUnreadFn func(ctx context.Context, conversationID uuid.UUID, after time.Time, viewerID uuid.UUID) (int, error)
}

func (s *stubMessageRepo) FetchPage(ctx context.Context, conversationID uuid.UUID, cursor *time.Time, limit int) ([]domain.MessageWithDetails, error) {
	return s.fetchPageFn(ctx, conversationID, cursor, limit)
}

func (s *stubMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	return s.createFn(ctx, msg)
}

func (s *stubMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubMessageRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.softDeleteFn(ctx, id)
}

func (s *stubMessageRepo) LatestByConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	return s.latestFn(ctx, conversationID)
}

func (s *stubMessageRepo) CountUnread(ctx context.Context, conversationID uuid.UUID, after time.Time, viewerID uuid.UUID) (int, error) {
	return s.countUnreadFn(ctx, conversationID, after, viewerID)
}

type stubConversationRepo struct {
	repository.ConversationRepository
	createFn            func(ctx context.Context, conv *domain.Conversation) error
	getByIDFn           func(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	getByInviteCodeFn   func(ctx context.Context, code string) (*domain.Conversation, error)
	listByUserFn        func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error)
	findDirectBetweenFn func(ctx context.Context, userID, otherID uuid.UUID) (*domain.Conversation, error)
	updateFn            func(ctx context.Context, conv *domain.Conversation) error
	touchFn             func(ctx context.Context, id uuid.UUID, at time.Time) error
	addMembersFn        func(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) error
	getMemberFn         func(ctx context.Context, conversationID, userID uuid.UUID) (*domain.ConversationMember, error)
	listMembersFn       func(ctx context.Context, conversationIDs []uuid.UUID) ([]domain.MemberWithProfile, error)
	updateLastReadFn    func(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
}

func (s *stubConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	return s.createFn(ctx, conv)
}

func (s *stubConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubConversationRepo) GetByInviteCode(ctx context.Context, code string) (*domain.Conversation, error) {
	return s.getByInviteCodeFn(ctx, code)
}

func (s *stubConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	return s.listByUserFn(ctx, userID, limit)
}

func (s *stubConversationRepo) FindDirectBetween(ctx context.Context, userID, otherID uuid.UUID) (*domain.Conversation, error) {
	return s.findDirectBetweenFn(ctx, userID, otherID)
}

func (s *stubConversationRepo) Update(ctx context.Context, conv *domain.Conversation) error {
	return s.updateFn(ctx, conv)
}

func (s *stubConversationRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.touchFn(ctx, id, at)
}

func (s *stubConversationRepo) AddMembers(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) error {
	return s.addMembersFn(ctx, conversationID, userIDs)
}

func (s *stubConversationRepo) GetMember(ctx context.Context, conversationID, userID uuid.UUID) (*domain.ConversationMember, error) {
	return s.getMemberFn(ctx, conversationID, userID)
}

func (s *stubConversationRepo) ListMembers(ctx context.Context, conversationIDs []uuid.UUID) ([]domain.MemberWithProfile, error) {
	return s.listMembersFn(ctx, conversationIDs)
}

func (s *stubConversationRepo) UpdateLastRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	return s.updateLastReadFn(ctx, conversationID, userID, at)
}

type stubReactionRepo struct {
	repository.ReactionRepository
	addFn    func(ctx context.Context, reaction *domain.MessageReaction) error
	removeFn func(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
}

func (s *stubReactionRepo) Add(ctx context.Context, reaction *domain.MessageReaction) error {
	return s.addFn(ctx, reaction)
}

func (s *stubReactionRepo) Remove(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	return s.removeFn(ctx, messageID, userID, emoji)
}

type stubProfileRepo struct {
	repository.ProfileRepository
	getByIDFn         func(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	getByFriendCodeFn func(ctx context.Context, code string) (*domain.Profile, error)
}

func (s *stubProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubProfileRepo) GetByFriendCode(ctx context.Context, code string) (*domain.Profile, error) {
	return s.getByFriendCodeFn(ctx, code)
}

type stubFriendshipRepo struct {
	repository.FriendshipRepository
	createFn     func(ctx context.Context, friendship *domain.Friendship) error
	existsFn     func(ctx context.Context, userID, friendID uuid.UUID) (bool, error)
	deleteFn     func(ctx context.Context, userID, friendID uuid.UUID) error
	listByUserFn func(ctx context.Context, userID uuid.UUID) ([]domain.Friendship, error)
}

func (s *stubFriendshipRepo) Create(ctx context.Context, friendship *domain.Friendship) error {
	return s.createFn(ctx, friendship)
}

func (s *stubFriendshipRepo) Exists(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	return s.existsFn(ctx, userID, friendID)
}

func (s *stubFriendshipRepo) Delete(ctx context.Context, userID, friendID uuid.UUID) error {
	return s.deleteFn(ctx, userID, friendID)
}

func (s *stubFriendshipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Friendship, error) {
	return s.listByUserFn(ctx, userID)
}
