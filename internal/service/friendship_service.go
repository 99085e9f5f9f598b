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
	ErrFriendNotFound = errors.New("friend code not found")
	ErrSelfFriend     = errors.New("cannot add yourself as a friend")
	ErrAlreadyFriends = errors.New("already friends")
)

type FriendshipService struct {
	friendshipRepo repository.FriendshipRepository
	profileRepo    repository.ProfileRepository
	now            func() time.Time
}

func NewFriendshipService(
	friendshipRepo repository.FriendshipRepository,
	profileRepo repository.ProfileRepository,
) *FriendshipService {
	return &FriendshipService{
		friendshipRepo: friendshipRepo,
		profileRepo:    profileRepo,
		now:            time.Now,
	}
}

// AddByFriendCode creates the friendship in both directions, matching how
// the store models it (two directed rows).
func (s *FriendshipService) AddByFriendCode(ctx context.Context, userID uuid.UUID, friendCode string) (*domain.Profile, error) {
	friend, err := s.profileRepo.GetByFriendCode(ctx, friendCode)
	if err != nil {
		return nil, err
	}
	if friend == nil {
		return nil, ErrFriendNotFound
	}
	if friend.ID == userID {
		return nil, ErrSelfFriend
	}

	exists, err := s.friendshipRepo.Exists(ctx, userID, friend.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyFriends
	}

	now := s.now()
	forward := &domain.Friendship{ID: uuid.New(), UserID: userID, FriendID: friend.ID, CreatedAt: now}
	if err := s.friendshipRepo.Create(ctx, forward); err != nil {
		return nil, fmt.Errorf("adding friend: %w", err)
	}
	backward := &domain.Friendship{ID: uuid.New(), UserID: friend.ID, FriendID: userID, CreatedAt: now}
	if err := s.friendshipRepo.Create(ctx, backward); err != nil {
		// Roll back the first direction so the pair stays symmetric.
		_ = s.friendshipRepo.Delete(ctx, userID, friend.ID)
		return nil, fmt.Errorf("adding friend: %w", err)
	}

	return friend, nil
}

func (s *FriendshipService) List(ctx context.Context, userID uuid.UUID) ([]domain.Friendship, error) {
	return s.friendshipRepo.ListByUser(ctx, userID)
}

func (s *FriendshipService) Remove(ctx context.Context, userID, friendID uuid.UUID) error {
	return s.friendshipRepo.Delete(ctx, userID, friendID)
}
