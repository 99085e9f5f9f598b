package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
)

type FriendshipRepo struct {
	pool *pgxpool.Pool
}

func NewFriendshipRepo(pool *pgxpool.Pool) *FriendshipRepo {
	return &FriendshipRepo{pool: pool}
}

func (r *FriendshipRepo) Create(ctx context.Context, friendship *domain.Friendship) error {
	query := `
		INSERT INTO friendships (id, user_id, friend_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, friend_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		friendship.ID, friendship.UserID, friendship.FriendID, friendship.CreatedAt,
	)
	return err
}

func (r *FriendshipRepo) Exists(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	// Friendships are stored as two directed rows; either direction counts.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM friendships
			WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
		)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, friendID).Scan(&exists)
	return exists, err
}

func (r *FriendshipRepo) Delete(ctx context.Context, userID, friendID uuid.UUID) error {
	query := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`
	_, err := r.pool.Exec(ctx, query, userID, friendID)
	return err
}

func (r *FriendshipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Friendship, error) {
	query := `
		SELECT f.id, f.user_id, f.friend_id, f.created_at, p.display_name, p.avatar_color
		FROM friendships f
		JOIN profiles p ON f.friend_id = p.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friendships []domain.Friendship
	for rows.Next() {
		var f domain.Friendship
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.FriendID, &f.CreatedAt,
			&f.FriendDisplayName, &f.FriendAvatarColor,
		); err != nil {
			return nil, err
		}
		friendships = append(friendships, f)
	}
	return friendships, rows.Err()
}
