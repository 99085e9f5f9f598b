package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
)

type ReactionRepo struct {
	pool *pgxpool.Pool
}

func NewReactionRepo(pool *pgxpool.Pool) *ReactionRepo {
	return &ReactionRepo{pool: pool}
}

func (r *ReactionRepo) Add(ctx context.Context, reaction *domain.MessageReaction) error {
	// (message_id, user_id, emoji) is unique; repeating the same reaction is
	// a no-op rather than an error.
	query := `
		INSERT INTO message_reactions (id, message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		reaction.ID, reaction.MessageID, reaction.UserID, reaction.Emoji, reaction.CreatedAt,
	)
	return err
}

func (r *ReactionRepo) Remove(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	query := `DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`
	_, err := r.pool.Exec(ctx, query, messageID, userID, emoji)
	return err
}
