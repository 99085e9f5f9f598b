package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

const conversationColumns = `id, type, name, icon_text, icon_color, invite_code, created_by, created_at, updated_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(
		&conv.ID, &conv.Type, &conv.Name, &conv.IconText, &conv.IconColor,
		&conv.InviteCode, &conv.CreatedBy, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, type, name, icon_text, icon_color, invite_code, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		conv.ID, conv.Type, conv.Name, conv.IconText, conv.IconColor,
		conv.InviteCode, conv.CreatedBy, conv.CreatedAt, conv.UpdatedAt,
	)
	return err
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE id = $1`, conversationColumns)
	return scanConversation(r.pool.QueryRow(ctx, query, id))
}

func (r *ConversationRepo) GetByInviteCode(ctx context.Context, code string) (*domain.Conversation, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE invite_code = $1 AND type = 'group'`, conversationColumns)
	return scanConversation(r.pool.QueryRow(ctx, query, code))
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM conversations
		WHERE id IN (SELECT conversation_id FROM conversation_members WHERE user_id = $1)
		ORDER BY updated_at DESC
		LIMIT %d`, conversationColumns, limit)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.Type, &conv.Name, &conv.IconText, &conv.IconColor,
			&conv.InviteCode, &conv.CreatedBy, &conv.CreatedAt, &conv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// FindDirectBetween looks for an existing direct conversation shared by both
// users. Direct conversations are unique per member pair; creation must call
// this first.
func (r *ConversationRepo) FindDirectBetween(ctx context.Context, userID, otherID uuid.UUID) (*domain.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM conversations
		WHERE type = 'direct'
			AND id IN (SELECT conversation_id FROM conversation_members WHERE user_id = $1)
			AND id IN (SELECT conversation_id FROM conversation_members WHERE user_id = $2)
		LIMIT 1`, conversationColumns)
	return scanConversation(r.pool.QueryRow(ctx, query, userID, otherID))
}

func (r *ConversationRepo) Update(ctx context.Context, conv *domain.Conversation) error {
	query := `
		UPDATE conversations
		SET name = $1, icon_text = $2, icon_color = $3, updated_at = $4
		WHERE id = $5`
	_, err := r.pool.Exec(ctx, query, conv.Name, conv.IconText, conv.IconColor, time.Now(), conv.ID)
	return err
}

func (r *ConversationRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *ConversationRepo) AddMembers(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) error {
	query := `
		INSERT INTO conversation_members (conversation_id, user_id, last_read_at, joined_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (conversation_id, user_id) DO NOTHING`
	now := time.Now()
	for _, userID := range userIDs {
		if _, err := r.pool.Exec(ctx, query, conversationID, userID, now); err != nil {
			return err
		}
	}
	return nil
}

func (r *ConversationRepo) RemoveMember(ctx context.Context, conversationID, userID uuid.UUID) error {
	query := `DELETE FROM conversation_members WHERE conversation_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, conversationID, userID)
	return err
}

func (r *ConversationRepo) GetMember(ctx context.Context, conversationID, userID uuid.UUID) (*domain.ConversationMember, error) {
	query := `
		SELECT conversation_id, user_id, last_read_at, joined_at
		FROM conversation_members
		WHERE conversation_id = $1 AND user_id = $2`
	var member domain.ConversationMember
	err := r.pool.QueryRow(ctx, query, conversationID, userID).Scan(
		&member.ConversationID, &member.UserID, &member.LastReadAt, &member.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *ConversationRepo) ListMembers(ctx context.Context, conversationIDs []uuid.UUID) ([]domain.MemberWithProfile, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT cm.conversation_id, cm.user_id, cm.last_read_at, cm.joined_at,
			p.id, p.display_name, p.avatar_color, p.friend_code, p.created_at, p.updated_at
		FROM conversation_members cm
		JOIN profiles p ON cm.user_id = p.id
		WHERE cm.conversation_id = ANY($1)
		ORDER BY cm.joined_at ASC`
	rows, err := r.pool.Query(ctx, query, conversationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.MemberWithProfile
	for rows.Next() {
		var m domain.MemberWithProfile
		if err := rows.Scan(
			&m.ConversationID, &m.UserID, &m.LastReadAt, &m.JoinedAt,
			&m.Profile.ID, &m.Profile.DisplayName, &m.Profile.AvatarColor,
			&m.Profile.FriendCode, &m.Profile.CreatedAt, &m.Profile.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *ConversationRepo) UpdateLastRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE conversation_members SET last_read_at = $1
		WHERE conversation_id = $2 AND user_id = $3`
	_, err := r.pool.Exec(ctx, query, at, conversationID, userID)
	return err
}
