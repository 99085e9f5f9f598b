package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageDetailColumns = `
	m.id, m.conversation_id, m.sender_id, m.content, m.image_url,
	m.reply_to_id, m.is_deleted, m.created_at,
	p.id, p.display_name, p.avatar_color, p.friend_code, p.created_at, p.updated_at`

func (r *MessageRepo) FetchPage(ctx context.Context, conversationID uuid.UUID, cursor *time.Time, limit int) ([]domain.MessageWithDetails, error) {
	var query string
	var args []any

	if cursor != nil {
		query = fmt.Sprintf(`
			SELECT %s
			FROM messages m
			JOIN profiles p ON m.sender_id = p.id
			WHERE m.conversation_id = $1 AND m.created_at < $2
			ORDER BY m.created_at DESC
			LIMIT %d`, messageDetailColumns, limit)
		args = []any{conversationID, *cursor}
	} else {
		query = fmt.Sprintf(`
			SELECT %s
			FROM messages m
			JOIN profiles p ON m.sender_id = p.id
			WHERE m.conversation_id = $1
			ORDER BY m.created_at DESC
			LIMIT %d`, messageDetailColumns, limit)
		args = []any{conversationID}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []domain.MessageWithDetails
	var replyToIDs []uuid.UUID
	var messageIDs []uuid.UUID
	for rows.Next() {
		var d domain.MessageWithDetails
		if err := rows.Scan(
			&d.Message.ID, &d.Message.ConversationID, &d.Message.SenderID,
			&d.Message.Content, &d.Message.ImageURL, &d.Message.ReplyToID,
			&d.Message.IsDeleted, &d.Message.CreatedAt,
			&d.Sender.ID, &d.Sender.DisplayName, &d.Sender.AvatarColor,
			&d.Sender.FriendCode, &d.Sender.CreatedAt, &d.Sender.UpdatedAt,
		); err != nil {
			return nil, err
		}
		d.Reactions = []domain.ReactionWithUser{}
		messageIDs = append(messageIDs, d.Message.ID)
		if d.Message.ReplyToID != nil {
			replyToIDs = append(replyToIDs, *d.Message.ReplyToID)
		}
		page = append(page, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reactions and reply-to targets come from separate batched queries: the
	// store cannot self-join messages in one pass. The two lookups are
	// independent, so run them concurrently.
	var (
		reactions map[uuid.UUID][]domain.ReactionWithUser
		replies   map[uuid.UUID]domain.MessageWithSender
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reactions, err = r.fetchReactions(gctx, messageIDs)
		return err
	})
	g.Go(func() error {
		var err error
		replies, err = r.fetchReplyTargets(gctx, replyToIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range page {
		if rs, ok := reactions[page[i].Message.ID]; ok {
			page[i].Reactions = rs
		}
		if page[i].Message.ReplyToID != nil {
			if reply, ok := replies[*page[i].Message.ReplyToID]; ok {
				replyCopy := reply
				page[i].ReplyTo = &replyCopy
			}
		}
	}

	// Reverse to chronological order (query returns DESC)
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}

	return page, nil
}

func (r *MessageRepo) fetchReactions(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID][]domain.ReactionWithUser, error) {
	result := make(map[uuid.UUID][]domain.ReactionWithUser)
	if len(messageIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT r.id, r.message_id, r.user_id, r.emoji, r.created_at,
			p.id, p.display_name, p.avatar_color, p.friend_code, p.created_at, p.updated_at
		FROM message_reactions r
		JOIN profiles p ON r.user_id = p.id
		WHERE r.message_id = ANY($1)
		ORDER BY r.created_at ASC`
	rows, err := r.pool.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rw domain.ReactionWithUser
		if err := rows.Scan(
			&rw.ID, &rw.MessageID, &rw.UserID, &rw.Emoji, &rw.CreatedAt,
			&rw.User.ID, &rw.User.DisplayName, &rw.User.AvatarColor,
			&rw.User.FriendCode, &rw.User.CreatedAt, &rw.User.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[rw.MessageID] = append(result[rw.MessageID], rw)
	}
	return result, rows.Err()
}

func (r *MessageRepo) fetchReplyTargets(ctx context.Context, replyToIDs []uuid.UUID) (map[uuid.UUID]domain.MessageWithSender, error) {
	result := make(map[uuid.UUID]domain.MessageWithSender)
	if len(replyToIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM messages m
		JOIN profiles p ON m.sender_id = p.id
		WHERE m.id = ANY($1)`, messageDetailColumns)
	rows, err := r.pool.Query(ctx, query, replyToIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ms domain.MessageWithSender
		if err := rows.Scan(
			&ms.Message.ID, &ms.Message.ConversationID, &ms.Message.SenderID,
			&ms.Message.Content, &ms.Message.ImageURL, &ms.Message.ReplyToID,
			&ms.Message.IsDeleted, &ms.Message.CreatedAt,
			&ms.Sender.ID, &ms.Sender.DisplayName, &ms.Sender.AvatarColor,
			&ms.Sender.FriendCode, &ms.Sender.CreatedAt, &ms.Sender.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[ms.Message.ID] = ms
	}
	return result, rows.Err()
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, image_url, reply_to_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.ImageURL, msg.ReplyToID, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, image_url, reply_to_id, is_deleted, created_at
		FROM messages
		WHERE id = $1`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content,
		&msg.ImageURL, &msg.ReplyToID, &msg.IsDeleted, &msg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	// Content and image are wiped together with the flag; the transition is
	// one-directional.
	query := `UPDATE messages SET is_deleted = TRUE, content = NULL, image_url = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *MessageRepo) LatestByConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, image_url, reply_to_id, is_deleted, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content,
		&msg.ImageURL, &msg.ReplyToID, &msg.IsDeleted, &msg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID uuid.UUID, after time.Time, viewerID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(id)
		FROM messages
		WHERE conversation_id = $1 AND created_at > $2 AND sender_id <> $3`
	var count int
	err := r.pool.QueryRow(ctx, query, conversationID, after, viewerID).Scan(&count)
	return count, err
}
