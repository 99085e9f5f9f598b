package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
)

func chronoPage(conversationID uuid.UUID, n int, start time.Time) []domain.MessageWithDetails {
	out := make([]domain.MessageWithDetails, n)
	for i := range out {
		content := "message"
		out[i] = domain.MessageWithDetails{
			Message: domain.Message{
				ID:             uuid.New(),
				ConversationID: conversationID,
				SenderID:       uuid.New(),
				Content:        &content,
				CreatedAt:      start.Add(time.Duration(i) * time.Second),
			},
			Sender:    domain.Profile{ID: uuid.New()},
			Reactions: []domain.ReactionWithUser{},
		}
	}
	return out
}

func TestFetchPageHasMoreAtFullPage(t *testing.T) {
	conversationID := uuid.New()
	msgRepo := &stubMessageRepo{
		fetchPageFn: func(_ context.Context, _ uuid.UUID, cursor *time.Time, limit int) ([]domain.MessageWithDetails, error) {
			require.Nil(t, cursor)
			require.Equal(t, domain.MessagesPerPage, limit)
			return chronoPage(conversationID, domain.MessagesPerPage, time.Now()), nil
		},
	}
	svc := NewMessageService(msgRepo, nil, nil)

	page, err := svc.FetchPage(context.Background(), conversationID, nil)
	require.NoError(t, err)
	assert.Len(t, page.Messages, domain.MessagesPerPage)
	// A full page reports more history even when none actually exists; the
	// next (empty) page resolves it.
	assert.True(t, page.HasMore)
}

func TestFetchPageEmptyResolvesHasMore(t *testing.T) {
	msgRepo := &stubMessageRepo{
		fetchPageFn: func(_ context.Context, _ uuid.UUID, _ *time.Time, _ int) ([]domain.MessageWithDetails, error) {
			return nil, nil
		},
	}
	svc := NewMessageService(msgRepo, nil, nil)

	page, err := svc.FetchPage(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.NotNil(t, page.Messages)
	assert.Empty(t, page.Messages)
	assert.False(t, page.HasMore)
}

func TestSendTrimsContent(t *testing.T) {
	var created *domain.Message
	var touched bool
	msgRepo := &stubMessageRepo{
		createFn: func(_ context.Context, msg *domain.Message) error {
			created = msg
			return nil
		},
	}
	convRepo := &stubConversationRepo{
		touchFn: func(_ context.Context, _ uuid.UUID, _ time.Time) error {
			touched = true
			return nil
		},
	}
	svc := NewMessageService(msgRepo, convRepo, nil)

	msg, err := svc.Send(context.Background(), SendInput{
		ConversationID: uuid.New(),
		SenderID:       uuid.New(),
		Content:        "  hello there  ",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.NotNil(t, created.Content)
	assert.Equal(t, "hello there", *created.Content)
	assert.Equal(t, created.ID, msg.ID)
	assert.True(t, touched, "sending must bump the conversation")
}

func TestSendRejectsEmpty(t *testing.T) {
	svc := NewMessageService(nil, nil, nil)

	_, err := svc.Send(context.Background(), SendInput{
		ConversationID: uuid.New(),
		SenderID:       uuid.New(),
		Content:        "   ",
	})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendAllowsImageOnly(t *testing.T) {
	msgRepo := &stubMessageRepo{
		createFn: func(_ context.Context, msg *domain.Message) error { return nil },
	}
	convRepo := &stubConversationRepo{
		touchFn: func(_ context.Context, _ uuid.UUID, _ time.Time) error { return nil },
	}
	svc := NewMessageService(msgRepo, convRepo, nil)

	msg, err := svc.Send(context.Background(), SendInput{
		ConversationID: uuid.New(),
		SenderID:       uuid.New(),
		ImageURL:       "https://example.com/pic.png",
	})
	require.NoError(t, err)
	assert.Nil(t, msg.Content)
	require.NotNil(t, msg.ImageURL)
	assert.Equal(t, "https://example.com/pic.png", *msg.ImageURL)
}

func TestSendRejectsOverlong(t *testing.T) {
	svc := NewMessageService(nil, nil, nil)

	_, err := svc.Send(context.Background(), SendInput{
		ConversationID: uuid.New(),
		SenderID:       uuid.New(),
		Content:        strings.Repeat("a", domain.MessageMaxLength+1),
	})
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestSendCountsRunesNotBytes(t *testing.T) {
	msgRepo := &stubMessageRepo{
		createFn: func(_ context.Context, msg *domain.Message) error { return nil },
	}
	convRepo := &stubConversationRepo{
		touchFn: func(_ context.Context, _ uuid.UUID, _ time.Time) error { return nil },
	}
	svc := NewMessageService(msgRepo, convRepo, nil)

	// Exactly at the limit in runes, over it in bytes.
	_, err := svc.Send(context.Background(), SendInput{
		ConversationID: uuid.New(),
		SenderID:       uuid.New(),
		Content:        strings.Repeat("あ", domain.MessageMaxLength),
	})
	assert.NoError(t, err)
}

func TestDeleteRequiresSender(t *testing.T) {
	ownerID := uuid.New()
	messageID := uuid.New()
	softDeleted := false
	msgRepo := &stubMessageRepo{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*domain.Message, error) {
			return &domain.Message{ID: id, SenderID: ownerID}, nil
		},
		softDeleteFn: func(_ context.Context, id uuid.UUID) error {
			softDeleted = true
			return nil
		},
	}
	svc := NewMessageService(msgRepo, nil, nil)

	err := svc.Delete(context.Background(), uuid.New(), messageID)
	assert.ErrorIs(t, err, ErrNotMessageSender)
	assert.False(t, softDeleted)

	require.NoError(t, svc.Delete(context.Background(), ownerID, messageID))
	assert.True(t, softDeleted)
}

func TestDeleteMissingMessage(t *testing.T) {
	msgRepo := &stubMessageRepo{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*domain.Message, error) {
			return nil, nil
		},
	}
	svc := NewMessageService(msgRepo, nil, nil)

	err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestAddReactionPalette(t *testing.T) {
	var added *domain.MessageReaction
	reactionRepo := &stubReactionRepo{
		addFn: func(_ context.Context, r *domain.MessageReaction) error {
			added = r
			return nil
		},
	}
	svc := NewMessageService(nil, nil, reactionRepo)

	err := svc.AddReaction(context.Background(), uuid.New(), uuid.New(), "🎉")
	assert.ErrorIs(t, err, ErrUnknownEmoji)
	assert.Nil(t, added)

	require.NoError(t, svc.AddReaction(context.Background(), uuid.New(), uuid.New(), domain.ReactionEmojis[0]))
	require.NotNil(t, added)
	assert.Equal(t, domain.ReactionEmojis[0], added.Emoji)
}

func TestUploadImageLimits(t *testing.T) {
	svc := NewMessageService(nil, nil, nil)
	svc.SetUploader(&stubUploader{})

	_, err := svc.UploadImage(context.Background(), uuid.New(), "big.png", "image/png", make([]byte, domain.ImageMaxSizeBytes+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = svc.UploadImage(context.Background(), uuid.New(), "doc.pdf", "application/pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedImageType)
}

func TestUploadImageWithoutUploader(t *testing.T) {
	svc := NewMessageService(nil, nil, nil)

	_, err := svc.UploadImage(context.Background(), uuid.New(), "photo.jpg", "image/jpeg", []byte("jpeg bytes"))
	assert.ErrorIs(t, err, ErrUploadsUnavailable)
}

type stubUploader struct {
	key         string
	contentType string
}

func (s *stubUploader) Upload(_ context.Context, key, contentType string, _ []byte) (string, error) {
	s.key = key
	s.contentType = contentType
	return "https://bucket.example.com/" + key, nil
}

func TestUploadImageKeyScopedToSender(t *testing.T) {
	uploader := &stubUploader{}
	svc := NewMessageService(nil, nil, nil)
	svc.SetUploader(uploader)
	senderID := uuid.New()

	url, err := svc.UploadImage(context.Background(), senderID, "photo.jpg", "image/jpeg", []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uploader.key, senderID.String()+"/"))
	assert.True(t, strings.HasSuffix(uploader.key, ".jpg"))
	assert.Equal(t, "image/jpeg", uploader.contentType)
	assert.Contains(t, url, uploader.key)
}
