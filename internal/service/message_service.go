package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
	"github.com/TheLunarRock/hi-and-low-game/internal/repository"
)

var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotMessageSender     = errors.New("only the message sender can perform this action")
	ErrEmptyMessage         = errors.New("message needs text or an image")
	ErrMessageTooLong       = fmt.Errorf("message exceeds %d characters", domain.MessageMaxLength)
	ErrUnknownEmoji         = errors.New("emoji is not in the reaction palette")
	ErrImageTooLarge        = errors.New("image exceeds the size limit")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrUploadsUnavailable   = errors.New("image uploads are not configured")
)

// Uploader stores an image blob and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type MessageService struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	reactionRepo     repository.ReactionRepository
	uploader         Uploader
	now              func() time.Time
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	conversationRepo repository.ConversationRepository,
	reactionRepo repository.ReactionRepository,
) *MessageService {
	return &MessageService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		reactionRepo:     reactionRepo,
		now:              time.Now,
	}
}

// SetUploader sets the blob storage backend (optional dependency).
func (s *MessageService) SetUploader(u Uploader) {
	s.uploader = u
}

type MessagePage struct {
	Messages []domain.MessageWithDetails `json:"messages"`
	HasMore  bool                        `json:"has_more"`
}

// FetchPage returns one chronological page of message details. Without a
// cursor it is the most recent page; with one, messages strictly older than
// the cursor. HasMore is derived strictly as pageLen >= page size, so a
// conversation holding exactly one page reports HasMore until an empty
// follow-up page resolves it.
func (s *MessageService) FetchPage(ctx context.Context, conversationID uuid.UUID, cursor *time.Time) (*MessagePage, error) {
	messages, err := s.messageRepo.FetchPage(ctx, conversationID, cursor, domain.MessagesPerPage)
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}
	if messages == nil {
		messages = []domain.MessageWithDetails{}
	}
	return &MessagePage{
		Messages: messages,
		HasMore:  len(messages) >= domain.MessagesPerPage,
	}, nil
}

type SendInput struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	ImageURL       string
	ReplyToID      *uuid.UUID
}

// Send validates and submits an outgoing message. Content is trimmed and an
// empty string treated as absent; at least one of content/image must remain.
// The caller's own open timeline gets the message back via the realtime
// echo, not via an optimistic local insert.
func (s *MessageService) Send(ctx context.Context, input SendInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.ImageURL == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(content)) > domain.MessageMaxLength {
		return nil, ErrMessageTooLong
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		ReplyToID:      input.ReplyToID,
		CreatedAt:      s.now(),
	}
	if content != "" {
		msg.Content = &content
	}
	if input.ImageURL != "" {
		imageURL := input.ImageURL
		msg.ImageURL = &imageURL
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	// Bump the conversation so the list sorts it to the top.
	if err := s.conversationRepo.Touch(ctx, input.ConversationID, s.now()); err != nil {
		return nil, fmt.Errorf("touching conversation: %w", err)
	}

	return msg, nil
}

// Delete soft-deletes a message: content and image are cleared, is_deleted
// set. The timeline picks the change up through the realtime update event.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return ErrNotMessageSender
	}

	return s.messageRepo.SoftDelete(ctx, messageID)
}

func (s *MessageService) AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	if !allowedEmoji(emoji) {
		return ErrUnknownEmoji
	}
	reaction := &domain.MessageReaction{
		ID:        uuid.New(),
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: s.now(),
	}
	return s.reactionRepo.Add(ctx, reaction)
}

func (s *MessageService) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	return s.reactionRepo.Remove(ctx, messageID, userID, emoji)
}

// UploadImage validates and stores an image, returning the public URL to
// pass as SendInput.ImageURL. The uploader is optional; without one,
// uploads fail with ErrUploadsUnavailable.
func (s *MessageService) UploadImage(ctx context.Context, senderID uuid.UUID, filename, contentType string, data []byte) (string, error) {
	if s.uploader == nil {
		return "", ErrUploadsUnavailable
	}
	if len(data) > domain.ImageMaxSizeBytes {
		return "", ErrImageTooLarge
	}
	allowed := false
	for _, t := range domain.AllowedImageTypes {
		if t == contentType {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", ErrUnsupportedImageType
	}

	key := fmt.Sprintf("%s/%s%s", senderID, uuid.New(), path.Ext(filename))
	return s.uploader.Upload(ctx, key, contentType, data)
}

func allowedEmoji(emoji string) bool {
	for _, e := range domain.ReactionEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}
