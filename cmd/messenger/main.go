package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/TheLunarRock/hi-and-low-game/internal/auth"
	"github.com/TheLunarRock/hi-and-low-game/internal/config"
	"github.com/TheLunarRock/hi-and-low-game/internal/database"
	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
	"github.com/TheLunarRock/hi-and-low-game/internal/feed"
	"github.com/TheLunarRock/hi-and-low-game/internal/logging"
	postgresrepo "github.com/TheLunarRock/hi-and-low-game/internal/repository/postgres"
	"github.com/TheLunarRock/hi-and-low-game/internal/service"
	"github.com/TheLunarRock/hi-and-low-game/internal/storage"
	"github.com/TheLunarRock/hi-and-low-game/internal/timeline"
	"github.com/TheLunarRock/hi-and-low-game/pkg/validator"
)

// consoleNotifier prints timeline and badge updates; it stands in for the
// mobile UI's sound/notification/badge surface.
type consoleNotifier struct{}

func (consoleNotifier) TimelineChanged(conversationID uuid.UUID, messages []domain.MessageWithDetails, hasMore bool) {
	fmt.Printf("--- %s (%d messages, more: %v) ---\n", conversationID, len(messages), hasMore)
	for _, m := range messages {
		body := "[image]"
		if m.Message.IsDeleted {
			body = "[deleted]"
		} else if m.Message.Content != nil {
			body = *m.Message.Content
		}
		fmt.Printf("%s %s: %s\n", m.Message.CreatedAt.Format("15:04:05"), m.Sender.DisplayName, body)
	}
}

func (consoleNotifier) MessageReceived(msg *domain.MessageWithDetails) {
	fmt.Printf("* new message from %s\n", msg.Sender.DisplayName)
}

func (consoleNotifier) ConversationsChanged(conversations []domain.ConversationWithDetails, totalUnread int) {
	fmt.Printf("* %d conversations, %d unread\n", len(conversations), totalUnread)
}

func main() {
	conversationFlag := flag.String("conversation", "", "conversation id to open")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	userID, err := auth.UserIDFromToken(cfg.AccessToken, cfg.JWTSecret)
	if err != nil {
		logger.Fatalw("invalid session", "error", err)
	}

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("connected to store")

	// Repositories
	profileRepo := postgresrepo.NewProfileRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	conversationRepo := postgresrepo.NewConversationRepo(pool)
	reactionRepo := postgresrepo.NewReactionRepo(pool)
	friendshipRepo := postgresrepo.NewFriendshipRepo(pool)

	// Services
	messageService := service.NewMessageService(messageRepo, conversationRepo, reactionRepo)
	conversationService := service.NewConversationService(conversationRepo, messageRepo)
	readStateService := service.NewReadStateService(conversationRepo, messageRepo)
	friendshipService := service.NewFriendshipService(friendshipRepo, profileRepo)

	if cfg.S3Bucket != "" {
		store, err := storage.NewS3Store(context.Background(), cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			logger.Fatalw("storage init failed", "error", err)
		}
		messageService.SetUploader(store)
	}

	// Change feed
	feedClient, err := feed.Dial(context.Background(), cfg.FeedURL, cfg.AccessToken, logger)
	if err != nil {
		logger.Fatalw("feed dial failed", "error", err)
	}
	defer feedClient.Close()
	logger.Info("connected to change feed")

	notifier := consoleNotifier{}

	// Cross-conversation unread badges
	watcher := timeline.NewWatcher(userID, conversationService, feedClient, logger)
	watcher.SetNotifier(notifier)
	if err := watcher.Start(context.Background()); err != nil {
		logger.Fatalw("watcher start failed", "error", err)
	}
	defer watcher.Stop()

	// Active conversation timeline
	engine := timeline.NewEngine(userID, messageService, profileRepo, readStateService, feedClient, logger)
	engine.SetNotifier(notifier)
	defer engine.Close()

	cli := &commandLoop{
		engine:        engine,
		messages:      messageService,
		conversations: conversationService,
		friends:       friendshipService,
		userID:        userID,
		logger:        logger,
	}

	if *conversationFlag != "" {
		conversationID, err := uuid.Parse(*conversationFlag)
		if err != nil {
			logger.Fatalw("bad conversation id", "error", err)
		}
		if err := engine.Open(context.Background(), conversationID); err != nil {
			logger.Fatalw("open conversation failed", "error", err)
		}
		cli.conversationID = conversationID
	}

	go cli.run()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
}

// commandLoop turns stdin lines into sends and slash commands. A failed send
// restores nothing here; the caller sees the error and can retype, matching
// the restorable draft behavior.
type commandLoop struct {
	engine        *timeline.Engine
	messages      *service.MessageService
	conversations *service.ConversationService
	friends       *service.FriendshipService
	userID        uuid.UUID
	logger        *zap.SugaredLogger

	conversationID uuid.UUID
}

func (c *commandLoop) run() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			c.command(line)
			continue
		}
		if c.conversationID == uuid.Nil {
			fmt.Println("no conversation open")
			continue
		}

		_, err := c.messages.Send(context.Background(), service.SendInput{
			ConversationID: c.conversationID,
			SenderID:       c.userID,
			Content:        line,
		})
		if err != nil {
			c.logger.Warnw("send failed", "error", err)
		}
	}
}

func (c *commandLoop) command(line string) {
	ctx := context.Background()
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/older":
		c.engine.LoadOlder(ctx)

	case "/open":
		conversationID, err := uuid.Parse(arg)
		if err != nil {
			fmt.Println("usage: /open <conversation-id>")
			return
		}
		if err := c.engine.Open(ctx, conversationID); err != nil {
			c.logger.Warnw("open failed", "error", err)
			return
		}
		c.conversationID = conversationID

	case "/friend":
		if errs := validator.ValidateCode(arg); errs.HasErrors() {
			fmt.Println("usage: /friend <friend-code>")
			return
		}
		friend, err := c.friends.AddByFriendCode(ctx, c.userID, arg)
		if err != nil {
			c.logger.Warnw("add friend failed", "error", err)
			return
		}
		fmt.Printf("added %s\n", friend.DisplayName)

	case "/join":
		if errs := validator.ValidateCode(arg); errs.HasErrors() {
			fmt.Println("usage: /join <invite-code>")
			return
		}
		conv, err := c.conversations.JoinByInviteCode(ctx, c.userID, arg)
		if err != nil {
			c.logger.Warnw("join failed", "error", err)
			return
		}
		fmt.Printf("joined %s\n", conv.ID)

	case "/react":
		messageID, emoji, ok := splitIDArg(arg)
		if !ok {
			fmt.Println("usage: /react <message-id> <emoji>")
			return
		}
		if err := c.messages.AddReaction(ctx, messageID, c.userID, emoji); err != nil {
			c.logger.Warnw("react failed", "error", err)
		}

	case "/unreact":
		messageID, emoji, ok := splitIDArg(arg)
		if !ok {
			fmt.Println("usage: /unreact <message-id> <emoji>")
			return
		}
		if err := c.messages.RemoveReaction(ctx, messageID, c.userID, emoji); err != nil {
			c.logger.Warnw("unreact failed", "error", err)
		}

	case "/delete":
		messageID, err := uuid.Parse(arg)
		if err != nil {
			fmt.Println("usage: /delete <message-id>")
			return
		}
		if err := c.messages.Delete(ctx, c.userID, messageID); err != nil {
			c.logger.Warnw("delete failed", "error", err)
		}

	default:
		fmt.Println("commands: /open /older /friend /join /react /unreact /delete")
	}
}

func splitIDArg(arg string) (uuid.UUID, string, bool) {
	idStr, rest, ok := strings.Cut(arg, " ")
	if !ok {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, strings.TrimSpace(rest), true
}
