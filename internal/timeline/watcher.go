package timeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
	"github.com/TheLunarRock/hi-and-low-game/internal/feed"
)

// ConversationLister assembles the conversation list read model.
type ConversationLister interface {
	ListWithDetails(ctx context.Context, userID uuid.UUID) ([]domain.ConversationWithDetails, error)
}

// BadgeNotifier receives conversation-list refreshes for badge and
// notification display.
type BadgeNotifier interface {
	ConversationsChanged(conversations []domain.ConversationWithDetails, totalUnread int)
}

// Watcher keeps the cross-conversation unread view fresh. It holds two
// conversation-independent subscriptions (every messages INSERT, every
// conversations UPDATE) and answers each event by refreshing the whole
// list; unread counts are derived server-side, so a bounded refetch is the
// whole reconciliation.
type Watcher struct {
	lister   ConversationLister
	feed     feed.Feed
	notifier BadgeNotifier
	logger   *zap.SugaredLogger
	userID   uuid.UUID

	mu            sync.Mutex
	conversations []domain.ConversationWithDetails
	totalUnread   int
	cancel        context.CancelFunc
}

func NewWatcher(userID uuid.UUID, lister ConversationLister, f feed.Feed, logger *zap.SugaredLogger) *Watcher {
	return &Watcher{
		lister: lister,
		feed:   f,
		logger: logger,
		userID: userID,
	}
}

// SetNotifier sets the badge sink (optional dependency).
func (w *Watcher) SetNotifier(n BadgeNotifier) {
	w.notifier = n
}

// Start loads the initial list and begins watching. Stop releases the
// subscriptions.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.Refresh(ctx); err != nil {
		return err
	}

	inserts, err := w.feed.Subscribe(feed.Spec{
		Table:   "messages",
		Actions: []string{feed.ActionInsert},
	})
	if err != nil {
		return err
	}
	convUpdates, err := w.feed.Subscribe(feed.Spec{
		Table:   "conversations",
		Actions: []string{feed.ActionUpdate},
	})
	if err != nil {
		inserts.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	go w.run(runCtx, inserts, convUpdates)
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (w *Watcher) run(ctx context.Context, inserts, convUpdates feed.Stream) {
	defer inserts.Close()
	defer convUpdates.Close()

	insertEvents := inserts.Events()
	updateEvents := convUpdates.Events()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-insertEvents:
			if !ok {
				insertEvents = nil
				continue
			}
		case _, ok := <-updateEvents:
			if !ok {
				updateEvents = nil
				continue
			}
		}

		if err := w.Refresh(ctx); err != nil {
			w.logger.Debugw("watcher: refresh failed", "error", err)
		}
	}
}

// Refresh refetches the conversation list and recomputes the unread totals.
func (w *Watcher) Refresh(ctx context.Context) error {
	conversations, err := w.lister.ListWithDetails(ctx, w.userID)
	if err != nil {
		return err
	}

	total := 0
	for _, conv := range conversations {
		total += conv.UnreadCount
	}

	w.mu.Lock()
	w.conversations = conversations
	w.totalUnread = total
	w.mu.Unlock()

	if w.notifier != nil {
		w.notifier.ConversationsChanged(conversations, total)
	}
	return nil
}

// Conversations returns the last refreshed list.
func (w *Watcher) Conversations() []domain.ConversationWithDetails {
	w.mu.Lock()
	defer w.mu.Unlock()
	snapshot := make([]domain.ConversationWithDetails, len(w.conversations))
	copy(snapshot, w.conversations)
	return snapshot
}

// TotalUnread is the badge count across all conversations.
func (w *Watcher) TotalUnread() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalUnread
}
