package timeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
	"github.com/TheLunarRock/hi-and-low-game/internal/feed"
	"github.com/TheLunarRock/hi-and-low-game/internal/service"
)

const markReadTimeout = 5 * time.Second

// Fetcher is the message fetch service contract.
type Fetcher interface {
	FetchPage(ctx context.Context, conversationID uuid.UUID, cursor *time.Time) (*service.MessagePage, error)
}

// ProfileLookup resolves sender profiles for realtime rows, which carry
// foreign keys only.
type ProfileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

// ReadMarker advances the viewer's read watermark.
type ReadMarker interface {
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error
}

// Notifier receives the engine's outbound side effects.
type Notifier interface {
	// TimelineChanged fires after any merge that changed the visible list.
	TimelineChanged(conversationID uuid.UUID, messages []domain.MessageWithDetails, hasMore bool)
	// MessageReceived fires for realtime arrivals not authored by the
	// viewer (receive sound, OS notification).
	MessageReceived(msg *domain.MessageWithDetails)
}

// Engine keeps the ordered message list of the active conversation correct
// under three racing update sources: the initial/paginated fetch, the
// realtime change feed, and the periodic poll fallback. Merges are
// serialized and individually idempotent; every async completion is
// generation-checked so a slow response for a previous conversation can
// never clobber the current one. Merge failures are silent: the list
// degrades to slightly stale and the next poll self-heals.
type Engine struct {
	fetcher   Fetcher
	profiles  ProfileLookup
	readState ReadMarker
	feed      feed.Feed
	notifier  Notifier
	logger    *zap.SugaredLogger
	viewerID  uuid.UUID

	pollInterval time.Duration
	visible      atomic.Bool
	pollNow      chan struct{}

	mu             sync.Mutex
	gen            uint64
	conversationID uuid.UUID
	messages       []domain.MessageWithDetails
	hasMore        bool
	loadingOlder   bool
	cancel         context.CancelFunc
}

func NewEngine(
	viewerID uuid.UUID,
	fetcher Fetcher,
	profiles ProfileLookup,
	readState ReadMarker,
	f feed.Feed,
	logger *zap.SugaredLogger,
) *Engine {
	e := &Engine{
		fetcher:      fetcher,
		profiles:     profiles,
		readState:    readState,
		feed:         f,
		logger:       logger,
		viewerID:     viewerID,
		pollInterval: domain.PollInterval,
		pollNow:      make(chan struct{}, 1),
	}
	e.visible.Store(true)
	return e
}

// SetNotifier sets the side-effect sink (optional dependency).
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// SetPollInterval overrides the reconciliation cadence.
func (e *Engine) SetPollInterval(d time.Duration) {
	e.pollInterval = d
}

// Open makes conversationID the active conversation: previous state is
// discarded, the first page is fetched, the realtime subscriptions and the
// poll loop are started, and the conversation is marked read. Realtime
// events for the conversation that arrive before Open completes are not
// buffered; the initial fetch window or the next poll covers them.
func (e *Engine) Open(ctx context.Context, conversationID uuid.UUID) error {
	e.Close()

	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.conversationID = conversationID
	e.messages = nil
	e.hasMore = false
	e.loadingOlder = false
	e.mu.Unlock()

	page, err := e.fetcher.FetchPage(ctx, conversationID, nil)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return nil
	}
	e.messages = page.Messages
	e.hasMore = page.HasMore
	snapshot := e.snapshotLocked()
	hasMore := e.hasMore

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	e.markRead(conversationID)

	inserts, err := e.feed.Subscribe(feed.Spec{
		Table:   "messages",
		Actions: []string{feed.ActionInsert},
		Filter:  &feed.Filter{Column: "conversation_id", Value: conversationID.String()},
	})
	if err != nil {
		return err
	}
	updates, err := e.feed.Subscribe(feed.Spec{
		Table:   "messages",
		Actions: []string{feed.ActionUpdate},
		Filter:  &feed.Filter{Column: "conversation_id", Value: conversationID.String()},
	})
	if err != nil {
		inserts.Close()
		return err
	}
	// Reaction deltas are cheap and rare; any event triggers a conservative
	// refetch, so no filter is needed.
	reactions, err := e.feed.Subscribe(feed.Spec{
		Table:   "message_reactions",
		Actions: []string{feed.ActionInsert, feed.ActionUpdate, feed.ActionDelete},
	})
	if err != nil {
		inserts.Close()
		updates.Close()
		return err
	}

	go e.run(runCtx, gen, conversationID, inserts, updates, reactions)

	e.notifyTimeline(conversationID, snapshot, hasMore)
	return nil
}

// Close leaves the active conversation: subscriptions and the poll loop are
// torn down and in-flight completions for it are invalidated.
func (e *Engine) Close() {
	e.mu.Lock()
	e.gen++
	e.conversationID = uuid.Nil
	e.messages = nil
	e.hasMore = false
	e.loadingOlder = false
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// SetVisible pauses or resumes the poll loop. Returning to the foreground
// triggers an immediate reconciliation pass, the mitigation for realtime
// drops while backgrounded.
func (e *Engine) SetVisible(visible bool) {
	wasVisible := e.visible.Swap(visible)
	if visible && !wasVisible {
		select {
		case e.pollNow <- struct{}{}:
		default:
		}
	}
}

// Messages returns a copy of the current chronological list.
func (e *Engine) Messages() []domain.MessageWithDetails {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMore
}

// LoadOlder pages history in below the current window. No-op while a load
// is in flight, when no more history exists, or when the list is empty.
func (e *Engine) LoadOlder(ctx context.Context) {
	e.mu.Lock()
	if e.loadingOlder || !e.hasMore || len(e.messages) == 0 {
		e.mu.Unlock()
		return
	}
	e.loadingOlder = true
	gen := e.gen
	conversationID := e.conversationID
	cursor := e.messages[0].Message.CreatedAt
	e.mu.Unlock()

	page, err := e.fetcher.FetchPage(ctx, conversationID, &cursor)

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	e.loadingOlder = false
	if err != nil {
		e.mu.Unlock()
		e.logger.Warnw("timeline: load older failed", "error", err)
		return
	}
	e.messages = append(page.Messages, e.messages...)
	e.hasMore = page.HasMore
	snapshot := e.snapshotLocked()
	hasMore := e.hasMore
	e.mu.Unlock()

	e.notifyTimeline(conversationID, snapshot, hasMore)
}

// run consumes the realtime streams and the poll ticker for one opened
// conversation. A single goroutine per open conversation applies all
// merges, so no two merges ever interleave. A closed stream only silences
// that stream: the poll loop keeps reconciling, so a dropped feed
// connection degrades to poll-only rather than freezing the timeline.
// Only ctx cancellation ends the loop.
func (e *Engine) run(ctx context.Context, gen uint64, conversationID uuid.UUID, inserts, updates, reactions feed.Stream) {
	defer inserts.Close()
	defer updates.Close()
	defer reactions.Close()

	insertEvents := inserts.Events()
	updateEvents := updates.Events()
	reactionEvents := reactions.Events()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-insertEvents:
			if !ok {
				e.logger.Warnw("timeline: insert stream closed, relying on poll",
					"conversation_id", conversationID)
				insertEvents = nil
				continue
			}
			e.handleRealtimeInsert(ctx, gen, conversationID, ev)

		case ev, ok := <-updateEvents:
			if !ok {
				e.logger.Warnw("timeline: update stream closed, relying on poll",
					"conversation_id", conversationID)
				updateEvents = nil
				continue
			}
			e.handleRealtimeUpdate(gen, conversationID, ev)

		case _, ok := <-reactionEvents:
			if !ok {
				e.logger.Warnw("timeline: reaction stream closed, relying on poll",
					"conversation_id", conversationID)
				reactionEvents = nil
				continue
			}
			e.handleReactionEvent(ctx, gen, conversationID)

		case <-ticker.C:
			if e.visible.Load() {
				e.poll(ctx, gen, conversationID)
			}

		case <-e.pollNow:
			if e.visible.Load() {
				e.poll(ctx, gen, conversationID)
			}
		}
	}
}

// handleRealtimeInsert enriches the raw row with its sender profile and
// appends it if unseen. Reactions and reply-to stay empty for realtime
// rows; the next reconciliation corrects them. An enrichment failure drops
// the event entirely rather than inserting a partially-correct message.
func (e *Engine) handleRealtimeInsert(ctx context.Context, gen uint64, conversationID uuid.UUID, ev feed.RowEvent) {
	var row domain.Message
	if err := ev.DecodeInto(&row); err != nil {
		e.logger.Warnw("timeline: bad insert row", "error", err)
		return
	}

	sender, err := e.profiles.GetByID(ctx, row.SenderID)
	if err != nil || sender == nil {
		e.logger.Warnw("timeline: sender lookup failed, dropping insert", "message_id", row.ID, "error", err)
		return
	}

	detail := domain.MessageWithDetails{
		Message:   row,
		Sender:    *sender,
		Reactions: []domain.ReactionWithUser{},
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	merged, added := appendIfNew(e.messages, detail)
	if !added {
		e.mu.Unlock()
		return
	}
	e.messages = merged
	snapshot := e.snapshotLocked()
	hasMore := e.hasMore
	e.mu.Unlock()

	e.notifyTimeline(conversationID, snapshot, hasMore)

	if row.SenderID != e.viewerID {
		e.markRead(conversationID)
		if e.notifier != nil {
			e.notifier.MessageReceived(&detail)
		}
	}
}

func (e *Engine) handleRealtimeUpdate(gen uint64, conversationID uuid.UUID, ev feed.RowEvent) {
	var row domain.Message
	if err := ev.DecodeInto(&row); err != nil {
		e.logger.Warnw("timeline: bad update row", "error", err)
		return
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	changed := applyUpdate(e.messages, row)
	if !changed {
		// Row not loaded yet; the next poll fetches it directly.
		e.mu.Unlock()
		return
	}
	snapshot := e.snapshotLocked()
	hasMore := e.hasMore
	e.mu.Unlock()

	e.notifyTimeline(conversationID, snapshot, hasMore)
}

// handleReactionEvent ignores the payload and refetches the most recent
// page for authoritative reaction sets, merged without truncating history
// paginated in beyond it.
func (e *Engine) handleReactionEvent(ctx context.Context, gen uint64, conversationID uuid.UUID) {
	page, err := e.fetcher.FetchPage(ctx, conversationID, nil)
	if err != nil {
		e.logger.Debugw("timeline: reaction refresh failed", "error", err)
		return
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	e.messages = applyReactionRefresh(e.messages, page.Messages)
	snapshot := e.snapshotLocked()
	hasMore := e.hasMore
	e.mu.Unlock()

	e.notifyTimeline(conversationID, snapshot, hasMore)
}

// poll is the reconciliation fallback for missed realtime events.
func (e *Engine) poll(ctx context.Context, gen uint64, conversationID uuid.UUID) {
	page, err := e.fetcher.FetchPage(ctx, conversationID, nil)
	if err != nil {
		e.logger.Debugw("timeline: poll failed", "error", err)
		return
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	merged, changed := mergePolled(e.messages, page.Messages)
	if !changed {
		e.mu.Unlock()
		e.markRead(conversationID)
		return
	}
	e.messages = merged
	snapshot := e.snapshotLocked()
	hasMore := e.hasMore
	e.mu.Unlock()

	e.notifyTimeline(conversationID, snapshot, hasMore)
	e.markRead(conversationID)
}

// markRead is fire-and-forget: a failed watermark write never blocks
// message display.
func (e *Engine) markRead(conversationID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), markReadTimeout)
		defer cancel()
		if err := e.readState.MarkRead(ctx, conversationID, e.viewerID); err != nil {
			e.logger.Debugw("timeline: mark read failed", "conversation_id", conversationID, "error", err)
		}
	}()
}

func (e *Engine) snapshotLocked() []domain.MessageWithDetails {
	snapshot := make([]domain.MessageWithDetails, len(e.messages))
	copy(snapshot, e.messages)
	return snapshot
}

func (e *Engine) notifyTimeline(conversationID uuid.UUID, messages []domain.MessageWithDetails, hasMore bool) {
	if e.notifier != nil {
		e.notifier.TimelineChanged(conversationID, messages, hasMore)
	}
}
