package timeline

import (
	"github.com/google/uuid"

	"github.com/TheLunarRock/hi-and-low-game/internal/domain"
)

// Merge helpers for the in-memory timeline. The list is always chronological
// by created_at with ties kept in arrival order; entries are unique by id;
// is_deleted only ever goes false→true from the client's point of view.

// appendIfNew appends detail unless a message with the same id is already
// present. Idempotent: the same row arriving via realtime and via a poll
// cycle lands exactly once.
func appendIfNew(msgs []domain.MessageWithDetails, detail domain.MessageWithDetails) ([]domain.MessageWithDetails, bool) {
	for i := range msgs {
		if msgs[i].Message.ID == detail.Message.ID {
			return msgs, false
		}
	}
	return append(msgs, detail), true
}

// applyUpdate patches the mutable fields of an existing entry in place
// without reordering. Unknown ids are dropped: the row predates the initial
// load window and the next poll fetches it directly. A deleted entry is
// terminal and never patched back to life.
func applyUpdate(msgs []domain.MessageWithDetails, row domain.Message) bool {
	for i := range msgs {
		if msgs[i].Message.ID != row.ID {
			continue
		}
		if msgs[i].Message.IsDeleted {
			return false
		}
		msgs[i].Message.Content = row.Content
		msgs[i].Message.ImageURL = row.ImageURL
		msgs[i].Message.IsDeleted = row.IsDeleted
		return true
	}
	return false
}

// mergePolled folds a freshly polled recent page into the local list.
// Messages absent locally are appended; entries whose is_deleted flag was
// raised upstream are replaced with the polled version. Local messages
// missing from the poll are kept: the poll only covers the most recent page,
// and absence there never means deletion. When nothing applies the original
// slice is returned with changed=false so callers can skip re-rendering.
func mergePolled(prev, polled []domain.MessageWithDetails) ([]domain.MessageWithDetails, bool) {
	polledByID := make(map[uuid.UUID]*domain.MessageWithDetails, len(polled))
	for i := range polled {
		polledByID[polled[i].Message.ID] = &polled[i]
	}

	existing := make(map[uuid.UUID]struct{}, len(prev))
	hasUpdates := false
	for i := range prev {
		existing[prev[i].Message.ID] = struct{}{}
		if p, ok := polledByID[prev[i].Message.ID]; ok {
			if !prev[i].Message.IsDeleted && p.Message.IsDeleted {
				hasUpdates = true
			}
		}
	}

	var newMsgs []domain.MessageWithDetails
	for i := range polled {
		if _, ok := existing[polled[i].Message.ID]; !ok {
			newMsgs = append(newMsgs, polled[i])
		}
	}

	if len(newMsgs) == 0 && !hasUpdates {
		return prev, false
	}

	out := make([]domain.MessageWithDetails, 0, len(prev)+len(newMsgs))
	for i := range prev {
		if p, ok := polledByID[prev[i].Message.ID]; ok && !prev[i].Message.IsDeleted && p.Message.IsDeleted {
			out = append(out, *p)
			continue
		}
		out = append(out, prev[i])
	}
	return append(out, newMsgs...), true
}

// applyReactionRefresh folds a bounded refetch (triggered by a reaction
// event) into the local list. Entries present in the fresh page are replaced
// wholesale so reaction sets, reply enrichment and delete flags all become
// authoritative; history paginated in beyond the page is kept rather than
// truncated. Deleted entries stay deleted regardless of the fetched row.
func applyReactionRefresh(prev, page []domain.MessageWithDetails) []domain.MessageWithDetails {
	pageByID := make(map[uuid.UUID]*domain.MessageWithDetails, len(page))
	for i := range page {
		pageByID[page[i].Message.ID] = &page[i]
	}

	existing := make(map[uuid.UUID]struct{}, len(prev))
	out := make([]domain.MessageWithDetails, 0, len(prev)+len(page))
	for i := range prev {
		existing[prev[i].Message.ID] = struct{}{}
		if p, ok := pageByID[prev[i].Message.ID]; ok {
			if prev[i].Message.IsDeleted && !p.Message.IsDeleted {
				out = append(out, prev[i])
				continue
			}
			out = append(out, *p)
			continue
		}
		out = append(out, prev[i])
	}
	for i := range page {
		if _, ok := existing[page[i].Message.ID]; !ok {
			out = append(out, page[i])
		}
	}
	return out
}
