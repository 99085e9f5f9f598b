package domain

import "time"

const (
	// MessagesPerPage is the fetch page size. hasMore is derived strictly
	// as pageLen >= MessagesPerPage.
	MessagesPerPage = 50

	ConversationsPerPage = 50

	MessageMaxLength = 2000

	ImageMaxSizeBytes = 10 * 1024 * 1024

	InviteCodeLength = 8
	FriendCodeLength = 8

	// PollInterval is the reconciliation fallback cadence while the view is
	// visible. Fixed interval, no backoff: the poll compensates for realtime
	// drops on mobile backgrounding.
	PollInterval = 3 * time.Second
)

// AllowedImageTypes are the accepted upload MIME types.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// ReactionEmojis is the full reaction palette.
var ReactionEmojis = []string{"\U0001F44D", "✅"}
