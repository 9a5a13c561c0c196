package db

import (
	"time"

	"github.com/google/uuid"
)

// UserRecord holds the notification-relevant slice of a user profile.
// Profile and settings writes come from the app backend; the dispatcher
// only mutates last_sent_at and clears push_token on invalidation.
type UserRecord struct {
	ID                   uuid.UUID  `json:"id"`
	PushToken            *string    `json:"push_token,omitempty"`
	Timezone             string     `json:"timezone"`
	PreferredTime        string     `json:"preferred_time"`
	NotificationsEnabled bool       `json:"notifications_enabled"`
	IsPremium            bool       `json:"is_premium"`
	LastSentAt           *time.Time `json:"last_sent_at,omitempty"`
}

// StaticQuote is one entry in the fallback quote pool. last_sent_date is a
// rotation cursor, not an audit log: the pool is consumed least-recently-used,
// never-used (NULL) quotes first.
type StaticQuote struct {
	ID           uuid.UUID  `json:"id"`
	Text         string     `json:"text"`
	Author       *string    `json:"author,omitempty"`
	LastSentDate *time.Time `json:"last_sent_date,omitempty"`
}

// TickCommit is the batched bookkeeping for one dispatch tick.
type TickCommit struct {
	SentAt time.Time

	// AttemptedUserIDs get last_sent_at = SentAt. Includes users whose push
	// failed transiently.
	AttemptedUserIDs []uuid.UUID

	// InvalidTokenUserIDs get push_token cleared in the same batch.
	InvalidTokenUserIDs []uuid.UUID

	// ConsumedQuoteID, when set, gets last_sent_date = SentAt exactly once,
	// no matter how many users received that quote this tick.
	ConsumedQuoteID *uuid.UUID
}

// Empty reports whether the commit would write nothing.
func (c *TickCommit) Empty() bool {
	return len(c.AttemptedUserIDs) == 0 && len(c.InvalidTokenUserIDs) == 0 && c.ConsumedQuoteID == nil
}
