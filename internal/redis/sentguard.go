package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sentTTL keeps a mark a bit past two local days so a marker always outlives
// the calendar date it protects, in any timezone.
const sentTTL = 48 * time.Hour

// SentGuard is a best-effort second layer over the database dedupe. The
// authoritative "already sent today" check is last_sent_at's local calendar
// date; that write happens only at tick commit, so a crash between a push
// and the commit would re-send on the next matching tick. Marking users in
// Redis at dispatch time narrows that window. When Redis is down or the
// guard is disabled the engine behaves exactly as before.
type SentGuard struct {
	client *Client
	logger *zap.Logger
}

// NewSentGuard creates a new sent guard.
func NewSentGuard(client *Client, logger *zap.Logger) *SentGuard {
	return &SentGuard{
		client: client,
		logger: logger,
	}
}

func (g *SentGuard) buildKey(userID uuid.UUID, localDate string) string {
	return fmt.Sprintf("sent:%s:%s", userID, localDate)
}

// MarkSent records that userID was dispatched to on localDate (the user's
// local calendar date, formatted 2006-01-02). Returns true if this is the
// first mark for that user and date, false if a mark already existed.
// Redis errors report as (true, err): on guard failure the engine sends
// rather than drops.
func (g *SentGuard) MarkSent(ctx context.Context, userID uuid.UUID, localDate string) (bool, error) {
	key := g.buildKey(userID, localDate)

	set, err := g.client.rdb.SetNX(ctx, key, 1, sentTTL).Result()
	if err != nil {
		return true, fmt.Errorf("redis setnx failed: %w", err)
	}

	if !set {
		g.logger.Warn("duplicate dispatch suppressed by sent guard",
			zap.String("user_id", userID.String()),
			zap.String("local_date", localDate),
		)
	}

	return set, nil
}
