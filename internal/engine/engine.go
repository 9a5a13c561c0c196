// Package engine runs the dispatch loop: each tick it finds every user whose
// local reminder time matches now, builds their message, pushes it, and
// commits the tick's bookkeeping as one batch.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auralabs/aura-dispatch/internal/compose"
	"github.com/auralabs/aura-dispatch/internal/db"
	"github.com/auralabs/aura-dispatch/internal/events"
	"github.com/auralabs/aura-dispatch/internal/metrics"
	"github.com/auralabs/aura-dispatch/internal/push"
	"github.com/auralabs/aura-dispatch/internal/quote"
	"github.com/auralabs/aura-dispatch/internal/schedule"
)

// Repository is the store surface the engine needs.
type Repository interface {
	ListNotifiable(ctx context.Context) ([]*db.UserRecord, error)
	NextQuote(ctx context.Context) (*db.StaticQuote, error)
	CommitTick(ctx context.Context, commit *db.TickCommit) error
}

// Guard is the optional dispatch-time duplicate suppressor
// (redis.SentGuard). A nil Guard disables the second layer.
type Guard interface {
	MarkSent(ctx context.Context, userID uuid.UUID, localDate string) (bool, error)
}

// EventPublisher is the optional tick event feed (events.Publisher).
type EventPublisher interface {
	Publish(ctx context.Context, event events.TickEvent) error
}

type Config struct {
	Interval time.Duration
	Workers  int
}

// Engine wires the tick pipeline together.
type Engine struct {
	repo      Repository
	quotes    *quote.Source
	pusher    push.Pusher
	guard     Guard          // nil if Redis not configured
	publisher EventPublisher // nil if SQS not configured
	config    Config
	logger    *zap.Logger
}

func New(repo Repository, quotes *quote.Source, pusher push.Pusher, cfg Config, logger *zap.Logger) *Engine {
	if cfg.Interval == 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Workers == 0 {
		cfg.Workers = 8
	}

	return &Engine{
		repo:   repo,
		quotes: quotes,
		pusher: pusher,
		config: cfg,
		logger: logger,
	}
}

// WithGuard attaches the dispatch-time sent guard.
func (e *Engine) WithGuard(g Guard) *Engine {
	e.guard = g
	return e
}

// WithEvents attaches the tick event feed.
func (e *Engine) WithEvents(p EventPublisher) *Engine {
	e.publisher = p
	return e
}

// Run executes ticks at the configured interval until ctx is canceled.
// Ticks must not run concurrently against the same store; the engine itself
// never overlaps them, but running two dispatcher processes against one
// database is on the deployment to prevent.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	e.logger.Info("dispatch engine started",
		zap.Duration("interval", e.config.Interval),
		zap.Int("workers", e.config.Workers),
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("dispatch engine stopping")
			return
		case <-ticker.C:
			e.Tick(ctx, time.Now().UTC())
		}
	}
}

// TickSummary reports what one tick did.
type TickSummary struct {
	UsersLoaded   int
	UsersDue      int
	Sent          int
	Failed        int
	InvalidTokens int
	QuoteConsumed *uuid.UUID
}

// outcome is one attempted send, consumed by the commit step.
type outcome struct {
	userID       uuid.UUID
	success      bool
	invalidToken bool
	quoteID      *uuid.UUID
}

// Tick runs one dispatch cycle. Every error inside is logged and isolated;
// Tick never returns one, matching the fire-and-forget trigger contract.
func (e *Engine) Tick(ctx context.Context, now time.Time) TickSummary {
	start := time.Now()

	users, err := e.repo.ListNotifiable(ctx)
	if err != nil {
		e.logger.Error("failed to load users, skipping tick", zap.Error(err))
		return TickSummary{}
	}

	var due []*db.UserRecord
	for _, u := range users {
		// The query already filters these, but the predicate is cheap and
		// the engine must never push without a token.
		if !u.NotificationsEnabled || u.PushToken == nil || *u.PushToken == "" {
			continue
		}
		if schedule.IsDue(u, now) {
			due = append(due, u)
		}
	}

	summary := TickSummary{UsersLoaded: len(users), UsersDue: len(due)}

	if len(due) == 0 {
		metrics.RecordTick(0, time.Since(start))
		return summary
	}

	// One LRU quote serves every static-path user this tick. Cheaper than a
	// per-user query, at the cost of users in the same tick sharing a quote.
	poolHead, err := e.repo.NextQuote(ctx)
	if err != nil {
		e.logger.Error("failed to load quote pool head, sending reminder-only", zap.Error(err))
		poolHead = nil
	}

	outcomes := e.dispatchAll(ctx, due, poolHead, now)

	commit := &db.TickCommit{SentAt: now}
	for _, o := range outcomes {
		commit.AttemptedUserIDs = append(commit.AttemptedUserIDs, o.userID)
		if o.invalidToken {
			commit.InvalidTokenUserIDs = append(commit.InvalidTokenUserIDs, o.userID)
			summary.InvalidTokens++
		}
		if o.success {
			summary.Sent++
		} else {
			summary.Failed++
		}
		if o.quoteID != nil && commit.ConsumedQuoteID == nil {
			commit.ConsumedQuoteID = o.quoteID
		}
	}
	summary.QuoteConsumed = commit.ConsumedQuoteID

	// All attempted users get last_sent_at, failures included, so a transient
	// push failure suppresses retries until the next local day.
	// TODO: decide whether failed sends should leave the user eligible for
	// the next tick instead.
	if err := e.repo.CommitTick(ctx, commit); err != nil {
		// Sends are already out; losing the batch means the next matching
		// tick may re-send. Accepted tradeoff, the tick itself still ran.
		e.logger.Error("tick commit failed, dedupe state lost", zap.Error(err))
		metrics.RecordCommitFailure()
	}

	e.emitEvent(ctx, now, summary)
	metrics.RecordTick(len(due), time.Since(start))

	e.logger.Info("tick complete",
		zap.Int("users_loaded", summary.UsersLoaded),
		zap.Int("users_due", summary.UsersDue),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("invalid_tokens", summary.InvalidTokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	return summary
}

// dispatchAll fans due users out to a bounded worker pool and joins before
// returning. One user's failure never blocks the rest.
func (e *Engine) dispatchAll(ctx context.Context, due []*db.UserRecord, poolHead *db.StaticQuote, now time.Time) []outcome {
	jobs := make(chan *db.UserRecord)
	results := make(chan outcome, len(due))

	var wg sync.WaitGroup
	workers := e.config.Workers
	if workers > len(due) {
		workers = len(due)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				results <- e.dispatchOne(ctx, u, poolHead, now)
			}
		}()
	}

	for _, u := range due {
		jobs <- u
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]outcome, 0, len(due))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// dispatchOne builds and pushes one user's notification.
func (e *Engine) dispatchOne(ctx context.Context, u *db.UserRecord, poolHead *db.StaticQuote, now time.Time) outcome {
	o := outcome{userID: u.ID}

	if e.guard != nil {
		localDate := localDateFor(u, now)
		first, err := e.guard.MarkSent(ctx, u.ID, localDate)
		if err != nil {
			e.logger.Warn("sent guard unavailable, proceeding", zap.Error(err))
		} else if !first {
			// Already dispatched today by a tick whose commit was lost.
			// Skip the push but keep the user in the commit batch so
			// last_sent_at gets repaired.
			o.success = true
			return o
		}
	}

	q := e.quotes.ForUser(ctx, u, poolHead)
	switch {
	case q.QuoteID != nil:
		o.quoteID = q.QuoteID
		metrics.RecordQuote(metrics.QuoteStatic)
	case !q.Empty():
		metrics.RecordQuote(metrics.QuoteGenerated)
	default:
		metrics.RecordQuote(metrics.QuoteNone)
	}

	msg := compose.Message(q)

	err := e.pusher.Push(ctx, *u.PushToken, msg)
	switch {
	case err == nil:
		o.success = true
		metrics.RecordPush(metrics.OutcomeSent)
	case push.IsTokenInvalid(err):
		o.invalidToken = true
		metrics.RecordPush(metrics.OutcomeInvalidToken)
		e.logger.Info("clearing dead push token",
			zap.String("user_id", u.ID.String()),
		)
	default:
		metrics.RecordPush(metrics.OutcomeTransientFailure)
		e.logger.Error("push failed",
			zap.Error(err),
			zap.String("user_id", u.ID.String()),
		)
	}

	return o
}

func (e *Engine) emitEvent(ctx context.Context, now time.Time, s TickSummary) {
	if e.publisher == nil {
		return
	}

	event := events.TickEvent{
		TickAt:        now.Unix(),
		UsersLoaded:   s.UsersLoaded,
		UsersDue:      s.UsersDue,
		Sent:          s.Sent,
		Failed:        s.Failed,
		InvalidTokens: s.InvalidTokens,
	}
	if s.QuoteConsumed != nil {
		event.QuoteConsumed = s.QuoteConsumed.String()
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("tick event not published", zap.Error(err))
	}
}

func localDateFor(u *db.UserRecord, now time.Time) string {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil || u.Timezone == "" {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}
