// Package quote supplies the quote text for a notification: an AI-generated
// one for premium users, a least-recently-used static quote otherwise.
package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auralabs/aura-dispatch/internal/circuitbreaker"
	"github.com/auralabs/aura-dispatch/internal/db"
)

const (
	systemPrompt = "You write one short original inspirational quote of at most 15 words. " +
		"Respond with the quote text only: no attribution, no quotation marks, no extra punctuation."
	userPrompt = "Write today's quote."

	maxTokens   = 60
	temperature = 0.9
)

// Generator produces a short piece of text from a prompt pair. *Client
// implements it; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error)
}

// Result is the quote chosen for one user. QuoteID is set only when a static
// pool entry was consumed, so the committer can bump its rotation cursor.
type Result struct {
	Text    string
	QuoteID *uuid.UUID
}

// Empty reports whether no quote could be produced (reminder-only body).
func (r Result) Empty() bool {
	return r.Text == ""
}

// Source picks the quote for each user in a tick.
type Source struct {
	generator Generator // nil when AI is disabled
	breaker   *circuitbreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewSource creates a quote source. generator may be nil, in which case
// every user takes the static path.
func NewSource(generator Generator, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Source {
	return &Source{
		generator: generator,
		breaker:   breaker,
		logger:    logger,
	}
}

// ForUser returns the quote for one user. Premium users get one generation
// attempt; any failure or empty response falls through to poolHead. poolHead
// is the single LRU quote fetched once per tick and shared across all static
// sends that tick. A nil poolHead yields an empty Result, never an error.
func (s *Source) ForUser(ctx context.Context, user *db.UserRecord, poolHead *db.StaticQuote) Result {
	if user.IsPremium && s.generator != nil {
		if text := s.generate(ctx, user.ID); text != "" {
			return Result{Text: text}
		}
	}

	if poolHead == nil {
		return Result{}
	}

	id := poolHead.ID
	return Result{
		Text:    formatStatic(poolHead),
		QuoteID: &id,
	}
}

// generate runs one guarded generation attempt. It never returns an error:
// generation failures degrade to the static path and must not fail the tick.
func (s *Source) generate(ctx context.Context, userID uuid.UUID) string {
	if s.breaker != nil && !s.breaker.Allow() {
		s.logger.Debug("quote generation skipped, circuit open",
			zap.String("user_id", userID.String()),
		)
		return ""
	}

	text, err := s.generator.Generate(ctx, systemPrompt, userPrompt, maxTokens, temperature)
	if err != nil {
		if s.breaker != nil {
			s.breaker.RecordFailure()
		}
		s.logger.Warn("quote generation failed, falling back to static pool",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return ""
	}

	if s.breaker != nil {
		s.breaker.RecordSuccess()
	}

	return strings.TrimSpace(text)
}

func formatStatic(q *db.StaticQuote) string {
	if q.Author != nil && *q.Author != "" {
		return fmt.Sprintf("%s — %s", q.Text, *q.Author)
	}
	return q.Text
}
