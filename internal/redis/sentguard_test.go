package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := &Client{rdb: rdb, logger: zap.NewNop()}

	return client, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestSentGuard_FirstMarkWins(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	guard := NewSentGuard(client, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	first, err := guard.MarkSent(ctx, userID, "2026-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Fatal("first mark should report true")
	}

	second, err := guard.MarkSent(ctx, userID, "2026-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second {
		t.Fatal("second mark for same user and date should report false")
	}
}

func TestSentGuard_DatesAreIndependent(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	guard := NewSentGuard(client, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	if first, _ := guard.MarkSent(ctx, userID, "2026-03-10"); !first {
		t.Fatal("first date mark should succeed")
	}
	if first, _ := guard.MarkSent(ctx, userID, "2026-03-11"); !first {
		t.Fatal("a new local date should get a fresh mark")
	}
}

func TestSentGuard_UsersAreIndependent(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	guard := NewSentGuard(client, zap.NewNop())
	ctx := context.Background()

	if first, _ := guard.MarkSent(ctx, uuid.New(), "2026-03-10"); !first {
		t.Fatal("mark for first user should succeed")
	}
	if first, _ := guard.MarkSent(ctx, uuid.New(), "2026-03-10"); !first {
		t.Fatal("mark for second user should succeed")
	}
}

func TestSentGuard_FailsOpen(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	guard := NewSentGuard(client, zap.NewNop())

	// Kill the backend; the guard must fail open (allow the send).
	cleanup()

	ok, err := guard.MarkSent(context.Background(), uuid.New(), "2026-03-10")
	if err == nil {
		t.Fatal("expected an error from a dead backend")
	}
	if !ok {
		t.Fatal("guard errors must not suppress sends")
	}
}
