package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/auralabs/aura-dispatch/internal/engine"
)

type fakeTicker struct {
	mu      sync.Mutex
	calls   int
	summary engine.TickSummary
	block   chan struct{} // when set, Tick waits until closed
}

func (f *fakeTicker) Tick(ctx context.Context, now time.Time) engine.TickSummary {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.summary
}

type fakeHealth struct{ err error }

func (f *fakeHealth) Health(ctx context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	h := NewHandler(zap.NewNop(), &fakeTicker{}, &fakeHealth{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReadyz_Unavailable(t *testing.T) {
	h := NewHandler(zap.NewNop(), &fakeTicker{}, &fakeHealth{err: errors.New("db down")})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestTriggerTick(t *testing.T) {
	ticker := &fakeTicker{summary: engine.TickSummary{UsersDue: 3, Sent: 2, Failed: 1}}
	h := NewHandler(zap.NewNop(), ticker, &fakeHealth{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/tick", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if ticker.calls != 1 {
		t.Errorf("expected 1 tick, got %d", ticker.calls)
	}
}

func TestTriggerTick_RejectsOverlap(t *testing.T) {
	block := make(chan struct{})
	ticker := &fakeTicker{block: block}
	h := NewHandler(zap.NewNop(), ticker, &fakeHealth{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.Post(srv.URL+"/v1/tick", "application/json", nil)
		if err == nil {
			resp.Body.Close()
		}
	}()

	// Wait for the first tick to be in flight.
	for {
		ticker.mu.Lock()
		started := ticker.calls == 1
		ticker.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	resp, err := http.Post(srv.URL+"/v1/tick", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for overlapping tick, got %d", resp.StatusCode)
	}

	close(block)
	<-done
}
