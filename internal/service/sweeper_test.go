package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tictactoe/internal/domain"
)

type capturePublisher struct {
	mu     sync.Mutex
	events map[string][]domain.Event
}

func (p *capturePublisher) Publish(sessionID string, events []domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]domain.Event)
	}
	p.events[sessionID] = append(p.events[sessionID], events...)
}

func TestSweepForfeitsOnlyExpiredGames(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	stale := startGame(t, svc)
	clock.Advance(50 * time.Second)

	created, err := svc.Create(ctx, domain.Player{ID: 30, Name: "late"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh, err := svc.Join(ctx, created.Session.InviteCode, domain.Player{ID: 40, Name: "later"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	clock.Advance(20 * time.Second)

	pub := &capturePublisher{}
	sw := NewSweeper(svc, pub, time.Second)
	if n := sw.Sweep(ctx); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	svc.Wait()

	got, _ := svc.GetState(ctx, stale.ID)
	if got.Status != domain.StatusFinished || got.WinnerID != guest.ID {
		t.Fatalf("stale session: %+v", got)
	}
	if !sameKinds(pub.events[stale.ID], domain.EventGameUpdated, domain.EventGameFinished) {
		t.Fatalf("published: %v", kinds(pub.events[stale.ID]))
	}
	if _, ok := pub.events[fresh.Session.ID]; ok {
		t.Fatalf("fresh session should not be published")
	}

	if n := sw.Sweep(ctx); n != 0 {
		t.Fatalf("second sweep forfeited %d", n)
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	svc, _, _ := newTestService(t)
	sw := NewSweeper(svc, nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
