package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tictactoe/internal/domain"
	"tictactoe/internal/game"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingAwarder struct {
	mu     sync.Mutex
	deltas map[int64]int64
	fail   bool
}

func (a *recordingAwarder) AddPoints(ctx context.Context, userID int64, delta int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return 0, errors.New("store down")
	}
	if a.deltas == nil {
		a.deltas = make(map[int64]int64)
	}
	a.deltas[userID] += delta
	return a.deltas[userID], nil
}

func (a *recordingAwarder) get(id int64) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deltas[id]
}

var (
	host  = domain.Player{ID: 10, Name: "host"}
	guest = domain.Player{ID: 20, Name: "guest"}
)

func newTestService(t *testing.T) (*GameService, *testClock, *recordingAwarder) {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	reg := game.NewRegistry(game.WithClock(clock.Now))
	m := game.NewMachine(time.Minute, clock.Now)
	aw := &recordingAwarder{}
	return NewGameService(reg, m, aw, DefaultPointsPolicy), clock, aw
}

func startGame(t *testing.T, svc *GameService) domain.Session {
	t.Helper()
	ctx := context.Background()
	created, err := svc.Create(ctx, host)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	joined, err := svc.Join(ctx, created.Session.InviteCode, guest)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	return joined.Session
}

func kinds(events []domain.Event) []domain.EventKind {
	out := make([]domain.EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func sameKinds(got []domain.Event, want ...domain.EventKind) bool {
	k := kinds(got)
	if len(k) != len(want) {
		return false
	}
	for i := range k {
		if k[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCreateAndJoin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, domain.Player{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("create with zero id: got %v", err)
	}

	created, err := svc.Create(ctx, host)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sameKinds(created.Events, domain.EventGameUpdated) {
		t.Fatalf("create events: %v", kinds(created.Events))
	}
	if created.Session.Status != domain.StatusWaitingForOpponent {
		t.Fatalf("status: %s", created.Session.Status)
	}

	if _, err := svc.Join(ctx, "NOPE00", guest); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("join unknown code: got %v", err)
	}

	joined, err := svc.Join(ctx, created.Session.InviteCode, guest)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Session.Status != domain.StatusInProgress || joined.Session.CurrentTurn != host.ID {
		t.Fatalf("after join: %+v", joined.Session)
	}

	// a started game is no longer reachable by code
	if _, err := svc.Join(ctx, created.Session.InviteCode, domain.Player{ID: 30}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second join: got %v", err)
	}
	if _, err := svc.FindByInviteCode(ctx, created.Session.InviteCode); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("lookup of started game by code: got %v", err)
	}

	got, err := svc.GetState(ctx, created.Session.ID)
	if err != nil || got.PlayerO == nil || got.PlayerO.ID != guest.ID {
		t.Fatalf("GetState: %+v %v", got, err)
	}
	if _, err := svc.GetState(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetState missing: got %v", err)
	}
}

func TestMakeMoveEventsAndScoring(t *testing.T) {
	svc, _, aw := newTestService(t)
	ctx := context.Background()
	s := startGame(t, svc)

	res, err := svc.MakeMove(ctx, s.ID, host.ID, 0)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !sameKinds(res.Events, domain.EventMoveMade, domain.EventGameUpdated) {
		t.Fatalf("move events: %v", kinds(res.Events))
	}
	if res.Move == nil || res.Move.Cell != 0 || res.Move.PlayerID != host.ID {
		t.Fatalf("applied move: %+v", res.Move)
	}

	if _, err := svc.MakeMove(ctx, s.ID, host.ID, 1); !errors.Is(err, domain.ErrNotYourTurn) {
		t.Fatalf("out of turn: got %v", err)
	}
	if _, err := svc.MakeMove(ctx, s.ID, guest.ID, 0); !errors.Is(err, domain.ErrCellOccupied) {
		t.Fatalf("occupied: got %v", err)
	}

	for _, mv := range []struct {
		player int64
		cell   int
	}{{guest.ID, 3}, {host.ID, 1}, {guest.ID, 4}} {
		if _, err := svc.MakeMove(ctx, s.ID, mv.player, mv.cell); err != nil {
			t.Fatalf("move %d: %v", mv.cell, err)
		}
	}

	res, err = svc.MakeMove(ctx, s.ID, host.ID, 2)
	if err != nil {
		t.Fatalf("winning move: %v", err)
	}
	if !sameKinds(res.Events, domain.EventMoveMade, domain.EventGameUpdated, domain.EventGameFinished) {
		t.Fatalf("winning move events: %v", kinds(res.Events))
	}
	if res.Session.WinnerID != host.ID || res.Session.WinningLine == nil {
		t.Fatalf("winner: %+v", res.Session)
	}

	svc.Wait()
	if got := aw.get(host.ID); got != 2 {
		t.Fatalf("winner points: got %d, want 2", got)
	}
	if got := aw.get(guest.ID); got != 0 {
		t.Fatalf("loser points: got %d, want 0", got)
	}
}

func TestMakeMoveForfeitOnExpiredTurn(t *testing.T) {
	svc, clock, aw := newTestService(t)
	ctx := context.Background()
	s := startGame(t, svc)

	clock.Advance(time.Minute + time.Second)

	res, err := svc.MakeMove(ctx, s.ID, host.ID, 4)
	if err != nil {
		t.Fatalf("late move: %v", err)
	}
	if !res.Forfeited || res.Move != nil {
		t.Fatalf("expected forfeit without move, got %+v", res)
	}
	if !sameKinds(res.Events, domain.EventGameUpdated, domain.EventGameFinished) {
		t.Fatalf("forfeit events: %v", kinds(res.Events))
	}
	if res.Session.WinnerID != guest.ID || res.Session.Board.Occupied() != 0 {
		t.Fatalf("after forfeit: %+v", res.Session)
	}

	svc.Wait()
	if got := aw.get(guest.ID); got != 2 {
		t.Fatalf("forfeit winner points: got %d", got)
	}
}

func TestCheckTimeout(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()
	s := startGame(t, svc)

	res, err := svc.CheckTimeout(ctx, s.ID)
	if err != nil || len(res.Events) != 0 || res.Forfeited {
		t.Fatalf("fresh game: %+v %v", res, err)
	}

	clock.Advance(2 * time.Minute)
	res, err = svc.CheckTimeout(ctx, s.ID)
	if err != nil {
		t.Fatalf("check timeout: %v", err)
	}
	if !res.Forfeited || res.Session.Status != domain.StatusFinished || res.Session.WinnerID != guest.ID {
		t.Fatalf("expired game: %+v", res.Session)
	}

	// already finished: no second award, no events
	res, err = svc.CheckTimeout(ctx, s.ID)
	if err != nil || len(res.Events) != 0 {
		t.Fatalf("second check: %+v %v", res, err)
	}
	if _, err := svc.CheckTimeout(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing session: got %v", err)
	}
}

func TestDrawAwardsBothAndReplay(t *testing.T) {
	svc, _, aw := newTestService(t)
	ctx := context.Background()
	s := startGame(t, svc)

	var res Result
	for _, cell := range []int{0, 1, 2, 4, 3, 5, 7, 6, 8} {
		cur, _ := svc.GetState(ctx, s.ID)
		var err error
		res, err = svc.MakeMove(ctx, s.ID, cur.CurrentTurn, cell)
		if err != nil {
			t.Fatalf("move %d: %v", cell, err)
		}
	}
	if res.Session.Status != domain.StatusFinished || res.Session.WinnerID != 0 {
		t.Fatalf("expected draw: %+v", res.Session)
	}
	svc.Wait()
	if aw.get(host.ID) != 1 || aw.get(guest.ID) != 1 {
		t.Fatalf("draw points: host=%d guest=%d", aw.get(host.ID), aw.get(guest.ID))
	}

	if _, err := svc.RequestReplay(ctx, s.ID, 99); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("stranger replay: got %v", err)
	}

	first, err := svc.RequestReplay(ctx, s.ID, guest.ID)
	if err != nil {
		t.Fatalf("replay guest: %v", err)
	}
	if !sameKinds(first.Events, domain.EventReplayRequested, domain.EventGameUpdated) {
		t.Fatalf("first replay events: %v", kinds(first.Events))
	}
	if first.Events[0].PlayerID != guest.ID || !first.Session.ReplayRequestedByO {
		t.Fatalf("replay flag: %+v", first.Session)
	}

	second, err := svc.RequestReplay(ctx, s.ID, host.ID)
	if err != nil {
		t.Fatalf("replay host: %v", err)
	}
	if !sameKinds(second.Events, domain.EventReplayRequested, domain.EventGameUpdated, domain.EventReplayStarted) {
		t.Fatalf("second replay events: %v", kinds(second.Events))
	}
	fresh := second.Session
	if fresh.ID != s.ID || fresh.Status != domain.StatusInProgress || fresh.Board.Occupied() != 0 || len(fresh.Moves) != 0 {
		t.Fatalf("after reset: %+v", fresh)
	}
	if fresh.CurrentTurn != host.ID || fresh.ReplayRequestedByX || fresh.ReplayRequestedByO {
		t.Fatalf("reset turn/flags: %+v", fresh)
	}
}

func TestReplayBeforeFinishRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	s := startGame(t, svc)
	if _, err := svc.RequestReplay(context.Background(), s.ID, host.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("replay in progress: got %v", err)
	}
}

func TestAwardFailureDoesNotAffectGame(t *testing.T) {
	svc, _, aw := newTestService(t)
	aw.fail = true
	ctx := context.Background()
	s := startGame(t, svc)

	for _, cell := range []int{0, 3, 1, 4, 2} {
		cur, _ := svc.GetState(ctx, s.ID)
		if _, err := svc.MakeMove(ctx, s.ID, cur.CurrentTurn, cell); err != nil {
			t.Fatalf("move %d: %v", cell, err)
		}
	}
	svc.Wait()

	got, err := svc.GetState(ctx, s.ID)
	if err != nil || got.Status != domain.StatusFinished || got.WinnerID != host.ID {
		t.Fatalf("game state after failed award: %+v %v", got, err)
	}
}

func TestPointDeltas(t *testing.T) {
	o := guest
	finished := domain.Session{PlayerX: host, PlayerO: &o, Status: domain.StatusFinished}

	won := finished
	won.WinnerID = guest.ID
	if d := PointDeltas(won, DefaultPointsPolicy); len(d) != 1 || d[0] != (PointDelta{UserID: guest.ID, Delta: 2}) {
		t.Fatalf("win deltas: %+v", d)
	}
	if d := PointDeltas(finished, DefaultPointsPolicy); len(d) != 2 {
		t.Fatalf("draw deltas: %+v", d)
	}
	if d := PointDeltas(finished, PointsPolicy{Win: 3}); d != nil {
		t.Fatalf("zero draw points should award nothing: %+v", d)
	}

	running := finished
	running.Status = domain.StatusInProgress
	if d := PointDeltas(running, DefaultPointsPolicy); d != nil {
		t.Fatalf("unfinished deltas: %+v", d)
	}
}

func TestConcurrentMovesSameCell(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	s := startGame(t, svc)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.MakeMove(ctx, s.ID, host.ID, 4); err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("applied %d moves, want exactly 1", applied)
	}
	got, _ := svc.GetState(ctx, s.ID)
	if len(got.Moves) != 1 || got.Board[4] != domain.MarkX {
		t.Fatalf("board after race: %+v", got)
	}
}
