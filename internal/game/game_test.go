package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tictactoe/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var (
	alice = domain.Player{ID: 1, Name: "alice"}
	bob   = domain.Player{ID: 2, Name: "bob"}
	carol = domain.Player{ID: 3, Name: "carol"}
)

func startedSession(t *testing.T, m *Machine) domain.Session {
	t.Helper()
	s := domain.Session{ID: "s1", InviteCode: "ABC123", PlayerX: alice, Status: domain.StatusWaitingForOpponent}
	if err := m.Join(&s, bob); err != nil {
		t.Fatalf("join: %v", err)
	}
	return s
}

func play(t *testing.T, m *Machine, s *domain.Session, cells ...int) MoveOutcome {
	t.Helper()
	var out MoveOutcome
	for _, c := range cells {
		var err error
		out, err = m.MakeMove(s, s.CurrentTurn, c)
		if err != nil {
			t.Fatalf("move %d: %v", c, err)
		}
	}
	return out
}

func checkInvariants(t *testing.T, s domain.Session) {
	t.Helper()
	if got := s.Board.Occupied(); got != len(s.Moves) {
		t.Fatalf("moves=%d occupied=%d", len(s.Moves), got)
	}
	seen := map[int]bool{}
	for i, mv := range s.Moves {
		if seen[mv.Cell] {
			t.Fatalf("cell %d played twice", mv.Cell)
		}
		seen[mv.Cell] = true
		if mv.Seq != i+1 {
			t.Fatalf("move %d has seq %d", i, mv.Seq)
		}
		want := s.PlayerX.ID
		if i%2 == 1 {
			want = s.PlayerO.ID
		}
		if mv.PlayerID != want {
			t.Fatalf("move %d by %d, want %d", i+1, mv.PlayerID, want)
		}
	}
	if (s.Status == domain.StatusWaitingForOpponent) != (s.PlayerO == nil) {
		t.Fatalf("status %s with playerO=%v", s.Status, s.PlayerO)
	}
	if s.Status == domain.StatusInProgress {
		if !s.HasDeadline() {
			t.Fatalf("in progress without deadline")
		}
		if _, ok := s.SeatOf(s.CurrentTurn); !ok {
			t.Fatalf("current turn %d is not seated", s.CurrentTurn)
		}
	}
	if s.Status == domain.StatusFinished {
		if s.HasDeadline() || s.CurrentTurn != 0 {
			t.Fatalf("finished session keeps turn state")
		}
		drawn := s.WinnerID == 0 && s.Board.Full()
		if s.WinnerID == 0 && !drawn {
			t.Fatalf("finished session has neither winner nor full board")
		}
		if s.WinningLine != nil && s.WinnerID == 0 {
			t.Fatalf("winning line without winner")
		}
	}
}

func TestWinningLine(t *testing.T) {
	X, O, E := domain.MarkX, domain.MarkO, domain.Empty
	cases := []struct {
		name  string
		board domain.Board
		mark  domain.Mark
		want  domain.Line
		ok    bool
	}{
		{"top row", domain.Board{X, X, X, O, O, E, E, E, E}, X, domain.Line{0, 1, 2}, true},
		{"column", domain.Board{O, X, E, O, X, E, O, E, X}, O, domain.Line{0, 3, 6}, true},
		{"anti diagonal", domain.Board{X, X, O, X, O, E, O, E, E}, O, domain.Line{2, 4, 6}, true},
		{"none", domain.Board{X, O, X, X, O, O, O, X, X}, X, domain.Line{}, false},
		{"empty mark", domain.Board{}, E, domain.Line{}, false},
	}
	for _, tc := range cases {
		got, ok := WinningLine(tc.board, tc.mark)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: got %v,%v want %v,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestJoin(t *testing.T) {
	clk := newFakeClock()
	m := NewMachine(time.Minute, clk.Now)

	s := domain.Session{ID: "s1", PlayerX: alice, Status: domain.StatusWaitingForOpponent}
	if err := m.Join(&s, bob); err != nil {
		t.Fatalf("join: %v", err)
	}
	if s.Status != domain.StatusInProgress || s.PlayerO == nil || s.PlayerO.ID != bob.ID {
		t.Fatalf("unexpected session after join: %+v", s)
	}
	if s.CurrentTurn != alice.ID {
		t.Fatalf("X must open, got turn %d", s.CurrentTurn)
	}
	if want := clk.Now().Add(time.Minute); !s.TurnDeadline.Equal(want) {
		t.Fatalf("deadline %v want %v", s.TurnDeadline, want)
	}
	checkInvariants(t, s)

	before := s.Clone()
	err := m.Join(&s, carol)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second join: got %v", err)
	}
	if s.PlayerO.ID != before.PlayerO.ID || s.Status != before.Status {
		t.Fatalf("failed join changed session")
	}
}

func TestJoinRejectsHostAndFinished(t *testing.T) {
	m := NewMachine(time.Minute, newFakeClock().Now)

	s := domain.Session{ID: "s1", PlayerX: alice, Status: domain.StatusWaitingForOpponent}
	if err := m.Join(&s, alice); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("self join: got %v", err)
	}
	if s.PlayerO != nil || s.Status != domain.StatusWaitingForOpponent {
		t.Fatalf("rejected join changed session")
	}

	s.Status = domain.StatusFinished
	if err := m.Join(&s, bob); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("join finished: got %v", err)
	}
}

func TestMakeMoveValidation(t *testing.T) {
	m := NewMachine(time.Minute, newFakeClock().Now)
	s := startedSession(t, m)
	play(t, m, &s, 4)

	cases := []struct {
		name   string
		player int64
		cell   int
		want   error
	}{
		{"out of range low", bob.ID, -1, domain.ErrInvalidArgument},
		{"out of range high", bob.ID, 9, domain.ErrInvalidArgument},
		{"occupied", bob.ID, 4, domain.ErrCellOccupied},
		{"wrong player", alice.ID, 0, domain.ErrNotYourTurn},
		{"stranger", carol.ID, 0, domain.ErrNotYourTurn},
	}
	for _, tc := range cases {
		before := s.Clone()
		_, err := m.MakeMove(&s, tc.player, tc.cell)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
		if s.Board != before.Board || len(s.Moves) != len(before.Moves) || s.CurrentTurn != before.CurrentTurn || !s.TurnDeadline.Equal(before.TurnDeadline) {
			t.Fatalf("%s: failed move changed session", tc.name)
		}
	}

	waiting := domain.Session{ID: "s2", PlayerX: alice, Status: domain.StatusWaitingForOpponent}
	if _, err := m.MakeMove(&waiting, alice.ID, 0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("move before join: got %v", err)
	}
}

func TestMakeMoveWin(t *testing.T) {
	clk := newFakeClock()
	m := NewMachine(time.Minute, clk.Now)
	s := startedSession(t, m)

	// X: 0,1  O: 3,4  -> board [X,X,_, O,O,_, _,_,_]
	play(t, m, &s, 0, 3, 1, 4)
	out, err := m.MakeMove(&s, alice.ID, 2)
	if err != nil {
		t.Fatalf("winning move: %v", err)
	}
	if !out.Finished || out.Forfeited || out.Move == nil || out.Move.Seq != 5 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if s.Status != domain.StatusFinished || s.WinnerID != alice.ID {
		t.Fatalf("status=%s winner=%d", s.Status, s.WinnerID)
	}
	if s.WinningLine == nil || *s.WinningLine != (domain.Line{0, 1, 2}) {
		t.Fatalf("winning line %v", s.WinningLine)
	}
	checkInvariants(t, s)

	if _, err := m.MakeMove(&s, bob.ID, 8); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("move after finish: got %v", err)
	}
}

func TestMakeMoveDraw(t *testing.T) {
	m := NewMachine(time.Minute, newFakeClock().Now)
	s := startedSession(t, m)

	// X O X / X O O / O X X
	out := play(t, m, &s, 0, 1, 2, 4, 3, 5, 7, 6, 8)
	if !out.Finished || out.Move == nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if s.Status != domain.StatusFinished || s.WinnerID != 0 || s.WinningLine != nil {
		t.Fatalf("want draw, got status=%s winner=%d line=%v", s.Status, s.WinnerID, s.WinningLine)
	}
	checkInvariants(t, s)
}

func TestMakeMoveAlternatesAndRefreshesDeadline(t *testing.T) {
	clk := newFakeClock()
	m := NewMachine(time.Minute, clk.Now)
	s := startedSession(t, m)

	for i, cell := range []int{4, 0, 8, 2} {
		clk.Advance(10 * time.Second)
		mover := s.CurrentTurn
		if _, err := m.MakeMove(&s, mover, cell); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		if s.CurrentTurn == mover {
			t.Fatalf("turn did not flip after move %d", i)
		}
		if want := clk.Now().Add(time.Minute); !s.TurnDeadline.Equal(want) {
			t.Fatalf("deadline %v want %v", s.TurnDeadline, want)
		}
		checkInvariants(t, s)
	}
}

func TestMakeMoveAfterDeadlineForfeits(t *testing.T) {
	clk := newFakeClock()
	m := NewMachine(time.Minute, clk.Now)
	s := startedSession(t, m)
	play(t, m, &s, 4) // now O's turn

	clk.Advance(time.Minute + time.Second)
	out, err := m.MakeMove(&s, bob.ID, 0)
	if err != nil {
		t.Fatalf("move after deadline: %v", err)
	}
	if !out.Forfeited || out.Move != nil {
		t.Fatalf("want forfeit outcome, got %+v", out)
	}
	if s.Status != domain.StatusFinished || s.WinnerID != alice.ID {
		t.Fatalf("status=%s winner=%d", s.Status, s.WinnerID)
	}
	if len(s.Moves) != 1 || s.Board[0] != domain.Empty {
		t.Fatalf("forfeited move was recorded")
	}
	checkInvariants(t, s)
}

func TestMakeMoveExactlyAtDeadlineIsAllowed(t *testing.T) {
	clk := newFakeClock()
	m := NewMachine(time.Minute, clk.Now)
	s := startedSession(t, m)

	clk.Advance(time.Minute)
	out, err := m.MakeMove(&s, alice.ID, 0)
	if err != nil || out.Forfeited {
		t.Fatalf("move at deadline: out=%+v err=%v", out, err)
	}
}

func TestCheckTimeout(t *testing.T) {
	clk := newFakeClock()
	m := NewMachine(time.Minute, clk.Now)
	s := startedSession(t, m)

	if m.CheckTimeout(&s) {
		t.Fatalf("timeout before deadline")
	}
	if s.Status != domain.StatusInProgress {
		t.Fatalf("poll changed status")
	}

	clk.Advance(2 * time.Minute)
	if !m.CheckTimeout(&s) {
		t.Fatalf("expected timeout")
	}
	if s.WinnerID != bob.ID {
		t.Fatalf("X held the turn, O should win; got %d", s.WinnerID)
	}
	checkInvariants(t, s)

	if m.CheckTimeout(&s) {
		t.Fatalf("finished session timed out twice")
	}
}

func TestRequestReplay(t *testing.T) {
	clk := newFakeClock()
	m := NewMachine(time.Minute, clk.Now)
	s := startedSession(t, m)

	if _, err := m.RequestReplay(&s, alice.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("replay while playing: got %v", err)
	}

	play(t, m, &s, 0, 3, 1, 4, 2)
	if _, err := m.RequestReplay(&s, carol.ID); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("replay by stranger: got %v", err)
	}

	reset, err := m.RequestReplay(&s, bob.ID)
	if err != nil || reset {
		t.Fatalf("first replay: reset=%v err=%v", reset, err)
	}
	if s.Status != domain.StatusFinished || s.Board.Occupied() != 5 || !s.ReplayRequestedByO {
		t.Fatalf("single request must not reset: %+v", s)
	}

	clk.Advance(time.Second)
	reset, err = m.RequestReplay(&s, alice.ID)
	if err != nil || !reset {
		t.Fatalf("second replay: reset=%v err=%v", reset, err)
	}
	if s.Status != domain.StatusInProgress || s.Board != (domain.Board{}) || len(s.Moves) != 0 {
		t.Fatalf("session not reset: %+v", s)
	}
	if s.CurrentTurn != alice.ID || s.WinnerID != 0 || s.WinningLine != nil {
		t.Fatalf("turn=%d winner=%d line=%v", s.CurrentTurn, s.WinnerID, s.WinningLine)
	}
	if s.ReplayRequestedByX || s.ReplayRequestedByO {
		t.Fatalf("replay flags not cleared")
	}
	if s.ID != "s1" || s.InviteCode != "ABC123" || s.PlayerO.ID != bob.ID {
		t.Fatalf("reset changed identity")
	}
	if want := clk.Now().Add(time.Minute); !s.TurnDeadline.Equal(want) {
		t.Fatalf("deadline %v want %v", s.TurnDeadline, want)
	}
	checkInvariants(t, s)

	play(t, m, &s, 4)
	checkInvariants(t, s)
}
