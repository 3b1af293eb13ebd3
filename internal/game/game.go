package game

import (
	"log/slog"
	"time"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
)

// DefaultTurnDuration - time a player has to move before forfeiting
const DefaultTurnDuration = time.Minute

// Machine implements the rule-level transitions of one session.
//
// Methods mutate the session in place and validate every precondition before
// the first write, so a returned error means the session was not touched.
// Callers serialize access per session (see Registry.Update).
type Machine struct {
	turn time.Duration
	now  func() time.Time
	log  *slog.Logger
}

func NewMachine(turn time.Duration, now func() time.Time) *Machine {
	if turn <= 0 {
		turn = DefaultTurnDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Machine{turn: turn, now: now, log: logger.With("component", "game")}
}

func (m *Machine) TurnDuration() time.Duration {
	return m.turn
}

// MoveOutcome - result of a MakeMove call
type MoveOutcome struct {
	// Move is nil when the turn clock had already run out.
	Move      *domain.Move
	Forfeited bool
	Finished  bool
}

// Join seats the opponent as O and starts X's turn.
func (m *Machine) Join(s *domain.Session, opponent domain.Player) error {
	if s.Status != domain.StatusWaitingForOpponent {
		return domain.NewRuleError(domain.ErrInvalidTransition, "game already started")
	}
	if s.PlayerO != nil {
		return domain.NewRuleError(domain.ErrInvalidTransition, "game already has opponent")
	}
	if opponent.ID <= 0 {
		return domain.NewRuleError(domain.ErrInvalidArgument, "invalid player id")
	}
	if opponent.ID == s.PlayerX.ID {
		return domain.NewRuleError(domain.ErrInvalidArgument, "cannot join your own game")
	}

	o := opponent
	s.PlayerO = &o
	s.Status = domain.StatusInProgress
	s.CurrentTurn = s.PlayerX.ID
	s.TurnDeadline = m.now().Add(m.turn)

	m.log.Debug("player joined", "session_id", s.ID, "player_o", o.ID)
	return nil
}

// MakeMove applies playerID's mark at cell.
func (m *Machine) MakeMove(s *domain.Session, playerID int64, cell int) (MoveOutcome, error) {
	now := m.now()
	if m.expire(s, now) {
		return MoveOutcome{Forfeited: true, Finished: true}, nil
	}

	if s.Status != domain.StatusInProgress {
		return MoveOutcome{}, domain.NewRuleError(domain.ErrInvalidTransition, "game is not in progress")
	}
	if cell < 0 || cell >= domain.BoardSize {
		return MoveOutcome{}, domain.NewRuleError(domain.ErrInvalidArgument, "invalid board position")
	}
	if s.Board[cell] != domain.Empty {
		return MoveOutcome{}, domain.NewRuleError(domain.ErrCellOccupied, "cell already taken")
	}
	if playerID != s.CurrentTurn {
		return MoveOutcome{}, domain.NewRuleError(domain.ErrNotYourTurn, "not your turn")
	}
	mark, _ := s.SeatOf(playerID)

	s.Board[cell] = mark
	move := domain.Move{
		Seq:       len(s.Moves) + 1,
		SessionID: s.ID,
		PlayerID:  playerID,
		Cell:      cell,
		Timestamp: now,
	}
	s.Moves = append(s.Moves, move)

	if line, ok := WinningLine(s.Board, mark); ok {
		s.WinnerID = playerID
		s.WinningLine = &line
		m.finish(s)
		m.log.Debug("game won", "session_id", s.ID, "winner", playerID, "line", line)
		return MoveOutcome{Move: &move, Finished: true}, nil
	}
	if s.Board.Full() {
		s.WinnerID = 0
		m.finish(s)
		m.log.Debug("game drawn", "session_id", s.ID)
		return MoveOutcome{Move: &move, Finished: true}, nil
	}

	s.CurrentTurn = s.OpponentOf(playerID)
	s.TurnDeadline = now.Add(m.turn)
	return MoveOutcome{Move: &move}, nil
}

// CheckTimeout forfeits the turn holder if the deadline has passed.
// It reports whether the session was finished by this call.
func (m *Machine) CheckTimeout(s *domain.Session) bool {
	return m.expire(s, m.now())
}

// RequestReplay records playerID's consent and resets the board once both
// seats have asked. It reports whether the reset happened.
func (m *Machine) RequestReplay(s *domain.Session, playerID int64) (bool, error) {
	if s.Status != domain.StatusFinished {
		return false, domain.NewRuleError(domain.ErrInvalidTransition, "game is not finished yet")
	}
	mark, ok := s.SeatOf(playerID)
	if !ok {
		return false, domain.NewRuleError(domain.ErrInvalidArgument, "player not in this game")
	}

	if mark == domain.MarkX {
		s.ReplayRequestedByX = true
	} else {
		s.ReplayRequestedByO = true
	}
	if !s.ReplayRequestedByX || !s.ReplayRequestedByO {
		return false, nil
	}

	m.reset(s)
	m.log.Debug("replay started", "session_id", s.ID)
	return true, nil
}

// expire is the single turn-clock gate shared by MakeMove and CheckTimeout.
func (m *Machine) expire(s *domain.Session, now time.Time) bool {
	if s.Status != domain.StatusInProgress || !s.HasDeadline() || !now.After(s.TurnDeadline) {
		return false
	}
	loser := s.CurrentTurn
	s.WinnerID = s.OpponentOf(loser)
	s.WinningLine = nil
	m.finish(s)
	m.log.Debug("turn expired", "session_id", s.ID, "forfeited_by", loser, "winner", s.WinnerID)
	return true
}

func (m *Machine) finish(s *domain.Session) {
	s.Status = domain.StatusFinished
	s.CurrentTurn = 0
	s.TurnDeadline = time.Time{}
	s.ReplayRequestedByX = false
	s.ReplayRequestedByO = false
}

// reset restarts a finished session in place; identity, invite code and
// seats are kept.
func (m *Machine) reset(s *domain.Session) {
	s.Board = domain.Board{}
	s.Moves = nil
	s.WinnerID = 0
	s.WinningLine = nil
	s.Status = domain.StatusInProgress
	s.CurrentTurn = s.PlayerX.ID
	s.TurnDeadline = m.now().Add(m.turn)
	s.ReplayRequestedByX = false
	s.ReplayRequestedByO = false
}
