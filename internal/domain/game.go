package domain

import (
	"fmt"
	"time"
)

// BoardSize - number of cells on the 3x3 board
const BoardSize = 9

// Mark - content of a single board cell
type Mark uint8

const (
	Empty Mark = iota
	MarkX
	MarkO
)

func (m Mark) String() string {
	switch m {
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	default:
		return ""
	}
}

// MarshalText encodes the mark as its symbol ("" for an empty cell).
func (m Mark) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mark) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*m = Empty
	case "X":
		*m = MarkX
	case "O":
		*m = MarkO
	default:
		return fmt.Errorf("unknown mark %q", string(b))
	}
	return nil
}

// Status - lifecycle state of a session
type Status uint8

const (
	StatusWaitingForOpponent Status = iota
	StatusInProgress
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusWaitingForOpponent:
		return "WaitingForOpponent"
	case StatusInProgress:
		return "InProgress"
	case StatusFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "WaitingForOpponent":
		*s = StatusWaitingForOpponent
	case "InProgress":
		*s = StatusInProgress
	case "Finished":
		*s = StatusFinished
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}

// Board - 9 cells in row-major order
type Board [BoardSize]Mark

// Occupied returns the number of non-empty cells.
func (b Board) Occupied() int {
	n := 0
	for _, c := range b {
		if c != Empty {
			n++
		}
	}
	return n
}

func (b Board) Full() bool {
	return b.Occupied() == BoardSize
}

// Line - three cell indices that win when held by one mark
type Line [3]int

// Player - occupant of a seat
type Player struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Move - one applied move, immutable once appended
type Move struct {
	Seq       int       `json:"id"`
	SessionID string    `json:"session_id"`
	PlayerID  int64     `json:"player_id"`
	Cell      int       `json:"cell_index"`
	Timestamp time.Time `json:"timestamp"`
}

// Session - one match between up to two players.
//
// Player ids are positive; zero means "none" for CurrentTurn and WinnerID.
// A zero TurnDeadline means no turn is running.
type Session struct {
	ID         string
	InviteCode string
	PlayerX    Player
	PlayerO    *Player

	Board  Board
	Moves  []Move
	Status Status

	CurrentTurn  int64
	TurnDeadline time.Time

	WinnerID    int64
	WinningLine *Line

	ReplayRequestedByX bool
	ReplayRequestedByO bool

	CreatedAt time.Time
	// Version counts committed changes; a larger value is a later snapshot.
	Version uint64
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s Session) Clone() Session {
	c := s
	if s.PlayerO != nil {
		o := *s.PlayerO
		c.PlayerO = &o
	}
	if s.WinningLine != nil {
		l := *s.WinningLine
		c.WinningLine = &l
	}
	if s.Moves != nil {
		c.Moves = make([]Move, len(s.Moves))
		copy(c.Moves, s.Moves)
	}
	return c
}

// SeatOf returns the mark of the seat held by playerID.
func (s *Session) SeatOf(playerID int64) (Mark, bool) {
	if playerID == 0 {
		return Empty, false
	}
	if s.PlayerX.ID == playerID {
		return MarkX, true
	}
	if s.PlayerO != nil && s.PlayerO.ID == playerID {
		return MarkO, true
	}
	return Empty, false
}

// OpponentOf returns the id in the other seat, or 0 when that seat is empty.
func (s *Session) OpponentOf(playerID int64) int64 {
	switch {
	case s.PlayerX.ID == playerID:
		if s.PlayerO != nil {
			return s.PlayerO.ID
		}
		return 0
	case s.PlayerO != nil && s.PlayerO.ID == playerID:
		return s.PlayerX.ID
	default:
		return 0
	}
}

// SeatedIDs returns the ids of every filled seat, X first.
func (s *Session) SeatedIDs() []int64 {
	ids := []int64{s.PlayerX.ID}
	if s.PlayerO != nil {
		ids = append(ids, s.PlayerO.ID)
	}
	return ids
}

// HasDeadline reports whether a turn clock is running.
func (s *Session) HasDeadline() bool {
	return !s.TurnDeadline.IsZero()
}
