package domain

import "time"

// SessionView - wire shape of a session snapshot
type SessionView struct {
	ID           string     `json:"id"`
	PlayerXID    int64      `json:"player_x_id"`
	PlayerXName  string     `json:"player_x_name"`
	PlayerOID    *int64     `json:"player_o_id"`
	PlayerOName  *string    `json:"player_o_name"`
	NextPlayerID int64      `json:"next_player_id"`
	InviteCode   string     `json:"invite_code"`
	WinnerID     *int64     `json:"winner_id"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	TurnDeadline *time.Time `json:"turn_deadline,omitempty"`
	Board        Board      `json:"board"`
	Moves        []MoveView `json:"moves"`
	WinningCells *Line      `json:"winning_cells"`
	ReplayX      bool       `json:"replay_requested_by_x"`
	ReplayO      bool       `json:"replay_requested_by_o"`
	Version      uint64     `json:"version"`
}

// MoveView - wire shape of a move
type MoveView struct {
	ID        int    `json:"id"`
	SessionID string `json:"session_id"`
	PlayerID  int64  `json:"player_id"`
	CellIndex int    `json:"cell_index"`
}

func (m Move) View() MoveView {
	return MoveView{
		ID:        m.Seq,
		SessionID: m.SessionID,
		PlayerID:  m.PlayerID,
		CellIndex: m.Cell,
	}
}

// View converts a snapshot into its wire shape.
func (s Session) View() SessionView {
	v := SessionView{
		ID:           s.ID,
		PlayerXID:    s.PlayerX.ID,
		PlayerXName:  s.PlayerX.Name,
		NextPlayerID: s.CurrentTurn,
		InviteCode:   s.InviteCode,
		Status:       s.Status,
		CreatedAt:    s.CreatedAt,
		Board:        s.Board,
		Moves:        make([]MoveView, 0, len(s.Moves)),
		ReplayX:      s.ReplayRequestedByX,
		ReplayO:      s.ReplayRequestedByO,
		Version:      s.Version,
	}
	if s.PlayerO != nil {
		id, name := s.PlayerO.ID, s.PlayerO.Name
		v.PlayerOID = &id
		v.PlayerOName = &name
	}
	if s.WinnerID != 0 {
		w := s.WinnerID
		v.WinnerID = &w
	}
	if s.HasDeadline() {
		d := s.TurnDeadline
		v.TurnDeadline = &d
	}
	if s.WinningLine != nil {
		l := *s.WinningLine
		v.WinningCells = &l
	}
	for _, m := range s.Moves {
		v.Moves = append(v.Moves, m.View())
	}
	return v
}
