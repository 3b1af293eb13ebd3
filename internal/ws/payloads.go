package ws

import "tictactoe/internal/domain"

// client → server
type JoinPayload struct {
	InviteCode string `json:"invite_code"`
}

type MovePayload struct {
	SessionID string `json:"session_id"`
	Cell      *int   `json:"cell"`
}

// SessionRef addresses check_timeout, request_replay and get_state.
type SessionRef struct {
	SessionID string `json:"session_id"`
}

// server → client
type ReplyPayload struct {
	Session   domain.SessionView `json:"session"`
	Move      *domain.MoveView   `json:"move,omitempty"`
	Forfeited bool               `json:"forfeited,omitempty"`
}

type SessionPayload struct {
	Session domain.SessionView `json:"session"`
}

type MoveMadePayload struct {
	Move    domain.MoveView    `json:"move"`
	Session domain.SessionView `json:"session"`
}

type ReplayRequestedPayload struct {
	SessionID string `json:"session_id"`
	PlayerID  int64  `json:"player_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EventMessage converts an engine event into its wire form.
func EventMessage(e domain.Event) Message {
	switch e.Kind {
	case domain.EventMoveMade:
		p := MoveMadePayload{Session: e.Session.View()}
		if e.Move != nil {
			p.Move = e.Move.View()
		}
		return Message{Type: string(e.Kind), Payload: p}
	case domain.EventReplayRequested:
		return Message{Type: string(e.Kind), Payload: ReplayRequestedPayload{SessionID: e.Session.ID, PlayerID: e.PlayerID}}
	default:
		return Message{Type: string(e.Kind), Payload: SessionPayload{Session: e.Session.View()}}
	}
}
