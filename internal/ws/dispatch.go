package ws

import (
	"context"
	"encoding/json"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
	"tictactoe/internal/service"
)

var errMalformed = domain.NewRuleError(domain.ErrInvalidArgument, "malformed message")

// Dispatch handles one client frame. The acting player is always c.UserID.
func (h *Hub) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		h.fail(c, in, errMalformed)
		return
	}

	if in.Type == MsgPing {
		h.send(c, Message{Type: MsgPong, RequestID: in.RequestID})
		return
	}
	if h.limiter != nil && !h.limiter.Allow(ctx, c.UserID) {
		h.send(c, Message{
			Type:      MsgError,
			RequestID: in.RequestID,
			Payload:   ErrorPayload{Code: "rate_limited", Message: "too many actions"},
		})
		return
	}

	switch in.Type {
	case MsgCreate:
		p := h.player(ctx, c.UserID)
		res, err := h.engine.Create(ctx, p)
		h.finish(c, in, res, err)

	case MsgJoin:
		var p JoinPayload
		if err := decode(in.Payload, &p); err != nil || p.InviteCode == "" {
			h.fail(c, in, errMalformed)
			return
		}
		res, err := h.engine.Join(ctx, p.InviteCode, h.player(ctx, c.UserID))
		h.finish(c, in, res, err)

	case MsgMove:
		var p MovePayload
		if err := decode(in.Payload, &p); err != nil || p.SessionID == "" || p.Cell == nil {
			h.fail(c, in, errMalformed)
			return
		}
		res, err := h.engine.MakeMove(ctx, p.SessionID, c.UserID, *p.Cell)
		h.finish(c, in, res, err)

	case MsgCheckTimeout:
		ref, ok := h.sessionRef(c, in)
		if !ok {
			return
		}
		res, err := h.engine.CheckTimeout(ctx, ref.SessionID)
		h.finish(c, in, res, err)

	case MsgRequestReplay:
		ref, ok := h.sessionRef(c, in)
		if !ok {
			return
		}
		res, err := h.engine.RequestReplay(ctx, ref.SessionID, c.UserID)
		h.finish(c, in, res, err)

	case MsgGetState:
		ref, ok := h.sessionRef(c, in)
		if !ok {
			return
		}
		s, err := h.engine.GetState(ctx, ref.SessionID)
		h.finish(c, in, service.Result{Session: s}, err)

	default:
		h.fail(c, in, domain.NewRuleError(domain.ErrInvalidArgument, "unknown message type"))
	}
}

// finish subscribes the caller to the session, replies, then broadcasts the events.
func (h *Hub) finish(c *Client, in Inbound, res service.Result, err error) {
	if err != nil {
		h.fail(c, in, err)
		return
	}
	h.Subscribe(c, res.Session.ID)

	reply := ReplyPayload{Session: res.Session.View(), Forfeited: res.Forfeited}
	if res.Move != nil {
		mv := res.Move.View()
		reply.Move = &mv
	}
	h.send(c, Message{Type: MsgReply, RequestID: in.RequestID, Payload: reply})
	h.Publish(res.Session.ID, res.Events)
}

func (h *Hub) fail(c *Client, in Inbound, err error) {
	code := domain.ErrorCode(err)
	msg := err.Error()
	if code == "internal" {
		h.log.Error("action failed", "user_id", c.UserID, "type", in.Type, "error", err)
		msg = "internal error"
	} else {
		h.log.Info("action rejected", "user_id", c.UserID, "type", in.Type, "code", code, "reason", msg)
	}
	h.send(c, Message{Type: MsgError, RequestID: in.RequestID, Payload: ErrorPayload{Code: code, Message: msg}})
}

func (h *Hub) sessionRef(c *Client, in Inbound) (SessionRef, bool) {
	var ref SessionRef
	if err := decode(in.Payload, &ref); err != nil || ref.SessionID == "" {
		h.fail(c, in, errMalformed)
		return ref, false
	}
	return ref, true
}

// player falls back to a nameless identity when the store is unavailable.
func (h *Hub) player(ctx context.Context, userID int64) domain.Player {
	if h.players == nil {
		return domain.Player{ID: userID}
	}
	p, err := h.players.Player(ctx, userID)
	if err != nil {
		logger.Warn("resolve player name", "user_id", userID, "error", err)
		return domain.Player{ID: userID}
	}
	return p
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errMalformed
	}
	return json.Unmarshal(raw, v)
}
