package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tictactoe/internal/domain"
	"tictactoe/internal/game"
	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"
)

// PointsAwarder - scoring collaborator credited when a game finishes
type PointsAwarder interface {
	AddPoints(ctx context.Context, userID int64, delta int64) (int64, error)
}

// PointsPolicy holds points credited per finished game.
type PointsPolicy struct {
	Win  int64
	Draw int64
}

var DefaultPointsPolicy = PointsPolicy{Win: 2, Draw: 1}

const awardTimeout = 5 * time.Second

// Result is a committed snapshot plus the events the transport should fan out.
type Result struct {
	Session domain.Session
	Events  []domain.Event
	// Move is the applied move of a MakeMove call; nil otherwise.
	Move *domain.Move
	// Forfeited is set when MakeMove found the turn clock already expired.
	Forfeited bool
}

// GameService runs player actions against the registry and derives events.
type GameService struct {
	registry *game.Registry
	machine  *game.Machine
	awarder  PointsAwarder
	points   PointsPolicy
	log      *slog.Logger

	awards sync.WaitGroup
}

func NewGameService(registry *game.Registry, machine *game.Machine, awarder PointsAwarder, points PointsPolicy) *GameService {
	return &GameService{
		registry: registry,
		machine:  machine,
		awarder:  awarder,
		points:   points,
		log:      logger.With("component", "game_service"),
	}
}

func (g *GameService) Create(ctx context.Context, host domain.Player) (Result, error) {
	if host.ID <= 0 {
		return Result{}, g.reject(domain.NewRuleError(domain.ErrInvalidArgument, "invalid player id"))
	}
	s := g.registry.Create(host)

	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.WithLabelValues(s.Status.String()).Inc()
	logger.WithContext(ctx).Info("game created", "session_id", s.ID, "invite_code", s.InviteCode, "player_x", host.ID)

	return Result{Session: s, Events: []domain.Event{updated(s)}}, nil
}

// Join seats player as O in the session behind inviteCode.
func (g *GameService) Join(ctx context.Context, inviteCode string, player domain.Player) (Result, error) {
	open, ok := g.registry.FindByInviteCode(inviteCode)
	if !ok {
		return Result{}, g.reject(domain.NewRuleError(domain.ErrNotFound, "game not found with invite code"))
	}

	s, err := g.apply(open.ID, func(s *domain.Session) error {
		return g.machine.Join(s, player)
	})
	if err != nil {
		return Result{Session: s}, err
	}

	logger.WithContext(ctx).Info("game joined", "session_id", s.ID, "player_o", player.ID)
	return Result{Session: s, Events: []domain.Event{updated(s)}}, nil
}

func (g *GameService) MakeMove(ctx context.Context, sessionID string, playerID int64, cell int) (Result, error) {
	var out game.MoveOutcome
	s, err := g.apply(sessionID, func(s *domain.Session) error {
		var err error
		out, err = g.machine.MakeMove(s, playerID, cell)
		return err
	})
	if err != nil {
		return Result{Session: s}, err
	}

	res := Result{Session: s, Move: out.Move, Forfeited: out.Forfeited}
	if out.Move != nil {
		metrics.MovesApplied.Inc()
		res.Events = append(res.Events, domain.Event{Kind: domain.EventMoveMade, Session: s, Move: out.Move})
	}
	res.Events = append(res.Events, updated(s))
	if out.Finished {
		res.Events = append(res.Events, g.finished(ctx, s, out.Forfeited))
	}
	return res, nil
}

// CheckTimeout resolves an idle game without a move attempt.
func (g *GameService) CheckTimeout(ctx context.Context, sessionID string) (Result, error) {
	var expired bool
	s, err := g.apply(sessionID, func(s *domain.Session) error {
		expired = g.machine.CheckTimeout(s)
		return nil
	})
	if err != nil {
		return Result{Session: s}, err
	}
	if !expired {
		return Result{Session: s}, nil
	}
	return Result{
		Session:   s,
		Forfeited: true,
		Events:    []domain.Event{updated(s), g.finished(ctx, s, true)},
	}, nil
}

func (g *GameService) RequestReplay(ctx context.Context, sessionID string, playerID int64) (Result, error) {
	var reset bool
	s, err := g.apply(sessionID, func(s *domain.Session) error {
		var err error
		reset, err = g.machine.RequestReplay(s, playerID)
		return err
	})
	if err != nil {
		return Result{Session: s}, err
	}

	events := []domain.Event{
		{Kind: domain.EventReplayRequested, Session: s, PlayerID: playerID},
		updated(s),
	}
	if reset {
		metrics.Replays.Inc()
		logger.WithContext(ctx).Info("replay started", "session_id", s.ID)
		events = append(events, domain.Event{Kind: domain.EventReplayStarted, Session: s})
	}
	return Result{Session: s, Events: events}, nil
}

func (g *GameService) GetState(ctx context.Context, sessionID string) (domain.Session, error) {
	s, ok := g.registry.FindByID(sessionID)
	if !ok {
		return domain.Session{}, domain.NewRuleError(domain.ErrNotFound, "game not found")
	}
	return s, nil
}

func (g *GameService) FindByInviteCode(ctx context.Context, code string) (domain.Session, error) {
	s, ok := g.registry.FindByInviteCode(code)
	if !ok {
		return domain.Session{}, domain.NewRuleError(domain.ErrNotFound, "game not found with invite code")
	}
	return s, nil
}

// InProgressIDs lists sessions with a running turn clock.
func (g *GameService) InProgressIDs() []string {
	return g.registry.ListInProgress()
}

// Wait blocks until pending point awards are done.
func (g *GameService) Wait() {
	g.awards.Wait()
}

// apply runs fn under the session lock and keeps the status gauge in step.
func (g *GameService) apply(sessionID string, fn func(s *domain.Session) error) (domain.Session, error) {
	var before domain.Status
	s, err := g.registry.Update(sessionID, func(s *domain.Session) error {
		before = s.Status
		return fn(s)
	})
	if err != nil {
		return s, g.reject(err)
	}
	if before != s.Status {
		metrics.SessionsActive.WithLabelValues(before.String()).Dec()
		metrics.SessionsActive.WithLabelValues(s.Status.String()).Inc()
	}
	return s, nil
}

func (g *GameService) reject(err error) error {
	metrics.RuleViolations.WithLabelValues(domain.ErrorCode(err)).Inc()
	return err
}

// finished records the outcome, starts the point award and returns the
// GameFinished event.
func (g *GameService) finished(ctx context.Context, s domain.Session, forfeited bool) domain.Event {
	outcome := metrics.OutcomeDraw
	switch {
	case forfeited:
		outcome = metrics.OutcomeForfeit
	case s.WinnerID != 0:
		outcome = metrics.OutcomeWin
	}
	metrics.GamesFinished.WithLabelValues(outcome).Inc()
	logger.WithContext(ctx).Info("game finished", "session_id", s.ID, "outcome", outcome, "winner", s.WinnerID)

	g.award(s)
	return domain.Event{Kind: domain.EventGameFinished, Session: s}
}

// award credits points in the background; failures never touch the session.
func (g *GameService) award(s domain.Session) {
	if g.awarder == nil {
		return
	}
	deltas := PointDeltas(s, g.points)
	if len(deltas) == 0 {
		return
	}

	g.awards.Add(1)
	go func() {
		defer g.awards.Done()
		ctx, cancel := context.WithTimeout(context.Background(), awardTimeout)
		defer cancel()

		for _, d := range deltas {
			total, err := g.awarder.AddPoints(ctx, d.UserID, d.Delta)
			if err != nil {
				metrics.PointsAwardFailures.Inc()
				g.log.Warn("award points failed", "session_id", s.ID, "user_id", d.UserID, "delta", d.Delta, "error", err)
				continue
			}
			g.log.Debug("points awarded", "session_id", s.ID, "user_id", d.UserID, "delta", d.Delta, "points", total)
		}
	}()
}

// PointDelta - one balance change
type PointDelta struct {
	UserID int64
	Delta  int64
}

// PointDeltas returns the balance changes for a finished session:
// the winner gets p.Win, otherwise every seated player gets p.Draw.
func PointDeltas(s domain.Session, p PointsPolicy) []PointDelta {
	if s.Status != domain.StatusFinished {
		return nil
	}
	if s.WinnerID != 0 {
		if p.Win == 0 {
			return nil
		}
		return []PointDelta{{UserID: s.WinnerID, Delta: p.Win}}
	}
	if p.Draw == 0 {
		return nil
	}
	var out []PointDelta
	for _, id := range s.SeatedIDs() {
		out = append(out, PointDelta{UserID: id, Delta: p.Draw})
	}
	return out
}

func updated(s domain.Session) domain.Event {
	return domain.Event{Kind: domain.EventGameUpdated, Session: s}
}
