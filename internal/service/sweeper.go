package service

import (
	"context"
	"time"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
)

// EventPublisher fans events out to the participants of a session.
type EventPublisher interface {
	Publish(sessionID string, events []domain.Event)
}

// Sweeper periodically forfeits sessions whose turn clock ran out while
// nobody touched them.
type Sweeper struct {
	games     *GameService
	publisher EventPublisher
	interval  time.Duration
}

func NewSweeper(games *GameService, publisher EventPublisher, interval time.Duration) *Sweeper {
	return &Sweeper{games: games, publisher: publisher, interval: interval}
}

// Run sweeps until ctx is done. A non-positive interval disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				logger.Info("sweeper forfeited idle games", "count", n)
			}
		}
	}
}

// Sweep runs one pass and returns the number of forfeited sessions.
func (s *Sweeper) Sweep(ctx context.Context) int {
	n := 0
	for _, id := range s.games.InProgressIDs() {
		res, err := s.games.CheckTimeout(ctx, id)
		if err != nil {
			logger.Warn("sweeper check timeout failed", "session_id", id, "error", err)
			continue
		}
		if len(res.Events) == 0 {
			continue
		}
		n++
		if s.publisher != nil {
			s.publisher.Publish(id, res.Events)
		}
	}
	return n
}
