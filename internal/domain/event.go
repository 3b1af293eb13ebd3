package domain

// EventKind - notification fanned out to every participant of a session
type EventKind string

const (
	EventGameUpdated     EventKind = "game_updated"
	EventMoveMade        EventKind = "move_made"
	EventGameFinished    EventKind = "game_finished"
	EventReplayRequested EventKind = "replay_requested"
	EventReplayStarted   EventKind = "replay_started"
)

// Event is produced by a successful engine operation.
// Move is set only for EventMoveMade, PlayerID only for EventReplayRequested.
type Event struct {
	Kind     EventKind
	Session  Session
	Move     *Move
	PlayerID int64
}
