package domain

import "errors"

// Failure kinds reported by the session engine.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrCellOccupied      = errors.New("cell occupied")
	ErrNotYourTurn       = errors.New("not your turn")
)

// Account errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// RuleError carries a failure kind plus the reason shown to the player.
type RuleError struct {
	Kind   error
	Reason string
}

func (e *RuleError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Reason
}

func (e *RuleError) Unwrap() error {
	return e.Kind
}

func NewRuleError(kind error, reason string) *RuleError {
	return &RuleError{Kind: kind, Reason: reason}
}

// ErrorCode maps an error to the short code used on the wire.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrCellOccupied):
		return "cell_occupied"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal"
	}
}
