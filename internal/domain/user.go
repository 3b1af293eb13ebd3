package domain

import (
	"context"
	"time"
)

type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Points       int64     `db:"points" json:"points"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserRepository - identity and point-balance store
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// AddPoints applies delta to the user's balance and returns the new total.
	AddPoints(ctx context.Context, userID int64, delta int64) (int64, error)
	GetTopByPoints(ctx context.Context, limit int) ([]User, error)
	Ping(ctx context.Context) error
}
