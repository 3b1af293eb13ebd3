package repository

import (
	"context"
	"errors"
	"strings"

	"tictactoe/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type UserRepository struct {
	db *pgxpool.Pool
}

var _ domain.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, points, created_at`,
		strings.TrimSpace(u.Username),
		u.PasswordHash,
	).Scan(&u.ID, &u.Points, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, points, created_at
		 FROM users
		 WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, points, created_at
		 FROM users
		 WHERE lower(username) = lower($1)`,
		strings.TrimSpace(username),
	)
	return scanUser(row)
}

// AddPoints applies a point delta in a single statement.
func (r *UserRepository) AddPoints(ctx context.Context, userID int64, delta int64) (int64, error) {
	var points int64
	err := r.db.QueryRow(ctx,
		`UPDATE users SET points = points + $1 WHERE id = $2 RETURNING points`,
		delta, userID,
	).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrUserNotFound
	}
	return points, err
}

// GetTopByPoints returns users ordered by points desc
func (r *UserRepository) GetTopByPoints(ctx context.Context, limit int) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, points, created_at
		 FROM users
		 ORDER BY points DESC, id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Points, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Points, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
