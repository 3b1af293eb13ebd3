// Package memory implements an in-memory user store for development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tictactoe/internal/domain"
)

type UserStore struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	byName map[string]int64
	nextID int64
}

var _ domain.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{
		users:  make(map[int64]*domain.User),
		byName: make(map[string]int64),
	}
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(u.Username))
	if _, exists := s.byName[key]; exists {
		return domain.ErrUsernameTaken
	}

	s.nextID++
	u.ID = s.nextID
	u.Username = strings.TrimSpace(u.Username)
	u.Points = 0
	u.CreatedAt = time.Now().UTC()

	stored := *u
	s.users[u.ID] = &stored
	s.byName[key] = u.ID
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *s.users[id]
	return &out, nil
}

func (s *UserStore) AddPoints(ctx context.Context, userID int64, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.Points += delta
	return u.Points, nil
}

func (s *UserStore) GetTopByPoints(ctx context.Context, limit int) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out := *u
		out.PasswordHash = ""
		res = append(res, out)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Points != res[j].Points {
			return res[i].Points > res[j].Points
		}
		return res[i].ID < res[j].ID
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	return nil
}
