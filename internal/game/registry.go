package game

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"tictactoe/internal/domain"

	"github.com/google/uuid"
)

const (
	DefaultInviteCodeLength = 6
	inviteAlphabet          = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Registry owns the live sessions.
//
// Lock order: an entry lock may be held while taking r.mu, never the reverse.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	openCodes map[string]string // invite code -> session id, WaitingForOpponent only

	codeLen int
	newID   func() string
	newCode func(n int) string
	now     func() time.Time
}

// entry is the exclusive-access unit of one session.
type entry struct {
	mu      sync.Mutex
	session domain.Session
	// openCode is the key this session holds in openCodes, if any.
	openCode string
}

type RegistryOption func(*Registry)

func WithInviteCodeLength(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.codeLen = n
		}
	}
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithGenerators overrides id and invite code sources.
func WithGenerators(newID func() string, newCode func(n int) string) RegistryOption {
	return func(r *Registry) {
		if newID != nil {
			r.newID = newID
		}
		if newCode != nil {
			r.newCode = newCode
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions:  make(map[string]*entry),
		openCodes: make(map[string]string),
		codeLen:   DefaultInviteCodeLength,
		newID:     uuid.NewString,
		newCode:   GenerateInviteCode,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a new session with host seated as X.
func (r *Registry) Create(host domain.Player) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for r.sessions[id] != nil {
		id = r.newID()
	}
	code := r.newCode(r.codeLen)
	for r.openCodes[code] != "" {
		code = r.newCode(r.codeLen)
	}

	s := domain.Session{
		ID:         id,
		InviteCode: code,
		PlayerX:    host,
		Status:     domain.StatusWaitingForOpponent,
		CreatedAt:  r.now(),
		Version:    1,
	}
	r.sessions[id] = &entry{session: s, openCode: code}
	r.openCodes[code] = id
	return s.Clone()
}

// FindByID returns a snapshot of the session.
func (r *Registry) FindByID(id string) (domain.Session, bool) {
	e := r.lookup(id)
	if e == nil {
		return domain.Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), true
}

// FindByInviteCode resolves a code of a session still waiting for an opponent.
func (r *Registry) FindByInviteCode(code string) (domain.Session, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.RLock()
	id := r.openCodes[code]
	e := r.sessions[id]
	r.mu.RUnlock()
	if e == nil {
		return domain.Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Status != domain.StatusWaitingForOpponent {
		return domain.Session{}, false
	}
	return e.session.Clone(), true
}

// Update runs fn on a working copy of the session while holding the
// session's lock. The copy is committed only when fn returns nil.
func (r *Registry) Update(id string, fn func(s *domain.Session) error) (domain.Session, error) {
	e := r.lookup(id)
	if e == nil {
		return domain.Session{}, domain.NewRuleError(domain.ErrNotFound, "game not found")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.session.Clone()
	if err := fn(&work); err != nil {
		return e.session.Clone(), err
	}
	work.Version = e.session.Version + 1
	e.session = work
	r.syncCode(e)
	return work.Clone(), nil
}

// Save installs s under its id, replacing any previous copy.
func (r *Registry) Save(s domain.Session) {
	r.mu.Lock()
	e := r.sessions[s.ID]
	if e == nil {
		e = &entry{}
		r.sessions[s.ID] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	s = s.Clone()
	if s.Version <= e.session.Version {
		s.Version = e.session.Version + 1
	}
	e.session = s
	r.syncCode(e)
}

// ListInProgress returns the ids of sessions with a running turn clock.
func (r *Registry) ListInProgress() []string {
	r.mu.RLock()
	entries := make(map[string]*entry, len(r.sessions))
	for id, e := range r.sessions {
		entries[id] = e
	}
	r.mu.RUnlock()

	var ids []string
	for id, e := range entries {
		e.mu.Lock()
		if e.session.Status == domain.StatusInProgress {
			ids = append(ids, id)
		}
		e.mu.Unlock()
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) lookup(id string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// syncCode keeps the open-code index in step with e's session; caller holds e.mu.
func (r *Registry) syncCode(e *entry) {
	s := e.session
	open := s.Status == domain.StatusWaitingForOpponent && s.InviteCode != ""
	if open && e.openCode == s.InviteCode {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.openCode != "" {
		if r.openCodes[e.openCode] == s.ID {
			delete(r.openCodes, e.openCode)
		}
		e.openCode = ""
	}
	if !open {
		return
	}
	if owner, taken := r.openCodes[s.InviteCode]; !taken || owner == s.ID {
		r.openCodes[s.InviteCode] = s.ID
		e.openCode = s.InviteCode
	}
}

// GenerateInviteCode draws n symbols uniformly from [A-Z0-9].
func GenerateInviteCode(n int) string {
	const limit = 252 // largest multiple of 36 below 256
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/2)
	for len(out) < n {
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, inviteAlphabet[int(b)%len(inviteAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
