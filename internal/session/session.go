package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"bankfeed-sync-go/internal/aggregator"
)

// Session scopes one authenticated caller: its credential override and its
// cached access token live and die with the session, never shared across
// concurrent jobs for different installs.
type Session struct {
	ID          string
	Credentials *aggregator.Credentials
	Tokens      *aggregator.TokenManager
	CreatedAt   time.Time
}

// Factory builds the credential store and token manager for a new session.
type Factory func() (*aggregator.Credentials, *aggregator.TokenManager)

// Registry tracks live sessions by token.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

func (r *Registry) Create() *Session {
	creds, tokens := r.factory()
	s := &Session{
		ID:          uuid.NewString(),
		Credentials: creds,
		Tokens:      tokens,
		CreatedAt:   time.Now(),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}
