package link

import (
	"context"
	"errors"

	"bankfeed-sync-go/internal/aggregator"
	"bankfeed-sync-go/internal/logger"
)

// ErrNoLinkedUser means a sync was attempted before a remote user was linked
// for this installation. User-actionable, not a system fault.
var ErrNoLinkedUser = errors.New("no linked aggregator user for this installation")

// UserCreator is the single client operation the manager needs.
type UserCreator interface {
	CreateUser(ctx context.Context, email, mobile string) (*aggregator.User, error)
}

// Manager resolves and lazily creates the remote user for an installation.
// Callers look up first and create only on a miss, so the pipeline never has
// to know whether a link already exists.
type Manager struct {
	store Store
	users UserCreator
}

func NewManager(store Store, users UserCreator) *Manager {
	return &Manager{store: store, users: users}
}

// LinkedUserID returns the remote user id for the installation, or an empty
// string when no link exists yet.
func (m *Manager) LinkedUserID(ctx context.Context, installIdentity string) (string, error) {
	return m.store.RemoteUserID(ctx, installIdentity)
}

// CreateLinkedUser creates the remote user and persists the mapping. A
// second call for the same installation overwrites the stored id rather than
// creating a duplicate row.
func (m *Manager) CreateLinkedUser(ctx context.Context, installIdentity, email, mobile string) (string, error) {
	log := logger.FromContext(ctx)
	log.Debug().Str("install_identity", installIdentity).Msg("creating remote aggregator user")

	user, err := m.users.CreateUser(ctx, email, mobile)
	if err != nil {
		return "", err
	}

	if err := m.store.Upsert(ctx, installIdentity, user.ID); err != nil {
		return "", err
	}

	log.Debug().Str("remote_user_id", user.ID).Msg("persisted remote user id")
	return user.ID, nil
}
