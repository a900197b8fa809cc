package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankfeed-sync-go/internal/aggregator"
)

func newTestRegistry() *Registry {
	return NewRegistry(func() (*aggregator.Credentials, *aggregator.TokenManager) {
		creds := aggregator.NewCredentials("config-key")
		return creds, aggregator.NewTokenManager(creds, "http://unused/token", "3.0")
	})
}

func TestRegistry_CreateAndGet(t *testing.T) {
	reg := newTestRegistry()
	sess := reg.Create()
	require.NotEmpty(t, sess.ID)

	got, ok := reg.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	reg := newTestRegistry()
	a := reg.Create()
	b := reg.Create()

	a.Credentials.SetAPIKey("key-a")

	assert.Equal(t, "key-a", a.Credentials.APIKey())
	assert.Equal(t, "config-key", b.Credentials.APIKey(),
		"a credential override in one session must not leak into another")
	assert.NotSame(t, a.Tokens, b.Tokens)
}
