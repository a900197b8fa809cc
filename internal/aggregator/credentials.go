package aggregator

import "sync"

// Credentials resolves the API key used to obtain access tokens. A key
// submitted during the session takes precedence over the static config
// default. The zero value of both means no credential at all.
type Credentials struct {
	mu       sync.RWMutex
	override string
	fallback string
}

func NewCredentials(configKey string) *Credentials {
	return &Credentials{fallback: configKey}
}

// APIKey returns the session override when set, the config default otherwise.
func (c *Credentials) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.override != "" {
		return c.override
	}
	return c.fallback
}

// SetAPIKey stores a session-scoped override.
func (c *Credentials) SetAPIKey(key string) {
	c.mu.Lock()
	c.override = key
	c.mu.Unlock()
}

func (c *Credentials) HasAPIKey() bool {
	return c.APIKey() != ""
}
