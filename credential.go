package ragchat

import "sync"

// Credentials provides the opaque credential sent with service requests.
// The conversation engine never inspects, persists, or logs the value.
type Credentials interface {
	Get() (string, bool)
	Set(value string)
}

// SessionCredentials holds a credential in memory for the lifetime of the
// session. Safe for concurrent use.
type SessionCredentials struct {
	mu    sync.RWMutex
	value string
	set   bool
}

// Interface compliance check.
var _ Credentials = (*SessionCredentials)(nil)

// NewSessionCredentials returns a holder seeded with value. An empty value
// leaves the holder unset.
func NewSessionCredentials(value string) *SessionCredentials {
	c := &SessionCredentials{}
	if value != "" {
		c.Set(value)
	}
	return c
}

// Get returns the credential and whether one has been set.
func (c *SessionCredentials) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.set
}

// Set replaces the credential.
func (c *SessionCredentials) Set(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.set = true
}
