package auth

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/newstype/internal/model"
)

type sessionFile struct {
	Identity *model.Identity `toml:"identity"`
	Token    string          `toml:"token"`
}

// Context holds the signed-in identity and its credential. It is passed
// explicitly to the components that need it.
type Context struct {
	path string

	mu       sync.Mutex
	identity *model.Identity
	token    string
	subs     map[int]func(model.Identity, bool)
	nextSub  int
}

// NewContext returns an empty context persisted at path. An empty path keeps
// the context in memory only.
func NewContext(path string) *Context {
	return &Context{path: path, subs: make(map[int]func(model.Identity, bool))}
}

// LoadContext reads a persisted context. A missing file yields a signed-out
// context.
func LoadContext(path string) (*Context, error) {
	c := NewContext(path)
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to stat session: %w", err)
	}
	var sf sessionFile
	if _, err := toml.DecodeFile(path, &sf); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if sf.Identity != nil && sf.Identity.UserID != "" {
		c.identity = sf.Identity
		c.token = sf.Token
	}
	return c, nil
}

// Current returns the signed-in identity, if any.
func (c *Context) Current() (model.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return model.Identity{}, false
	}
	return *c.identity, true
}

// IssueCredential returns the bearer credential of the signed-in identity.
func (c *Context) IssueCredential() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil || c.token == "" {
		return "", ErrUnauthenticated
	}
	return c.token, nil
}

// Set signs in id with token, persists the context and notifies subscribers.
func (c *Context) Set(id model.Identity, token string) error {
	c.mu.Lock()
	c.identity = &id
	c.token = token
	err := c.saveLocked()
	subs := c.subscribersLocked()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(id, true)
	}
	return err
}

// Clear signs out, removes the persisted context and notifies subscribers.
func (c *Context) Clear() error {
	c.mu.Lock()
	c.identity = nil
	c.token = ""
	var err error
	if c.path != "" {
		if rerr := os.Remove(c.path); rerr != nil && !os.IsNotExist(rerr) {
			err = fmt.Errorf("failed to remove session: %w", rerr)
		}
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(model.Identity{}, false)
	}
	return err
}

// Subscribe registers fn for identity changes. The returned function
// unsubscribes it.
func (c *Context) Subscribe(fn func(id model.Identity, signedIn bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.nextSub
	c.nextSub++
	c.subs[key] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, key)
	}
}

func (c *Context) subscribersLocked() []func(model.Identity, bool) {
	subs := make([]func(model.Identity, bool), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func (c *Context) saveLocked() error {
	if c.path == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(sessionFile{Identity: c.identity, Token: c.token}); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(c.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
