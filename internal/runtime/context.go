package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hubsync.dev/hubsync/internal/config"
	"hubsync.dev/hubsync/internal/engine"
	"hubsync.dev/hubsync/internal/output"
)

type contextKey struct{}

// ErrClosed is returned by Hub after Close
var ErrClosed = errors.New("hubsync runtime is closed")

// Context provides access to settings, output and the hub engine for commands
type Context struct {
	Settings config.Settings
	Splog    *output.Splog

	mu     sync.Mutex
	hub    *engine.Hub
	closed bool
}

// NewContext creates a context for the given settings
func NewContext(settings config.Settings, splog *output.Splog) *Context {
	return &Context{
		Settings: settings,
		Splog:    splog,
	}
}

// Hub returns the hub engine, creating it on first call
func (c *Context) Hub(ctx context.Context) (*engine.Hub, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.hub != nil {
		return c.hub, nil
	}
	hub, err := engine.NewHubFromSettings(ctx, c.Settings, c.Splog)
	if err != nil {
		return nil, err
	}
	c.hub = hub
	return hub, nil
}

// Close stops the hub engine, if one was created, and flushes the log file.
// Later calls do nothing.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	hub := c.hub
	c.hub = nil
	c.mu.Unlock()
	if hub != nil {
		hub.Close()
	}
	return c.Splog.Close()
}

// WithContext stores c in parent
func WithContext(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, contextKey{}, c)
}

// GetContext returns the runtime context stored by WithContext
func GetContext(ctx context.Context) (*Context, error) {
	if ctx == nil {
		return nil, fmt.Errorf("no command context")
	}
	c, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || c == nil {
		return nil, fmt.Errorf("hubsync runtime not initialized")
	}
	return c, nil
}
