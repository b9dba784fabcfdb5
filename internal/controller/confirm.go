package controller

import (
	"context"
	"sync"
)

// PendingAction is a destructive operation awaiting explicit confirmation.
type PendingAction struct {
	// Name describes the action for the confirmation prompt,
	// e.g. "delete clinic".
	Name string
	// EntityID is the target's id, kept for the prompt's context.
	EntityID string

	execute func(ctx context.Context) error
}

// Confirmable gates destructive operations behind an explicit
// confirmation step. It holds at most one pending action; requesting a
// new one replaces the previous, mirroring single-dialog blocking
// semantics. It is not a queue.
type Confirmable struct {
	mu      sync.Mutex
	pending *PendingAction
}

func NewConfirmable() *Confirmable {
	return &Confirmable{}
}

// Request stores the action without executing it.
func (c *Confirmable) Request(name, entityID string, execute func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &PendingAction{Name: name, EntityID: entityID, execute: execute}
}

// Pending returns the awaiting action, or nil.
func (c *Confirmable) Pending() *PendingAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Confirm executes the stored action and clears the pending slot whether
// it succeeded or failed. Confirming with nothing pending is a no-op.
func (c *Confirmable) Confirm(ctx context.Context) error {
	c.mu.Lock()
	action := c.pending
	c.pending = nil
	c.mu.Unlock()

	if action == nil || action.execute == nil {
		return nil
	}
	return action.execute(ctx)
}

// Decline clears the pending slot without executing.
func (c *Confirmable) Decline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}
