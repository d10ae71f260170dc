package cancel

import (
	"context"
	"errors"
	"log"
	"os/exec"
	"sync"
	"sync/atomic"
)

// ErrCancelled is returned when work is attempted after the engine-wide
// cancellation flag has been set.
var ErrCancelled = errors.New("cancelled")

// Controller is the engine-wide cancellation authority. It owns a single
// boolean flag, a set of derived contexts, and a registry of spawned
// subprocesses. Each registered command is placed in its own process group
// so the whole tree (including grandchildren such as the media tool spawned
// by the extractor) can be killed atomically.
type Controller struct {
	cancelled atomic.Bool

	mu      sync.Mutex
	cancels []context.CancelFunc
	cmds    map[*exec.Cmd]struct{}
}

// NewController returns an armed controller.
func NewController() *Controller {
	return &Controller{cmds: make(map[*exec.Cmd]struct{})}
}

// Cancelled reports whether the flag has been set.
func (c *Controller) Cancelled() bool {
	return c.cancelled.Load()
}

// WithContext derives a context that is cancelled when the controller is.
// Callers pass it to every blocking operation (extractor runs, HTTP
// requests, browser waits).
func (c *Controller) WithContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelFn := context.WithCancel(parent)
	if c.cancelled.Load() {
		cancelFn()
		return ctx, cancelFn
	}
	c.mu.Lock()
	c.cancels = append(c.cancels, cancelFn)
	c.mu.Unlock()
	return ctx, cancelFn
}

// Register prepares cmd for group-kill and records it. It must be called
// before cmd.Start. Once the flag is set no new subprocess may start, so
// Register fails with ErrCancelled.
func (c *Controller) Register(cmd *exec.Cmd) error {
	if c.cancelled.Load() {
		return ErrCancelled
	}
	setProcessGroup(cmd)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled.Load() {
		return ErrCancelled
	}
	c.cmds[cmd] = struct{}{}
	return nil
}

// Deregister removes a finished command from the registry.
func (c *Controller) Deregister(cmd *exec.Cmd) {
	c.mu.Lock()
	delete(c.cmds, cmd)
	c.mu.Unlock()
}

// Cancel flips the flag, cancels every derived context, kills every
// registered process group, and sweeps stray media-tool processes. It is
// idempotent; only the first call does the work.
func (c *Controller) Cancel() {
	if !c.cancelled.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	cancels := c.cancels
	c.cancels = nil
	cmds := make([]*exec.Cmd, 0, len(c.cmds))
	for cmd := range c.cmds {
		cmds = append(cmds, cmd)
	}
	c.cmds = make(map[*exec.Cmd]struct{})
	c.mu.Unlock()

	for _, cancelFn := range cancels {
		cancelFn()
	}
	for _, cmd := range cmds {
		if cmd.Process == nil {
			continue
		}
		if err := killProcessGroup(cmd.Process.Pid); err != nil {
			log.Printf("Failed to kill process group %d: %v", cmd.Process.Pid, err)
		}
	}

	// Best-effort sweep for media-tool children the extractor spawned
	// outside our registry.
	sweepFn()
}

// sweepFn is swappable for tests; the sweep execs a real process killer.
var sweepFn = sweepMediaTool

// Reset re-arms the controller for a new queue run. It has no effect while
// registered subprocesses are still alive.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cmds) > 0 {
		return
	}
	c.cancelled.Store(false)
}
