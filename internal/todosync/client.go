// Package todosync keeps an in-memory todo list consistent with a remote
// collection.
//
// The Client is the only owner of the list. Each operation issues its request
// without holding any lock, then applies the result in a single critical
// section, so observers never see a partial update. Operations are not
// serialized against each other: when two responses touch the same todo, the
// one applied last wins locally.
//
// Toggle and Edit differ on purpose. Toggle sends !done computed from the
// local record and, once the service accepts it, flips the local record
// without reading the response; two toggles in flight at once can therefore
// leave the local view out of step with the service until the next Refresh.
// Edit replaces the local record with the one the service returns.
package todosync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"todo/internal/service"
)

// Snapshot is a consistent view of the client state.
type Snapshot struct {
	Tasks []service.Task
	Busy  bool
	Err   error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds every operation. The deletes of RemoveCompleted share
// one deadline; the resync after a failed batch gets a fresh one. Zero means
// no deadline beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRefreshAfterBulkFailure makes RemoveCompleted re-fetch the list when any
// delete fails, so deletes that did succeed are reflected locally.
func WithRefreshAfterBulkFailure(enabled bool) Option {
	return func(c *Client) { c.healBulk = enabled }
}

// WithBusyOnToggle raises the busy flag during Toggle.
func WithBusyOnToggle(enabled bool) Option {
	return func(c *Client) { c.busyOnToggle = enabled }
}

// WithOnChange registers a callback run after every state change, outside
// the client's lock. It must not block.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Client) { c.onChange = fn }
}

// Client holds the local todo list and synchronizes it with a service.Service.
type Client struct {
	svc          service.Service
	logger       *slog.Logger
	timeout      time.Duration
	healBulk     bool
	busyOnToggle bool
	onChange     func(Snapshot)

	mu       sync.RWMutex
	tasks    []service.Task
	inflight int
	lastErr  error
}

// New creates a client with an empty list. Call Refresh to load it.
func New(svc service.Service, opts ...Option) *Client {
	c := &Client{
		svc:    svc,
		logger: slog.New(slog.DiscardHandler),
		tasks:  []service.Task{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tasks returns a copy of the local list.
func (c *Client) Tasks() []service.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tasks)
}

// Find returns the local todo with id.
func (c *Client) Find(id int) (service.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.tasks[i], true
	}
	return service.Task{}, false
}

// Busy reports whether a busy-raising operation is in flight.
func (c *Client) Busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight > 0
}

// Err returns the last error, or nil if the last settled operation succeeded.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Snapshot returns tasks, busy flag and last error read together.
func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Refresh replaces the local list with the service's list.
func (c *Client) Refresh(ctx context.Context) error {
	c.begin()
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	tasks, err := c.svc.List(ctx)
	if err != nil {
		return c.fail(true, FetchFailed, err)
	}
	c.succeed(true, func() {
		c.tasks = slices.Clone(tasks)
	})
	c.logger.Debug("refreshed todos", "count", len(tasks))
	return nil
}

// Create adds a todo and appends the stored record. A title or description
// that is empty after trimming returns ErrInvalidDraft without a request and
// without touching the last error.
func (c *Client) Create(ctx context.Context, title, description string) error {
	draft := service.Draft{Title: title, Description: description, Done: false}
	if draft.Blank() {
		return fmt.Errorf("%w: title and description required", ErrInvalidDraft)
	}

	c.begin()
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	task, err := c.svc.Create(ctx, draft)
	if err != nil {
		return c.fail(true, CreateFailed, err)
	}
	c.succeed(true, func() {
		// A repeated id would break uniqueness; keep one record per id.
		if i := c.indexLocked(task.ID); i >= 0 {
			c.logger.Warn("service returned an existing id on create", "id", task.ID)
			c.tasks[i] = task
			return
		}
		c.tasks = append(c.tasks, task)
	})
	c.logger.Debug("created todo", "id", task.ID)
	return nil
}

// Toggle flips done on the todo with id.
func (c *Client) Toggle(ctx context.Context, id int) error {
	current, ok := c.Find(id)
	if !ok {
		return c.fail(false, UpdateFailed, fmt.Errorf("%w: %d", ErrNotFound, id))
	}
	next := !current.Done

	busy := c.busyOnToggle
	if busy {
		c.begin()
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.svc.SetDone(ctx, id, next); err != nil {
		return c.fail(busy, UpdateFailed, err)
	}
	c.succeed(busy, func() {
		if i := c.indexLocked(id); i >= 0 {
			c.tasks[i].Done = next
		}
	})
	c.logger.Debug("toggled todo", "id", id, "done", next)
	return nil
}

// Edit replaces title, description and done of the todo with id and stores
// the record the service returns.
func (c *Client) Edit(ctx context.Context, id int, draft service.Draft) error {
	if _, ok := c.Find(id); !ok {
		return c.fail(false, EditFailed, fmt.Errorf("%w: %d", ErrNotFound, id))
	}

	c.begin()
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	task, err := c.svc.Update(ctx, id, draft)
	if err != nil {
		return c.fail(true, EditFailed, err)
	}
	c.succeed(true, func() {
		i := c.indexLocked(id)
		// Removed while the request was in flight: do not bring it back.
		if i < 0 {
			return
		}
		// The record stays keyed by id so ids remain unique.
		if task.ID != id {
			c.logger.Warn("service returned a different id on edit", "id", id, "returned", task.ID)
			task.ID = id
		}
		c.tasks[i] = task
	})
	c.logger.Debug("edited todo", "id", id)
	return nil
}

// Remove deletes the todo with id and drops it locally once the service confirms.
func (c *Client) Remove(ctx context.Context, id int) error {
	if _, ok := c.Find(id); !ok {
		return c.fail(false, DeleteFailed, fmt.Errorf("%w: %d", ErrNotFound, id))
	}

	c.begin()
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.svc.Delete(ctx, id); err != nil {
		return c.fail(true, DeleteFailed, err)
	}
	c.succeed(true, func() {
		c.tasks = slices.DeleteFunc(c.tasks, func(t service.Task) bool { return t.ID == id })
	})
	c.logger.Debug("deleted todo", "id", id)
	return nil
}

// RemoveCompleted deletes every todo that is done when it is called. The
// deletes run concurrently and all of them settle before the result is
// applied. The local list changes only if every delete succeeded; otherwise
// it is left as it was, even though some todos may already be gone from the
// service, unless WithRefreshAfterBulkFailure is set.
func (c *Client) RemoveCompleted(ctx context.Context) error {
	c.begin()
	parent := ctx
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	c.mu.RLock()
	var ids []int
	for _, t := range c.tasks {
		if t.Done {
			ids = append(ids, t.ID)
		}
	}
	c.mu.RUnlock()

	if len(ids) == 0 {
		c.succeed(true, nil)
		return nil
	}

	// A plain Group: one failure must not cancel the other deletes.
	var g errgroup.Group
	errs := make([]error, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			if err := c.svc.Delete(ctx, id); err != nil {
				errs[i] = fmt.Errorf("delete %d: %w", id, err)
				return errs[i]
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		bulkErr := &Error{Kind: BulkDeleteFailed, Err: err}
		c.logger.Debug("bulk delete failed", "requested", len(ids), "error", err)
		if !c.healBulk {
			c.settle(true, nil, bulkErr)
			return bulkErr
		}
		// The batch may have used up the deadline; the resync gets its own.
		healCtx, healCancel := c.opContext(parent)
		defer healCancel()
		tasks, listErr := c.svc.List(healCtx)
		if listErr != nil {
			return c.fail(true, FetchFailed, listErr)
		}
		c.settle(true, func() { c.tasks = slices.Clone(tasks) }, bulkErr)
		return bulkErr
	}

	removed := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		removed[id] = struct{}{}
	}
	c.succeed(true, func() {
		c.tasks = slices.DeleteFunc(c.tasks, func(t service.Task) bool {
			_, ok := removed[t.ID]
			return ok
		})
	})
	c.logger.Debug("deleted completed todos", "count", len(ids))
	return nil
}

func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Client) begin() {
	c.mu.Lock()
	c.inflight++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Client) succeed(busy bool, mutate func()) {
	c.settle(busy, mutate, nil)
}

func (c *Client) fail(busy bool, kind Kind, cause error) error {
	err := &Error{Kind: kind, Err: cause}
	c.logger.Debug("todo operation failed", "kind", kind.String(), "error", cause)
	c.settle(busy, nil, err)
	return err
}

// settle ends an operation: applies mutate (if any), overwrites the last
// error with err, and leaves busy if the operation raised it.
func (c *Client) settle(busy bool, mutate func(), err error) {
	c.mu.Lock()
	if busy {
		c.inflight--
	}
	if mutate != nil {
		mutate()
	}
	c.lastErr = err
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Client) notify(snap Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}

func (c *Client) snapshotLocked() Snapshot {
	return Snapshot{
		Tasks: slices.Clone(c.tasks),
		Busy:  c.inflight > 0,
		Err:   c.lastErr,
	}
}

func (c *Client) indexLocked(id int) int {
	return slices.IndexFunc(c.tasks, func(t service.Task) bool { return t.ID == id })
}
