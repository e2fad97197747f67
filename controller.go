package session

import (
	"context"
	"sync"
)

// Controller is the stateful core of the subsystem. It owns the
// in-memory current user, orchestrates initialization, login, signup,
// and logout against whichever Backend is active, and keeps the
// persisted token and snapshot consistent with what the backend reports.
//
// Operations are fully serialized: Initialize, Login, Signup, and Logout
// each hold opMu for their whole duration, backend calls and cache writes
// included, so two interleaved logins cannot leave the persisted snapshot
// pointing at a different user than the in-memory one. mu guards plain
// field access underneath and stays cheap for readers.
type Controller struct {
	opMu    sync.Mutex
	mu      sync.Mutex
	backend Backend
	store   Store
	logger  Logger

	state     State
	current   *User
	loading   bool
	users     []User
	listeners map[int]func(Snapshot)
	nextID    int
}

// Snapshot is the immutable view of the controller's state handed to
// subscribers and to the View layer.
type Snapshot struct {
	State    State
	User     *User
	Loading  bool
	AllUsers []User
}

// NewController wires a Backend with a Store. The Store receives the
// cached snapshot; where the token lives is the adapter's concern (the
// direct adapter shares the same Store, the managed adapter keeps its
// own session handle).
func NewController(backend Backend, store Store) *Controller {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Controller{
		backend:   backend,
		store:     store,
		logger:    defLogger{},
		state:     StateUninitialized,
		listeners: map[int]func(Snapshot){},
	}
}

// WithLogger overrides the controller's logger.
func (c *Controller) WithLogger(logger Logger) *Controller {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// State returns the controller's lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsLoading reports whether an operation is in flight. Guaranteed to
// return to false on every exit path, including errors.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// CurrentUser returns a copy of the current user, or nil when anonymous.
func (c *Controller) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyUser(c.current)
}

// AllUsers returns a copy of the cached user list. Order follows the
// backend's return order and is not guaranteed stable.
func (c *Controller) AllUsers() []User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyUsers(c.users)
}

// Students returns the cached users holding the student role.
func (c *Controller) Students() []User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return filterStudents(c.users)
}

// StudentsByTeacher returns the students visible to the given teacher.
// There is no teacher-to-student assignment model, so this returns every
// student regardless of teacherID.
// TODO: filter by assignment once a teacher-student assignment model exists.
func (c *Controller) StudentsByTeacher(teacherID string) []User {
	_ = teacherID
	return c.Students()
}

// Initialize restores the session at startup. It runs exactly once: a
// second call fails with ErrInvalidTransition.
//
// The sequence: load the cached snapshot optimistically, then ask the
// backend for the authoritative current user. A token rejection evicts
// both persisted slots and downgrades to anonymous; any other failure
// (typically transport) leaves the optimistic value in place. Finally
// the full user list is loaded best-effort. The loading flag is true for
// the whole sequence.
func (c *Controller) Initialize(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if !CanTransition(c.state, StateInitializing) {
		c.mu.Unlock()
		return ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"from": string(c.state),
			"to":   string(StateInitializing),
		})
	}
	c.state = StateInitializing
	c.loading = true
	c.notifyLocked()
	c.mu.Unlock()

	defer c.settle()

	if cached, err := c.store.GetSnapshot(ctx); err != nil {
		c.logger.Warn("failed to read cached snapshot: %v", err)
	} else if cached != nil {
		c.setCurrent(ctx, cached, false)
	}

	authoritative, err := c.backend.CurrentUser(ctx)
	switch {
	case err == nil && authoritative != nil:
		c.setCurrent(ctx, authoritative, true)
	case IsTokenError(err):
		c.logger.Info("stored credential rejected, clearing session: %v", err)
		c.evict(ctx)
	case err != nil:
		// Backend unreachable or otherwise unhealthy: degrade
		// gracefully, keep the optimistic value.
		c.logger.Warn("could not re-validate session: %v", err)
	}

	c.refreshUsers(ctx)

	return nil
}

// Login authenticates against the active backend. On success the
// returned user becomes current and is persisted to the snapshot cache.
// On failure prior state is left untouched.
func (c *Controller) Login(ctx context.Context, email, password string) (*User, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.beginAction()
	defer c.settle()

	user, err := c.backend.LogIn(ctx, email, password)
	if err != nil {
		c.logger.Info("login failed: %v", err)
		return nil, err
	}

	c.setCurrent(ctx, user, true)
	return copyUser(user), nil
}

// Signup registers a new account and, on success, logs it in. The four
// fields are precondition-checked locally; an empty field fails fast
// with a validation error and no network call.
func (c *Controller) Signup(ctx context.Context, input SignUpInput) (*User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.beginAction()
	defer c.settle()

	user, err := c.backend.SignUp(ctx, input)
	if err != nil {
		c.logger.Info("signup failed: %v", err)
		return nil, err
	}

	c.setCurrent(ctx, user, true)
	c.refreshUsers(ctx)

	return copyUser(user), nil
}

// Logout unconditionally clears the current user, the snapshot cache,
// and the stored credential, then notifies the backend. Remote sign-out
// failures are logged, never propagated.
func (c *Controller) Logout(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.current = nil
	c.state = StateAnonymous
	c.notifyLocked()
	c.mu.Unlock()

	c.evict(ctx)

	if err := c.backend.LogOut(ctx); err != nil {
		c.logger.Warn("remote sign-out failed: %v", err)
	}
}

// Subscribe registers a change listener. Listeners fire synchronously
// while the controller lock is held, so they must not call back into the
// controller; hand the Snapshot off instead. The returned cancel func
// removes the listener.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		User:     copyUser(c.current),
		Loading:  c.loading,
		AllUsers: copyUsers(c.users),
	}
}

func (c *Controller) notifyLocked() {
	snap := c.snapshotLocked()
	for _, fn := range c.listeners {
		fn(snap)
	}
}

func (c *Controller) beginAction() {
	c.mu.Lock()
	c.loading = true
	c.notifyLocked()
	c.mu.Unlock()
}

// settle clears the loading flag and resolves the lifecycle state from
// whether a current user is present. Runs on every exit path.
func (c *Controller) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loading = false
	target := StateAnonymous
	if c.current != nil {
		target = StateAuthenticated
	}
	if CanTransition(c.state, target) {
		c.state = target
	}
	c.notifyLocked()
}

// setCurrent replaces the current user; when persist is set the snapshot
// cache is refreshed best-effort. Callers hold opMu, so the persisted
// snapshot always tracks the last current user.
func (c *Controller) setCurrent(ctx context.Context, user *User, persist bool) {
	c.mu.Lock()
	c.current = copyUser(user)
	c.notifyLocked()
	c.mu.Unlock()

	if persist && user != nil {
		if err := c.store.SetSnapshot(ctx, user); err != nil {
			c.logger.Warn("failed to persist user snapshot: %v", err)
		}
	}
}

// evict drops the persisted token and snapshot and clears the current
// user. Used on credential invalidation and logout.
func (c *Controller) evict(ctx context.Context) {
	c.mu.Lock()
	c.current = nil
	c.notifyLocked()
	c.mu.Unlock()

	if err := c.store.ClearSnapshot(ctx); err != nil {
		c.logger.Warn("failed to clear user snapshot: %v", err)
	}
	if err := c.store.ClearToken(ctx); err != nil {
		c.logger.Warn("failed to clear stored credential: %v", err)
	}
}

func (c *Controller) refreshUsers(ctx context.Context) {
	users, err := c.backend.ListUsers(ctx)
	if err != nil {
		c.logger.Warn("failed to load user list: %v", err)
		return
	}

	c.mu.Lock()
	c.users = users
	c.notifyLocked()
	c.mu.Unlock()
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func copyUsers(users []User) []User {
	if users == nil {
		return nil
	}
	cp := make([]User, len(users))
	copy(cp, users)
	return cp
}

func filterStudents(users []User) []User {
	students := make([]User, 0, len(users))
	for _, u := range users {
		if u.IsStudent() {
			students = append(students, u)
		}
	}
	return students
}
