package client

import (
	"context"
	"net/http"
	"sync"

	auth "github.com/goliatone/go-auth-starter"
)

// Status is the state of the session context
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusError          Status = "error"
)

// ActionType names a transition
type ActionType string

const (
	ActionStart      ActionType = "AUTH_START"
	ActionSuccess    ActionType = "AUTH_SUCCESS"
	ActionError      ActionType = "AUTH_ERROR"
	ActionLogout     ActionType = "AUTH_LOGOUT"
	ActionClearError ActionType = "CLEAR_ERROR"
)

// Action is dispatched to Reduce
type Action struct {
	Type  ActionType
	User  *auth.UserView
	Error string
}

// State is a snapshot of the session context
type State struct {
	Status Status
	User   *auth.UserView
	Error  string
}

func (s State) IsAuthenticated() bool { return s.Status == StatusAuthenticated }
func (s State) IsLoading() bool       { return s.Status == StatusAuthenticating }

// InitialState is anonymous with no error
func InitialState() State {
	return State{Status: StatusAnonymous}
}

// Reduce returns the state after action. Unknown actions leave state as is.
func Reduce(state State, action Action) State {
	switch action.Type {
	case ActionStart:
		state.Status = StatusAuthenticating
		state.Error = ""
	case ActionSuccess:
		state.Status = StatusAuthenticated
		state.User = action.User
		state.Error = ""
	case ActionError:
		state.Status = StatusError
		state.User = nil
		state.Error = action.Error
	case ActionLogout:
		state.Status = StatusAnonymous
		state.User = nil
		state.Error = ""
	case ActionClearError:
		state.Error = ""
		if state.Status == StatusError {
			state.Status = StatusAnonymous
		}
	}
	return state
}

// AuthAPI is the part of the API the session context drives
type AuthAPI interface {
	Register(ctx context.Context, req RegisterRequest) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password string) (*auth.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Listener is notified after every transition
type Listener func(State)

// Context owns the client session: it drives the API, persists results in
// the store and publishes state transitions.
type Context struct {
	mu        sync.Mutex
	api       AuthAPI
	store     SessionStore
	state     State
	listeners map[int]Listener
	nextID    int
	logger    auth.Logger
}

// NewContext returns an anonymous context
func NewContext(api AuthAPI, store SessionStore) *Context {
	if store == nil {
		store = NewMemoryStore()
	}
	_, logger := auth.ResolveLogger("client.session", nil, nil)
	return &Context{
		api:       api,
		store:     store,
		state:     InitialState(),
		listeners: map[int]Listener{},
		logger:    logger,
	}
}

// WithLogger sets the logger
func (c *Context) WithLogger(logger auth.Logger) *Context {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// State returns the current snapshot
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the stored session, nil when there is none
func (c *Context) Session() (*Session, error) {
	return c.store.Get()
}

// Subscribe registers fn and returns a function that removes it
func (c *Context) Subscribe(fn Listener) func() {
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

// Dispatch applies action and notifies listeners with the new state
func (c *Context) Dispatch(action Action) State {
	c.mu.Lock()
	c.state = Reduce(c.state, action)
	next := c.state
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// Hydrate restores the stored session without contacting the server
func (c *Context) Hydrate() error {
	session, err := c.store.Get()
	if err != nil {
		return err
	}
	if session.Authenticated() {
		c.Dispatch(Action{Type: ActionSuccess, User: session.User})
	}
	return nil
}

func (c *Context) Login(ctx context.Context, email, password string) error {
	c.Dispatch(Action{Type: ActionStart})
	res, err := c.api.Login(ctx, email, password)
	return c.complete(res, err)
}

func (c *Context) Register(ctx context.Context, req RegisterRequest) error {
	c.Dispatch(Action{Type: ActionStart})
	res, err := c.api.Register(ctx, req)
	return c.complete(res, err)
}

// Refresh rotates the stored refresh token. A rejected token ends the session.
func (c *Context) Refresh(ctx context.Context) error {
	session, err := c.store.Get()
	if err != nil {
		return err
	}
	if session == nil || session.RefreshToken == "" {
		return errNoRefreshToken
	}

	res, err := c.api.Refresh(ctx, session.RefreshToken)
	if err != nil {
		if StatusOf(err) == http.StatusUnauthorized {
			c.clear()
		}
		return err
	}

	if err := c.store.Set(SessionFromResult(res)); err != nil {
		return err
	}
	c.Dispatch(Action{Type: ActionSuccess, User: &res.User})
	return nil
}

// Logout always clears the local session. The server error, if any, is
// returned after that.
func (c *Context) Logout(ctx context.Context) error {
	var refreshToken string
	if session, err := c.store.Get(); err == nil && session != nil {
		refreshToken = session.RefreshToken
	}

	serverErr := c.api.Logout(ctx, refreshToken)
	if serverErr != nil {
		c.logger.Warn("logout request failed", "error", serverErr)
	}

	c.clear()
	return serverErr
}

func (c *Context) ClearError() {
	c.Dispatch(Action{Type: ActionClearError})
}

func (c *Context) complete(res *auth.AuthResult, err error) error {
	if err != nil {
		c.Dispatch(Action{Type: ActionError, Error: ErrorMessage(err)})
		return err
	}

	if err := c.store.Set(SessionFromResult(res)); err != nil {
		c.Dispatch(Action{Type: ActionError, Error: err.Error()})
		return err
	}

	c.Dispatch(Action{Type: ActionSuccess, User: &res.User})
	return nil
}

func (c *Context) clear() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("failed to clear session", "error", err)
	}
	c.Dispatch(Action{Type: ActionLogout})
}
