package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/infra/cache"
	"github.com/boddenberg/insights-bff-go/internal/infra/observability"
	"github.com/boddenberg/insights-bff-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisteredNotice is shown on the login form after a successful registration.
const RegisteredNotice = "Registration successful! Please login."

// AuthMode selects which auth form a workspace without a session shows.
type AuthMode int

const (
	ModeLogin AuthMode = iota
	ModeRegister
)

func (m AuthMode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

// WorkspaceState is a snapshot of the root view.
type WorkspaceState struct {
	Mode          AuthMode
	Authenticated bool
	Error         string
	Notice        string
	Email         string
	Name          string
}

// Workspace is the root view of one browser: it owns the session and shows
// the login form, the register form or the dashboard.
//
// NoSession(login) and NoSession(register) switch on Toggle. A successful
// Login moves to Session, which is never left. A dashboard whose metrics
// failed is replaced on Reload or on a repeated Login.
type Workspace struct {
	ID string

	auth      *AuthService
	dashboard DashboardDeps

	mu      sync.Mutex
	mode    AuthMode
	session domain.Session
	dash    *Dashboard
	errMsg  string
	notice  string
	email   string
	name    string
	closed  bool
}

// NewWorkspace creates a workspace in login mode without a session.
func NewWorkspace(id string, auth *AuthService, dashboard DashboardDeps) *Workspace {
	return &Workspace{ID: id, auth: auth, dashboard: dashboard}
}

// State snapshots the root view.
func (w *Workspace) State() WorkspaceState {
	w.mu.Lock()
	defer w.mu.Unlock()

	return WorkspaceState{
		Mode:          w.mode,
		Authenticated: w.session.Authenticated(),
		Error:         w.errMsg,
		Notice:        w.notice,
		Email:         w.email,
		Name:          w.name,
	}
}

// Session returns the current session.
func (w *Workspace) Session() domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Dashboard returns the dashboard, or nil without a session.
func (w *Workspace) Dashboard() *Dashboard {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dash
}

// Toggle switches between the login and register forms.
func (w *Workspace) Toggle() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Authenticated() {
		return
	}
	if w.mode == ModeLogin {
		w.mode = ModeRegister
	} else {
		w.mode = ModeLogin
	}
	w.errMsg = ""
	w.notice = ""
}

// Login authenticates and, on success, opens the dashboard for the token.
// Signing in again over a dashboard whose metrics failed remounts it.
func (w *Workspace) Login(ctx context.Context, email, password string) (domain.Session, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return domain.Session{}, domain.ErrWorkspaceClosed
	}
	if w.session.Authenticated() && !w.dashFailedLocked() {
		s := w.session
		w.mu.Unlock()
		return s, nil
	}
	w.errMsg = ""
	w.notice = ""
	w.email = email
	w.mu.Unlock()

	session, err := w.auth.Login(ctx, email, password)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.errMsg = domain.UserMessage(err)
		return domain.Session{}, err
	}
	if w.session.Authenticated() && !w.dashFailedLocked() {
		return w.session, nil
	}
	if err := w.openLocked(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Restore opens a session from a previously persisted token.
func (w *Workspace) Restore(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Authenticated() {
		return nil
	}
	return w.openLocked(ctx, domain.Session{Token: token})
}

// Reload remounts the dashboard once its metrics failure has been shown, so
// reloading the page retries the request. It reports whether a new
// dashboard was opened.
func (w *Workspace) Reload(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.session.Authenticated() || w.dash == nil || !w.dash.FailureShown() {
		return false
	}
	return w.openLocked(ctx, w.session) == nil
}

func (w *Workspace) dashFailedLocked() bool {
	return w.dash != nil && w.dash.MetricsFailed()
}

func (w *Workspace) openLocked(ctx context.Context, session domain.Session) error {
	if w.closed {
		return domain.ErrWorkspaceClosed
	}
	if w.dash != nil {
		w.dash.Close()
	}
	w.session = session
	w.errMsg = ""
	w.notice = ""
	w.dash = NewDashboard(session.Token, w.dashboard)
	w.dash.Start(ctx)
	return nil
}

// Register creates an account. On success the workspace returns to the
// login form with a notice; it does not sign in.
func (w *Workspace) Register(ctx context.Context, name, email, password string) error {
	w.mu.Lock()
	if w.session.Authenticated() {
		w.mu.Unlock()
		return nil
	}
	w.errMsg = ""
	w.notice = ""
	w.name = name
	w.email = email
	w.mu.Unlock()

	err := w.auth.Register(ctx, name, email, password)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.errMsg = domain.UserMessage(err)
		return err
	}
	w.mode = ModeLogin
	w.notice = RegisteredNotice
	w.name = ""
	return nil
}

// Close tears down the dashboard and its chart.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.dash != nil {
		w.dash.Close()
	}
}

type workspaceCache interface {
	port.Cache[*Workspace]
	Touch(key string) (*Workspace, bool)
	Len() int
	Close()
}

// WorkspaceStore keeps workspaces in memory and closes them on expiry.
type WorkspaceStore struct {
	items   workspaceCache
	newFn   func(id string) *Workspace
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewWorkspaceStore creates a store whose idle workspaces expire after ttl.
func NewWorkspaceStore(ttl time.Duration, newFn func(id string) *Workspace, metrics *observability.Metrics, logger *zap.Logger) *WorkspaceStore {
	s := &WorkspaceStore{newFn: newFn, metrics: metrics, logger: logger}
	s.items = cache.New[*Workspace](ttl, cache.WithEvictionHook(s.evicted))
	return s
}

func (s *WorkspaceStore) evicted(id string, w *Workspace) {
	w.Close()
	s.metrics.WorkspaceClosed()
	s.logger.Debug("workspace closed", zap.String("workspace_id", id))
}

// Open creates a new workspace.
func (s *WorkspaceStore) Open() *Workspace {
	w := s.newFn(uuid.NewString())
	s.items.Set(w.ID, w)
	s.metrics.WorkspaceOpened()
	s.logger.Debug("workspace opened", zap.String("workspace_id", w.ID))
	return w
}

// Transient returns a workspace that is neither stored nor counted. It backs
// read-only requests from browsers that have not opened a workspace yet.
func (s *WorkspaceStore) Transient() *Workspace {
	return s.newFn("")
}

// Get returns a live workspace and extends its lifetime.
func (s *WorkspaceStore) Get(id string) (*Workspace, bool) {
	return s.items.Touch(id)
}

// Len returns the number of live workspaces.
func (s *WorkspaceStore) Len() int {
	return s.items.Len()
}

// Close closes every workspace.
func (s *WorkspaceStore) Close() {
	s.items.Close()
}
