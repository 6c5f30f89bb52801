package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSignInTimeout bounds how long the manager stays Authenticating.
const DefaultSignInTimeout = 5 * time.Minute

// refreshSkew is how close to expiry a token is refreshed.
const refreshSkew = time.Minute

// Config configures a Manager.
type Config struct {
	// RedirectURL is the deep link the provider redirects back to.
	RedirectURL string
	// Timeout bounds a pending sign-in. Zero means DefaultSignInTimeout.
	Timeout time.Duration
}

// Manager owns the session state machine. It is safe for concurrent use.
//
// Listeners registered with Subscribe run after each transition, outside
// the manager's lock, so they may call back into the manager.
type Manager struct {
	provider Provider
	tokens   TokenStore
	opener   Opener
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time

	refreshMu sync.Mutex
	mu        sync.Mutex
	state     State
	session   *Session
	attempt   uint64
	pending   string // access token of the callback being exchanged
	timer     *time.Timer

	listenersMu sync.Mutex
	listeners   []listener
	nextID      int
}

type listener struct {
	id int
	fn func(Event)
}

// NewManager creates a manager in the Unauthenticated state. provider may
// be nil, in which case sign-in fails with ErrNotConfigured and the
// manager stays in guest mode.
func NewManager(provider Provider, tokens TokenStore, opener Opener, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSignInTimeout
	}
	return &Manager{
		provider: provider,
		tokens:   tokens,
		opener:   opener,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Configured reports whether an authentication provider is available.
func (m *Manager) Configured() bool {
	return m.provider != nil
}

// Subscribe registers fn for every subsequent transition and returns a
// function that removes it.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})

	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) emit(ev Event) {
	m.listenersMu.Lock()
	ls := make([]listener, len(m.listeners))
	copy(ls, m.listeners)
	m.listenersMu.Unlock()

	for _, l := range ls {
		l.fn(ev)
	}
}

// State returns the current state and, when Authenticated, a copy of the
// session.
func (m *Manager) State() (State, *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.session.clone()
}

// Session returns a copy of the current session, if any.
func (m *Manager) Session() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated {
		return nil, false
	}
	return m.session.clone(), true
}

// AccessToken returns the bearer token of the current session, or "".
// A token about to expire is refreshed first; when the refresh fails the
// current token is returned and the failure logged.
func (m *Manager) AccessToken(ctx context.Context) string {
	m.mu.Lock()
	if m.state != Authenticated || m.session == nil {
		m.mu.Unlock()
		return ""
	}
	expired := m.session.Expired(m.now(), refreshSkew)
	m.mu.Unlock()

	if expired {
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn("access token refresh failed", zap.Error(err))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated || m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// Restore re-establishes a persisted session without user interaction.
// An expired access token is refreshed first. Any failure is logged and
// leaves the manager Unauthenticated; the result reports whether a
// session was restored.
func (m *Manager) Restore(ctx context.Context) bool {
	if m.tokens == nil {
		return false
	}
	m.mu.Lock()
	if m.state != Unauthenticated {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	sess, err := m.tokens.Load()
	if err != nil {
		m.logger.Warn("failed to load persisted session", zap.Error(err))
		return false
	}
	if sess == nil {
		return false
	}

	if sess.Expired(m.now(), refreshSkew) {
		if m.provider == nil {
			m.logger.Warn("persisted session expired and no provider is configured")
			return false
		}
		refreshed, err := m.provider.Refresh(ctx, sess.RefreshToken)
		if err != nil {
			if errors.Is(err, ErrSessionExpired) {
				if cerr := m.tokens.Clear(); cerr != nil {
					m.logger.Warn("failed to clear expired session", zap.Error(cerr))
				}
			}
			m.logger.Warn("failed to restore session", zap.Error(err))
			return false
		}
		sess = refreshed
		if err := m.tokens.Save(sess); err != nil {
			m.logger.Warn("failed to persist refreshed session", zap.Error(err))
		}
	}

	m.mu.Lock()
	if m.state != Unauthenticated {
		m.mu.Unlock()
		return false
	}
	m.state = Authenticated
	m.session = sess
	m.mu.Unlock()

	m.logger.Info("session restored", zap.String("user_id", sess.UserID))
	m.emit(Event{Type: EventSignedIn, Session: sess.clone(), Restored: true})
	return true
}

// SignIn starts the OAuth flow: it opens the authorize URL and moves to
// Authenticating until CompleteSignIn, CancelSignIn or the timeout.
//
// Example:
//
//	url, err := mgr.SignIn(ctx)
//	if err != nil {
//	    return err // still Unauthenticated
//	}
//	fmt.Println("Continue in your browser:", url)
func (m *Manager) SignIn(ctx context.Context) (string, error) {
	if m.provider == nil {
		return "", ErrNotConfigured
	}

	m.mu.Lock()
	if m.state != Unauthenticated {
		st := m.state
		m.mu.Unlock()
		return "", &TransitionError{Op: "sign in", State: st}
	}
	authURL, err := m.provider.AuthorizeURL(m.cfg.RedirectURL)
	if err != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("failed to build authorize url: %w", err)
	}
	m.state = Authenticating
	m.attempt++
	attempt := m.attempt
	m.timer = time.AfterFunc(m.cfg.Timeout, func() {
		m.abort(attempt, ErrSignInTimeout)
	})
	m.mu.Unlock()

	if m.opener != nil {
		if err := m.opener.Open(authURL); err != nil {
			err = fmt.Errorf("failed to open authorize url: %w", err)
			m.abort(attempt, err)
			return "", err
		}
	}

	m.logger.Info("sign-in started", zap.Duration("timeout", m.cfg.Timeout))
	return authURL, nil
}

// CancelSignIn abandons a pending sign-in.
func (m *Manager) CancelSignIn() error {
	m.mu.Lock()
	if m.state != Authenticating {
		st := m.state
		m.mu.Unlock()
		return &TransitionError{Op: "cancel sign-in", State: st}
	}
	attempt := m.attempt
	m.mu.Unlock()

	m.abort(attempt, ErrSignInCancelled)
	return nil
}

// abort returns a pending sign-in attempt to Unauthenticated. It is a
// no-op when the attempt already finished.
func (m *Manager) abort(attempt uint64, cause error) bool {
	m.mu.Lock()
	if m.state != Authenticating || m.attempt != attempt {
		m.mu.Unlock()
		return false
	}
	m.resetLocked()
	m.mu.Unlock()

	m.logger.Warn("sign-in failed", zap.Error(cause))
	m.emit(Event{Type: EventSignInFailed, Err: cause})
	return true
}

// resetLocked clears pending sign-in state. Caller holds m.mu.
func (m *Manager) resetLocked() {
	m.state = Unauthenticated
	m.pending = ""
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// CompleteSignIn consumes the redirect URL delivered by the provider.
//
// Delivering the same callback twice is harmless: a repeat that arrives
// while the first is being exchanged, or after it succeeded, returns nil
// without a second SignedIn event.
func (m *Manager) CompleteSignIn(ctx context.Context, callbackURL string) error {
	token := callbackToken(callbackURL)

	m.mu.Lock()
	switch m.state {
	case Authenticated:
		duplicate := token != "" && m.session != nil && token == m.session.AccessToken
		m.mu.Unlock()
		if duplicate {
			m.logger.Debug("duplicate sign-in callback ignored")
			return nil
		}
		return &TransitionError{Op: "complete sign-in", State: Authenticated}
	case Unauthenticated:
		m.mu.Unlock()
		return &TransitionError{Op: "complete sign-in", State: Unauthenticated}
	}
	if token != "" && token == m.pending {
		m.mu.Unlock()
		m.logger.Debug("duplicate sign-in callback ignored while exchanging")
		return nil
	}
	m.pending = token
	attempt := m.attempt
	m.mu.Unlock()

	sess, err := m.provider.CompleteCallback(ctx, callbackURL)

	m.mu.Lock()
	if m.state != Authenticating || m.attempt != attempt {
		m.mu.Unlock()
		return fmt.Errorf("%w: sign-in ended before the callback completed", ErrSignInCancelled)
	}
	if err != nil {
		m.resetLocked()
		m.mu.Unlock()
		err = fmt.Errorf("failed to complete sign-in: %w", err)
		m.logger.Warn("sign-in failed", zap.Error(err))
		m.emit(Event{Type: EventSignInFailed, Err: err})
		return err
	}
	m.resetLocked()
	m.state = Authenticated
	m.session = sess
	m.mu.Unlock()

	if m.tokens != nil {
		if err := m.tokens.Save(sess); err != nil {
			m.logger.Warn("failed to persist session", zap.Error(err))
		}
	}

	m.logger.Info("signed in", zap.String("user_id", sess.UserID))
	m.emit(Event{Type: EventSignedIn, Session: sess.clone()})
	return nil
}

// Refresh renews the access token when it is about to expire. No event is
// emitted; the user does not change.
func (m *Manager) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.mu.Lock()
	if m.state != Authenticated {
		st := m.state
		m.mu.Unlock()
		return &TransitionError{Op: "refresh", State: st}
	}
	sess := m.session.clone()
	m.mu.Unlock()

	if !sess.Expired(m.now(), refreshSkew) || m.provider == nil {
		return nil
	}
	refreshed, err := m.provider.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	m.mu.Lock()
	if m.state != Authenticated || m.session.UserID != refreshed.UserID {
		m.mu.Unlock()
		return nil
	}
	m.session = refreshed
	m.mu.Unlock()

	if m.tokens != nil {
		if err := m.tokens.Save(refreshed); err != nil {
			m.logger.Warn("failed to persist refreshed session", zap.Error(err))
		}
	}
	return nil
}

// SignOut ends the session. Provider revocation is best-effort; local
// record data is not touched.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Authenticated {
		st := m.state
		m.mu.Unlock()
		return &TransitionError{Op: "sign out", State: st}
	}
	sess := m.session
	m.state = Unauthenticated
	m.session = nil
	m.mu.Unlock()

	if m.provider != nil {
		if err := m.provider.SignOut(ctx, sess.AccessToken); err != nil {
			m.logger.Warn("provider sign-out failed", zap.Error(err))
		}
	}
	if m.tokens != nil {
		if err := m.tokens.Clear(); err != nil {
			m.logger.Warn("failed to clear persisted session", zap.Error(err))
		}
	}

	m.logger.Info("signed out", zap.String("user_id", sess.UserID))
	m.emit(Event{Type: EventSignedOut})
	return nil
}
