package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/denttrack/denttrack/internal/auth"
	"github.com/denttrack/denttrack/internal/model"
	"github.com/denttrack/denttrack/internal/remote"
	"go.uber.org/zap"
)

// ErrTreatmentNotFound is returned when editing or deleting an unknown
// treatment id.
var ErrTreatmentNotFound = errors.New("treatment not found")

// LocalCache is the cache surface the coordinator writes. *cache.Store
// satisfies it.
type LocalCache interface {
	Treatments() []model.Treatment
	Dentists() []model.Dentist
	TeethStatus() model.TeethStatus
	SetTreatments([]model.Treatment) error
	SetDentists([]model.Dentist) error
	SetTeethStatus(model.TeethStatus) error
	Clear() error
}

// Sessions is the session surface the coordinator follows.
// *auth.Manager satisfies it.
type Sessions interface {
	Session() (*auth.Session, bool)
	Subscribe(fn func(auth.Event)) (unsubscribe func())
}

// Options configures a Coordinator.
type Options struct {
	Logger *zap.Logger
	// PushGuestDataOnSignIn pushes local records missing remotely before
	// reconciliation overwrites them.
	PushGuestDataOnSignIn bool
	// ReconcileTimeout bounds a reconciliation triggered by a session
	// event. Zero means 30 seconds.
	ReconcileTimeout time.Duration
}

// Collections is a snapshot of the three record collections.
type Collections struct {
	Treatments  []model.Treatment `json:"treatments"`
	Dentists    []model.Dentist   `json:"dentists"`
	TeethStatus model.TeethStatus `json:"teethStatus"`
}

func (c Collections) clone() Collections {
	return Collections{
		Treatments:  model.CloneTreatments(c.Treatments),
		Dentists:    model.CloneDentists(c.Dentists),
		TeethStatus: c.TeethStatus.Clone(),
	}
}

// ChangeKind says what a Change touched.
type ChangeKind int

const (
	ChangeTreatments ChangeKind = iota + 1
	ChangeDentists
	ChangeTeeth
	ChangeReconciled
	ChangeSession
	ChangeSyncing
	ChangeCleared
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeTreatments:
		return "treatments"
	case ChangeDentists:
		return "dentists"
	case ChangeTeeth:
		return "teeth"
	case ChangeReconciled:
		return "reconciled"
	case ChangeSession:
		return "session"
	case ChangeSyncing:
		return "syncing"
	case ChangeCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after every state change.
type Change struct {
	Kind ChangeKind
	// ID is the affected record, when there is one.
	ID string
	// Degraded is set on ChangeReconciled when the remote fetch failed and
	// cached data is in use.
	Degraded bool
}

// Coordinator owns the in-memory collections.
type Coordinator struct {
	cache    LocalCache
	remote   remote.Store
	sessions Sessions
	opts     Options
	logger   *zap.Logger

	// writeMu serializes mutations and reconciliation.
	writeMu sync.Mutex

	mu         sync.RWMutex
	col        Collections
	session    *auth.Session
	generation uint64
	reconciled string

	inflight atomic.Int32

	listenersMu sync.Mutex
	listeners   []func(Change)
	unsubscribe func()
}

// New creates a coordinator. rs may be nil when no remote store is
// configured and sessions may be nil for a guest-only process. Call Init
// before use.
func New(cache LocalCache, rs remote.Store, sessions Sessions, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReconcileTimeout <= 0 {
		opts.ReconcileTimeout = 30 * time.Second
	}
	return &Coordinator{
		cache:    cache,
		remote:   rs,
		sessions: sessions,
		opts:     opts,
		logger:   opts.Logger,
		col: Collections{
			Treatments:  []model.Treatment{},
			Dentists:    []model.Dentist{},
			TeethStatus: model.DefaultTeethStatus(),
		},
	}
}

// Init loads the cache into memory, follows session transitions and, when
// a session is already established, reconciles with the remote store.
func (c *Coordinator) Init(ctx context.Context) error {
	c.loadFromCache()

	if c.sessions == nil {
		return nil
	}
	c.unsubscribe = c.sessions.Subscribe(c.onSessionEvent)

	if sess, ok := c.sessions.Session(); ok {
		c.setSession(sess)
		return c.Reconcile(ctx)
	}
	return nil
}

// Close stops following session transitions.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Subscribe registers fn for every subsequent change. fn runs
// synchronously and must not call mutating methods.
func (c *Coordinator) Subscribe(fn func(Change)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Coordinator) notify(ch Change) {
	c.listenersMu.Lock()
	ls := make([]func(Change), len(c.listeners))
	copy(ls, c.listeners)
	c.listenersMu.Unlock()

	for _, fn := range ls {
		fn(ch)
	}
}

// Collections returns a deep copy of the current collections.
func (c *Coordinator) Collections() Collections {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.col.clone()
}

// IsSyncing reports whether a remote call is in flight.
func (c *Coordinator) IsSyncing() bool {
	return c.inflight.Load() > 0
}

// HasSession reports whether a user session is active.
func (c *Coordinator) HasSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// RemoteEnabled reports whether a remote store is configured.
func (c *Coordinator) RemoteEnabled() bool {
	return c.remote != nil
}

func (c *Coordinator) onSessionEvent(ev auth.Event) {
	switch ev.Type {
	case auth.EventSignedIn:
		if ev.Session == nil {
			return
		}
		c.setSession(ev.Session)
		c.notify(Change{Kind: ChangeSession})

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.ReconcileTimeout)
		defer cancel()
		if err := c.Reconcile(ctx); err != nil {
			c.logger.Warn("reconciliation after sign-in failed", zap.Error(err))
		}

	case auth.EventSignedOut:
		c.clearSession()
		c.logger.Info("session ended, continuing in guest mode")
		c.notify(Change{Kind: ChangeSession})

	case auth.EventSignInFailed:
		c.logger.Debug("sign-in failed, staying in guest mode", zap.Error(ev.Err))
	}
}

// setSession records sess. The generation advances only when the user
// changes, so a token refresh does not orphan in-flight writes.
func (c *Coordinator) setSession(sess *auth.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.UserID != sess.UserID {
		c.generation++
	}
	s := *sess
	c.session = &s
}

// clearSession drops the session reference only; collections are kept.
func (c *Coordinator) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.generation++
	c.reconciled = ""
}

// remoteTarget returns the user to write for and the session generation,
// or false when writes stay local.
func (c *Coordinator) remoteTarget() (userID string, generation uint64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.remote == nil || c.session == nil {
		return "", 0, false
	}
	return c.session.UserID, c.generation, true
}

// sameSession reports whether the session of generation gen is still
// active.
func (c *Coordinator) sameSession(gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil && c.generation == gen
}

// track runs fn as an in-flight remote call for IsSyncing.
func (c *Coordinator) track(fn func()) {
	if c.inflight.Add(1) == 1 {
		c.notify(Change{Kind: ChangeSyncing})
	}
	defer func() {
		if c.inflight.Add(-1) == 0 {
			c.notify(Change{Kind: ChangeSyncing})
		}
	}()
	fn()
}

// loadFromCache replaces memory with the cache contents.
func (c *Coordinator) loadFromCache() {
	col := Collections{
		Treatments:  c.cache.Treatments(),
		Dentists:    c.cache.Dentists(),
		TeethStatus: c.cache.TeethStatus().Normalize(),
	}
	model.SortTreatments(col.Treatments)

	c.mu.Lock()
	c.col = col
	c.mu.Unlock()
}
