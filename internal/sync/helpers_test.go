package sync

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/denttrack/denttrack/internal/auth"
	"github.com/denttrack/denttrack/internal/cache"
	"github.com/denttrack/denttrack/internal/model"
	"github.com/denttrack/denttrack/internal/remote"
	"go.uber.org/zap"
)

// fakeSessions is a Sessions whose transitions the test drives.
type fakeSessions struct {
	mu        sync.Mutex
	sess      *auth.Session
	listeners []func(auth.Event)
}

func (f *fakeSessions) Session() (*auth.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil {
		return nil, false
	}
	s := *f.sess
	return &s, true
}

func (f *fakeSessions) Subscribe(fn func(auth.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeSessions) emit(ev auth.Event) {
	f.mu.Lock()
	ls := make([]func(auth.Event), len(f.listeners))
	copy(ls, f.listeners)
	f.mu.Unlock()
	for _, fn := range ls {
		fn(ev)
	}
}

func (f *fakeSessions) signIn(userID, token string) {
	s := &auth.Session{UserID: userID, AccessToken: token}
	f.mu.Lock()
	f.sess = s
	f.mu.Unlock()
	f.emit(auth.Event{Type: auth.EventSignedIn, Session: s})
}

func (f *fakeSessions) signOut() {
	f.mu.Lock()
	f.sess = nil
	f.mu.Unlock()
	f.emit(auth.Event{Type: auth.EventSignedOut})
}

// setupTestCache opens a SQLite cache in a temporary directory.
func setupTestCache(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// setupCoordinator builds and initializes a coordinator over a fresh cache.
func setupCoordinator(t *testing.T, rs remote.Store, sessions Sessions, opts Options) (*Coordinator, *cache.Store) {
	t.Helper()
	store := setupTestCache(t)
	c := New(store, rs, sessions, opts)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c, store
}

// cachedCollections reads the three collections back from the cache.
func cachedCollections(store *cache.Store) Collections {
	ts := store.Treatments()
	return Collections{
		Treatments:  ts,
		Dentists:    store.Dentists(),
		TeethStatus: store.TeethStatus(),
	}
}

// assertMirrorsCache fails unless memory and cache hold equal collections.
func assertMirrorsCache(t *testing.T, c *Coordinator, store *cache.Store) {
	t.Helper()
	mem := c.Collections()
	disk := cachedCollections(store)
	if !reflect.DeepEqual(mem.Treatments, disk.Treatments) {
		t.Errorf("treatments differ:\nmemory %+v\n cache %+v", mem.Treatments, disk.Treatments)
	}
	if !reflect.DeepEqual(mem.Dentists, disk.Dentists) {
		t.Errorf("dentists differ:\nmemory %+v\n cache %+v", mem.Dentists, disk.Dentists)
	}
	if !reflect.DeepEqual(mem.TeethStatus, disk.TeethStatus) {
		t.Errorf("teeth status differs")
	}
}

func treatment(kind model.TreatmentKind, date model.Date, tooth *model.ToothID) model.Treatment {
	return model.Treatment{Kind: kind, Date: date, ToothID: tooth}
}

func ids(ts []model.Treatment) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

// blockingStore wraps a Memory store and holds SaveTreatment until
// released.
type blockingStore struct {
	*remote.Memory
	entered chan struct{}
	release chan struct{}
	id      string
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		Memory:  remote.NewMemory(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		id:      "server-id",
	}
}

func (b *blockingStore) SaveTreatment(ctx context.Context, userID string, t model.Treatment, existingID string) (string, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.id, nil
}

// failingDentists fails only the dentist fetch.
type failingDentists struct {
	*remote.Memory
}

func (f failingDentists) FetchDentists(ctx context.Context, userID string) ([]model.Dentist, error) {
	return []model.Dentist{}, &remote.Error{Op: "fetch dentists", Kind: remote.KindServer}
}
