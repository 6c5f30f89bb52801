package auth

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type received struct {
	mu   sync.Mutex
	urls []string
}

func (r *received) handle(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	return nil
}

func (r *received) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

func TestInbox_DeliversWatchedCallbacks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	var got received
	in := NewInbox(dir, got.handle, zap.NewNop())
	require.NoError(t, in.Start(context.Background()))
	defer in.Stop()

	_, err := Deliver(dir, "denttrack://cb#access_token=one\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(got.get()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "denttrack://cb#access_token=one", got.get()[0])

	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(dir)
		return len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond, "callback files must be removed")
}

func TestInbox_DrainsPendingOnStart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	_, err := Deliver(dir, "denttrack://cb#access_token=early")
	require.NoError(t, err)

	var got received
	in := NewInbox(dir, got.handle, nil)
	require.NoError(t, in.Start(context.Background()))
	defer in.Stop()

	require.Eventually(t, func() bool { return len(got.get()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"denttrack://cb#access_token=early"}, got.get())
}

func TestInbox_FeedsManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	m := newTestManager(&fakeProvider{}, newMapKV(), nil)
	events := newEventLog(m)

	in := NewInbox(dir, m.CompleteSignIn, nil)
	require.NoError(t, in.Start(context.Background()))
	defer in.Stop()

	_, err := m.SignIn(context.Background())
	require.NoError(t, err)

	// The OS may hand the same deep link over twice.
	_, err = Deliver(dir, testCallback)
	require.NoError(t, err)
	_, err = Deliver(dir, testCallback)
	require.NoError(t, err)

	ev, err := events.wait(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, EventSignedIn, ev.Type)

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, events.all(), 1)
}

func TestInbox_StartTwice(t *testing.T) {
	in := NewInbox(t.TempDir(), func(context.Context, string) error { return nil }, nil)
	require.NoError(t, in.Start(context.Background()))
	defer in.Stop()
	assert.Error(t, in.Start(context.Background()))
	require.NoError(t, in.Stop())
	require.NoError(t, in.Stop())
}
