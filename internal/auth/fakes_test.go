package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeProvider is a scriptable Provider.
type fakeProvider struct {
	mu          sync.Mutex
	callbacks   int
	refreshes   int
	signOuts    int
	block       chan struct{} // when set, CompleteCallback waits on it
	callbackErr error
	refreshErr  error
	signOutErr  error
}

func (p *fakeProvider) AuthorizeURL(redirectTo string) (string, error) {
	return "https://auth.example/authorize?redirect_to=" + redirectTo, nil
}

func (p *fakeProvider) CompleteCallback(ctx context.Context, callbackURL string) (*Session, error) {
	p.mu.Lock()
	p.callbacks++
	block := p.block
	err := p.callbackErr
	p.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	cb, err := ParseCallback(callbackURL, time.Now())
	if err != nil {
		return nil, err
	}
	if cb.Error != "" {
		return nil, ErrSignInDenied
	}
	return &Session{UserID: "user-1", Email: "a@b.c", AccessToken: cb.AccessToken, RefreshToken: cb.RefreshToken,
		ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (p *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return &Session{UserID: "user-1", AccessToken: "fresh-" + refreshToken, RefreshToken: refreshToken,
		ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (p *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts++
	return p.signOutErr
}

func (p *fakeProvider) count() (callbacks, refreshes, signOuts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callbacks, p.refreshes, p.signOuts
}

// mapKV is an in-memory KV.
type mapKV struct {
	mu  sync.Mutex
	m   map[string]string
	err error
}

func newMapKV() *mapKV { return &mapKV{m: map[string]string{}} }

func (k *mapKV) Get(key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return "", false, k.err
	}
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *mapKV) Put(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return k.err
	}
	k.m[key] = value
	return nil
}

func (k *mapKV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

// eventLog records events delivered to a subscriber.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newEventLog(m *Manager) *eventLog {
	l := &eventLog{ch: make(chan Event, 16)}
	m.Subscribe(func(ev Event) {
		l.mu.Lock()
		l.events = append(l.events, ev)
		l.mu.Unlock()
		l.ch <- ev
	})
	return l
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) wait(timeout time.Duration) (Event, error) {
	select {
	case ev := <-l.ch:
		return ev, nil
	case <-time.After(timeout):
		return Event{}, errors.New("timed out waiting for event")
	}
}
