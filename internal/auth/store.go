package auth

import (
	"encoding/json"
	"fmt"
)

// TokenStore persists the session between runs.
type TokenStore interface {
	// Load returns the persisted session, or nil when there is none.
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// KV is the key-value surface a KVTokenStore persists into. The local
// cache satisfies it.
type KV interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
	Delete(key string) error
}

// KVTokenStore stores the session as JSON under a single key.
type KVTokenStore struct {
	kv  KV
	key string
}

// NewKVTokenStore returns a TokenStore writing to key in kv.
func NewKVTokenStore(kv KV, key string) *KVTokenStore {
	return &KVTokenStore{kv: kv, key: key}
}

func (s *KVTokenStore) Load() (*Session, error) {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode persisted session: %w", err)
	}
	if sess.UserID == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s *KVTokenStore) Save(sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.kv.Put(s.key, string(data))
}

func (s *KVTokenStore) Clear() error {
	return s.kv.Delete(s.key)
}
