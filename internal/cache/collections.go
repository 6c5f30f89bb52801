package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/denttrack/denttrack/internal/model"
	"go.uber.org/zap"
)

// Fixed cache keys, one per stored value.
const (
	KeyTreatments  = "denttrack.treatments"
	KeyDentists    = "denttrack.dentists"
	KeyTeethStatus = "denttrack.teeth_status"
	KeyProfile     = "denttrack.profile"
	KeySettings    = "denttrack.settings"
	KeySession     = "denttrack.session"
)

// collectionKeys are the keys removed by Clear.
var collectionKeys = []string{KeyTreatments, KeyDentists, KeyTeethStatus}

// load decodes the JSON value under key into dst. It reports false, after
// logging, when the value is absent, unreadable or does not decode; the
// caller then falls back to an empty default.
func (s *Store) load(key string, dst any) bool {
	raw, ok, err := s.Get(key)
	if err != nil {
		s.logger.Warn("cache read failed, treating as absent", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("corrupt cache entry, treating as absent", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) store(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Put(key, string(data))
}

// Treatments returns the cached treatment log, or an empty list.
func (s *Store) Treatments() []model.Treatment {
	var ts []model.Treatment
	if !s.load(KeyTreatments, &ts) || ts == nil {
		return []model.Treatment{}
	}
	return ts
}

// SetTreatments overwrites the cached treatment log.
func (s *Store) SetTreatments(ts []model.Treatment) error {
	if ts == nil {
		ts = []model.Treatment{}
	}
	return s.store(KeyTreatments, ts)
}

// Dentists returns the cached dentists, or an empty list.
func (s *Store) Dentists() []model.Dentist {
	var ds []model.Dentist
	if !s.load(KeyDentists, &ds) || ds == nil {
		return []model.Dentist{}
	}
	return ds
}

// SetDentists overwrites the cached dentists.
func (s *Store) SetDentists(ds []model.Dentist) error {
	if ds == nil {
		ds = []model.Dentist{}
	}
	return s.store(KeyDentists, ds)
}

// TeethStatus returns the cached tooth statuses normalized to all 32
// teeth. An absent or corrupt entry yields every tooth Healthy.
func (s *Store) TeethStatus() model.TeethStatus {
	var ts model.TeethStatus
	if !s.load(KeyTeethStatus, &ts) {
		return model.DefaultTeethStatus()
	}
	return ts.Normalize()
}

// SetTeethStatus overwrites the cached tooth statuses, normalized to all
// 32 teeth so the stored value is exactly what TeethStatus returns.
func (s *Store) SetTeethStatus(ts model.TeethStatus) error {
	return s.store(KeyTeethStatus, ts.Normalize())
}

// Profile returns the cached medical profile, or the zero profile.
func (s *Store) Profile() model.Profile {
	var p model.Profile
	if !s.load(KeyProfile, &p) {
		return model.Profile{}
	}
	return p
}

// SetProfile overwrites the cached medical profile.
func (s *Store) SetProfile(p model.Profile) error {
	return s.store(KeyProfile, p)
}

// Settings returns the cached settings, or the zero settings.
func (s *Store) Settings() model.Settings {
	var st model.Settings
	if !s.load(KeySettings, &st) {
		return model.Settings{}
	}
	return st
}

// SetSettings overwrites the cached settings.
func (s *Store) SetSettings(st model.Settings) error {
	return s.store(KeySettings, st)
}

// Clear removes the three record collections. Profile, settings and the
// persisted session are kept.
func (s *Store) Clear() error {
	return s.ClearContext(context.Background())
}

// ClearContext removes the three record collections in one transaction.
func (s *Store) ClearContext(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range collectionKeys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Path        string
	SizeBytes   int64
	Treatments  int
	Dentists    int
	Treated     int // teeth not Healthy
	HasProfile  bool
	HasSession  bool
	LastUpdated string
}

// Stats reports counts and file size.
func (s *Store) Stats() (Stats, error) {
	st := Stats{
		Path:       s.path,
		Treatments: len(s.Treatments()),
		Dentists:   len(s.Dentists()),
	}
	for _, status := range s.TeethStatus() {
		if status != model.StatusHealthy {
			st.Treated++
		}
	}

	if _, ok, err := s.Get(KeyProfile); err == nil {
		st.HasProfile = ok
	}
	if _, ok, err := s.Get(KeySession); err == nil {
		st.HasSession = ok
	}

	var last *string
	if err := s.conn.QueryRow(`SELECT MAX(updated_at) FROM kv`).Scan(&last); err != nil {
		return st, fmt.Errorf("failed to query cache stats: %w", err)
	}
	if last != nil {
		st.LastUpdated = *last
	}

	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	return st, nil
}
