package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/denttrack/denttrack/internal/model"
	"go.uber.org/zap"
)

// setupTestStore opens a cache in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "test.db")
	s, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesDirectoryAndSchema(t *testing.T) {
	s := setupTestStore(t)

	if _, err := os.Stat(filepath.Dir(s.Path())); err != nil {
		t.Fatalf("cache directory not created: %v", err)
	}

	var count int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='kv'`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	if count != 1 {
		t.Errorf("kv table does not exist")
	}

	// Idempotent
	if err := s.InitSchema(); err != nil {
		t.Errorf("second InitSchema() failed: %v", err)
	}
}

func TestGetters_EmptyDefaults(t *testing.T) {
	s := setupTestStore(t)

	if ts := s.Treatments(); ts == nil || len(ts) != 0 {
		t.Errorf("Treatments() = %#v, want empty non-nil list", ts)
	}
	if ds := s.Dentists(); ds == nil || len(ds) != 0 {
		t.Errorf("Dentists() = %#v, want empty non-nil list", ds)
	}
	if !reflect.DeepEqual(s.TeethStatus(), model.DefaultTeethStatus()) {
		t.Errorf("TeethStatus() is not the all-Healthy default")
	}
	if s.Profile() != (model.Profile{}) {
		t.Errorf("Profile() = %+v, want zero", s.Profile())
	}
}

func TestGetters_CorruptEntriesTreatedAsAbsent(t *testing.T) {
	s := setupTestStore(t)

	for _, key := range []string{KeyTreatments, KeyDentists, KeyTeethStatus, KeyProfile} {
		if err := s.Put(key, "{not json"); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
	}

	if len(s.Treatments()) != 0 {
		t.Error("corrupt treatments not treated as absent")
	}
	if len(s.Dentists()) != 0 {
		t.Error("corrupt dentists not treated as absent")
	}
	if !reflect.DeepEqual(s.TeethStatus(), model.DefaultTeethStatus()) {
		t.Error("corrupt teeth status not treated as absent")
	}
	if s.Profile() != (model.Profile{}) {
		t.Error("corrupt profile not treated as absent")
	}

	// A JSON value of the wrong shape is corrupt too.
	if err := s.Put(KeyTreatments, `{"id":"x"}`); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if len(s.Treatments()) != 0 {
		t.Error("wrong-shape treatments not treated as absent")
	}
}

func TestRoundTrip_DeepEquality(t *testing.T) {
	s := setupTestStore(t)

	cost := 250.0
	warranty := model.Date("2029-06-30")
	treatments := []model.Treatment{
		{
			ID: "t1", ToothID: model.ToothPtr(46), Kind: model.KindCrown, Date: "2024-06-01",
			Notes: "porcelain", Cost: &cost, Currency: "USD", WarrantyUntil: &warranty,
			Attachments: []model.Attachment{{ID: "a1", Name: "xray.png", URL: "data:image/png;base64,AAAA"}},
			DentistID:   "d1",
		},
		{ID: "t2", Kind: model.KindHygiene, Date: "2024-01-15"},
		{ID: "t3", Kind: model.KindOther, Date: "2023-01-15", Attachments: []model.Attachment{}},
	}
	dentists := []model.Dentist{
		{ID: "d1", Name: "Dr. Molar", ClinicName: "Smile Co", Specialty: model.SpecialtyEndodontist, Phone: "555"},
		{ID: "d2", Name: "Dr. Bare"},
	}
	teeth := model.DefaultTeethStatus()
	teeth[46] = model.StatusCrown
	teeth[16] = model.StatusMissing

	if err := s.SetTreatments(treatments); err != nil {
		t.Fatalf("SetTreatments failed: %v", err)
	}
	if err := s.SetDentists(dentists); err != nil {
		t.Fatalf("SetDentists failed: %v", err)
	}
	if err := s.SetTeethStatus(teeth); err != nil {
		t.Fatalf("SetTeethStatus failed: %v", err)
	}

	if got := s.Treatments(); !reflect.DeepEqual(got, treatments) {
		t.Errorf("Treatments round trip mismatch:\n got %+v\nwant %+v", got, treatments)
	}
	if got := s.Dentists(); !reflect.DeepEqual(got, dentists) {
		t.Errorf("Dentists round trip mismatch:\n got %+v\nwant %+v", got, dentists)
	}
	if got := s.TeethStatus(); !reflect.DeepEqual(got, teeth) {
		t.Errorf("TeethStatus round trip mismatch")
	}
}

func TestRoundTrip_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	want := []model.Treatment{{ID: "t1", Kind: model.KindCheckup, Date: "2024-01-01"}}
	if err := s.SetTreatments(want); err != nil {
		t.Fatalf("SetTreatments failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if got := s.Treatments(); !reflect.DeepEqual(got, want) {
		t.Errorf("after reopen Treatments() = %+v, want %+v", got, want)
	}
}

func TestClear_KeepsProfileAndSession(t *testing.T) {
	s := setupTestStore(t)

	_ = s.SetTreatments([]model.Treatment{{ID: "t1", Kind: model.KindCheckup, Date: "2024-01-01"}})
	_ = s.SetDentists([]model.Dentist{{ID: "d1", Name: "Dr. A"}})
	_ = s.SetTeethStatus(model.TeethStatus{11: model.StatusFilled})
	_ = s.SetProfile(model.Profile{Name: "Ana", BloodType: "O+"})
	_ = s.Put(KeySession, `{"userId":"u1"}`)

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	for _, key := range collectionKeys {
		if _, ok, _ := s.Get(key); ok {
			t.Errorf("key %s survived Clear()", key)
		}
	}
	if s.Profile().Name != "Ana" {
		t.Error("Clear() removed the profile")
	}
	if _, ok, _ := s.Get(KeySession); !ok {
		t.Error("Clear() removed the session")
	}
}

func TestSetTeethStatus_StoresNormalizedChart(t *testing.T) {
	s := setupTestStore(t)
	partial := model.TeethStatus{16: model.StatusMissing, 99: model.StatusCrown}

	if err := s.SetTeethStatus(partial); err != nil {
		t.Fatalf("SetTeethStatus failed: %v", err)
	}

	want := partial.Normalize()
	got := s.TeethStatus()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TeethStatus() = %v, want %v", got, want)
	}
	if len(got) != 32 || got[16] != model.StatusMissing {
		t.Errorf("unexpected chart: %v", got)
	}

	raw, ok, err := s.Get(KeyTeethStatus)
	if err != nil || !ok {
		t.Fatalf("Get(%s) = %v, %v", KeyTeethStatus, ok, err)
	}
	var stored model.TeethStatus
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored value does not decode: %v", err)
	}
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("stored %v, want the normalized chart", stored)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Put("k", "one"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put("k", "two"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	v, ok, err := s.Get("k")
	if err != nil || !ok || v != "two" {
		t.Errorf("Get(k) = %q, %v, %v; want two", v, ok, err)
	}

	var rows int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM kv WHERE key = 'k'`).Scan(&rows); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("found %d rows for k, want 1", rows)
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestStats(t *testing.T) {
	s := setupTestStore(t)

	_ = s.SetTreatments([]model.Treatment{
		{ID: "t1", Kind: model.KindCheckup, Date: "2024-01-01"},
		{ID: "t2", Kind: model.KindCheckup, Date: "2024-02-01"},
	})
	_ = s.SetTeethStatus(model.TeethStatus{11: model.StatusFilled, 12: model.StatusCrown})

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if st.Treatments != 2 || st.Dentists != 0 || st.Treated != 2 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.LastUpdated == "" {
		t.Error("LastUpdated is empty")
	}
	if st.HasSession {
		t.Error("HasSession = true on a fresh cache")
	}
}
