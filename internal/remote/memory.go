package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process Store. It honours the same ordering and user
// scoping as the real backends, and can be told to fail every call.
type Memory struct {
	mu      sync.Mutex
	users   map[string]*memoryAccount
	failure Kind
	calls   int
}

type memoryAccount struct {
	treatments []model.Treatment
	dentists   []model.Dentist
	teeth      model.TeethStatus
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]*memoryAccount)}
}

// SetFailure makes every subsequent call fail with the given kind. Zero
// restores normal operation.
func (m *Memory) SetFailure(k Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = k
}

// Calls returns the number of operations attempted so far.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// begin records a call and returns the account for userID, or the
// injected failure.
func (m *Memory) begin(ctx context.Context, op, userID string) (*memoryAccount, error) {
	m.calls++
	if err := ctx.Err(); err != nil {
		return nil, newError(op, KindNetwork, err)
	}
	if m.failure != 0 {
		return nil, newError(op, m.failure, fmt.Errorf("injected failure"))
	}
	if userID == "" {
		return nil, newError(op, KindUnauthorized, errNoSession)
	}
	acct, ok := m.users[userID]
	if !ok {
		acct = &memoryAccount{teeth: model.TeethStatus{}}
		m.users[userID] = acct
	}
	return acct, nil
}

func (m *Memory) FetchTreatments(ctx context.Context, userID string) ([]model.Treatment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.begin(ctx, "fetch treatments", userID)
	if err != nil {
		return []model.Treatment{}, err
	}
	out := model.CloneTreatments(acct.treatments)
	if out == nil {
		out = []model.Treatment{}
	}
	model.SortTreatments(out)
	return out, nil
}

func (m *Memory) SaveTreatment(ctx context.Context, userID string, t model.Treatment, existingID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.begin(ctx, "save treatment", userID)
	if err != nil {
		return "", err
	}

	t = t.Clone()
	if existingID != "" {
		for i := range acct.treatments {
			if acct.treatments[i].ID == existingID {
				t.ID = existingID
				acct.treatments[i] = t
				return existingID, nil
			}
		}
		return "", newError("update treatment", KindNotFound, fmt.Errorf("treatment %s", existingID))
	}

	t.ID = uuid.NewString()
	acct.treatments = append(acct.treatments, t)
	return t.ID, nil
}

func (m *Memory) DeleteTreatment(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.begin(ctx, "delete treatment", userID)
	if err != nil {
		return err
	}
	kept := acct.treatments[:0]
	for _, t := range acct.treatments {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	acct.treatments = kept
	return nil
}

func (m *Memory) FetchDentists(ctx context.Context, userID string) ([]model.Dentist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.begin(ctx, "fetch dentists", userID)
	if err != nil {
		return []model.Dentist{}, err
	}
	out := model.CloneDentists(acct.dentists)
	if out == nil {
		out = []model.Dentist{}
	}
	model.SortDentists(out)
	return out, nil
}

func (m *Memory) SaveDentist(ctx context.Context, userID string, d model.Dentist) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.begin(ctx, "insert dentist", userID)
	if err != nil {
		return "", err
	}
	d.ID = uuid.NewString()
	d.IsVerified = false
	acct.dentists = append(acct.dentists, d)
	return d.ID, nil
}

func (m *Memory) DeleteDentist(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.begin(ctx, "delete dentist", userID)
	if err != nil {
		return err
	}
	kept := acct.dentists[:0]
	for _, d := range acct.dentists {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	acct.dentists = kept
	return nil
}

func (m *Memory) FetchTeethStatus(ctx context.Context, userID string) (model.TeethStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.begin(ctx, "fetch teeth status", userID)
	if err != nil {
		return model.TeethStatus{}, err
	}
	return acct.teeth.Clone(), nil
}

func (m *Memory) SaveToothStatus(ctx context.Context, userID string, tooth model.ToothID, status model.ToothStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.begin(ctx, "save tooth status", userID)
	if err != nil {
		return err
	}
	acct.teeth[tooth] = status
	return nil
}
