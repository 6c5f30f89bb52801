package remote

import (
	"context"
	"testing"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ScopesByUser(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.SaveTreatment(ctx, "alice", model.Treatment{ID: "ignored", Kind: model.KindCrown, Date: "2024-01-01"}, "")
	require.NoError(t, err)
	assert.NotEqual(t, "ignored", id)

	bob, err := m.FetchTreatments(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob)

	_, err = m.SaveTreatment(ctx, "bob", model.Treatment{Kind: model.KindCrown, Date: "2024-01-01"}, id)
	assert.ErrorIs(t, err, ErrNotFound, "bob must not update alice's record")

	require.NoError(t, m.DeleteTreatment(ctx, "bob", id))
	alice, err := m.FetchTreatments(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alice, 1, "bob's delete must not reach alice's record")
}

func TestMemory_OrderingAndUpsert(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, d := range []model.Date{"2023-05-05", "2024-05-05", "2022-05-05"} {
		_, err := m.SaveTreatment(ctx, "u", model.Treatment{Kind: model.KindCheckup, Date: d}, "")
		require.NoError(t, err)
	}
	ts, err := m.FetchTreatments(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, model.Date("2024-05-05"), ts[0].Date)
	assert.Equal(t, model.Date("2022-05-05"), ts[2].Date)

	_, _ = m.SaveDentist(ctx, "u", model.Dentist{Name: "Zed"})
	_, _ = m.SaveDentist(ctx, "u", model.Dentist{Name: "amy", IsVerified: true})
	ds, err := m.FetchDentists(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "amy", ds[0].Name)
	assert.False(t, ds[0].IsVerified)

	require.NoError(t, m.SaveToothStatus(ctx, "u", 21, model.StatusCrown))
	require.NoError(t, m.SaveToothStatus(ctx, "u", 21, model.StatusCrown))
	teeth, err := m.FetchTeethStatus(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, model.TeethStatus{21: model.StatusCrown}, teeth)
}

func TestMemory_InjectedFailure(t *testing.T) {
	m := NewMemory()
	m.SetFailure(KindNetwork)

	ts, err := m.FetchTreatments(context.Background(), "u")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotNil(t, ts)

	m.SetFailure(0)
	_, err = m.FetchTreatments(context.Background(), "u")
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Calls())
}
