package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/gymstore/internal/collection"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/ids"
	"example.com/gymstore/internal/kv"
)

func setup(t *testing.T) (*kv.Memory, *collection.Repository, *collection.Repository, *Auditor) {
	t.Helper()
	store := kv.NewMemory()
	ts := time.Date(2025, time.July, 4, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return ts }
	alloc := ids.NewAllocator(store, "app_state", ids.WithClock(clock))
	manual := collection.NewWorkouts(store, "manual_workouts", domain.FamilyManual, alloc, collection.WithClock(clock))
	superset := collection.NewWorkouts(store, "superset_workouts", domain.FamilySuperset, alloc, collection.WithClock(clock))
	return store, manual, superset, NewAuditor(store, manual, superset, WithClock(clock))
}

func TestFreshStoreIsSeparated(t *testing.T) {
	_, manual, superset, auditor := setup(t)
	_, err := manual.Create(domain.Record{"name": "A"})
	require.NoError(t, err)
	_, err = superset.Create(domain.Record{"name": "B"})
	require.NoError(t, err)

	report, err := auditor.CheckSeparation()
	require.NoError(t, err)
	require.True(t, report.Separated())
	require.Zero(t, report.Total())
}

func TestCheckDetectsContaminationWithoutWriting(t *testing.T) {
	store, _, _, auditor := setup(t)
	require.NoError(t, store.Set("superset_workouts", []byte(`[{"id":3,"type":"manual","name":"stray"},{"id":5,"type":"superset"}]`)))
	require.NoError(t, store.Set("manual_workouts", []byte(`[{"id":2,"type":"superset"},{"id":4,"type":"superset"}]`)))
	before, _, err := store.Get("manual_workouts")
	require.NoError(t, err)

	report, err := auditor.CheckSeparation()
	require.NoError(t, err)
	require.False(t, report.Separated())
	require.Equal(t, 1, report.ManualInSuperset)
	require.Equal(t, 2, report.SupersetInManual)

	after, _, err := store.Get("manual_workouts")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestFixMovesRecordsAndRestoresSeparation(t *testing.T) {
	store, manual, superset, auditor := setup(t)
	require.NoError(t, store.Set("superset_workouts", []byte(`[{"id":3,"type":"manual","name":"stray","createdAt":"2024-02-02T00:00:00.000Z"},{"id":5,"type":"superset"}]`)))
	require.NoError(t, store.Set("manual_workouts", []byte(`[{"id":2,"type":"superset","name":"pair"},{"id":6,"type":"manual"}]`)))

	moved, err := auditor.FixMixedData()
	require.NoError(t, err)
	require.Equal(t, 2, moved)

	report, err := auditor.CheckSeparation()
	require.NoError(t, err)
	require.True(t, report.Separated())

	manualRecords, err := manual.List()
	require.NoError(t, err)
	require.Len(t, manualRecords, 2)
	relocated := manualRecords[1]
	require.Equal(t, "stray", relocated["name"])
	require.Equal(t, "2024-02-02T00:00:00.000Z", relocated[domain.FieldCreatedAt])
	require.Equal(t, "2025-07-04T12:00:00.000Z", relocated[domain.FieldUpdatedAt])
	newID, ok := relocated.ID()
	require.True(t, ok)
	require.NotEqual(t, int64(3), newID)

	supersetRecords, err := superset.List()
	require.NoError(t, err)
	require.Len(t, supersetRecords, 2)
	require.Equal(t, "pair", supersetRecords[1]["name"])
	require.Equal(t, "superset", supersetRecords[1][domain.FieldMode])

	again, err := auditor.FixMixedData()
	require.NoError(t, err)
	require.Zero(t, again)
}
