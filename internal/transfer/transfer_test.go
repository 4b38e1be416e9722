package transfer

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/gymstore/internal/collection"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/ids"
	"example.com/gymstore/internal/kv"
)

type harness struct {
	store       *kv.Memory
	collections Collections
	transfer    *Transfer
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := kv.NewMemory()
	ts := time.Date(2025, time.August, 1, 6, 0, 0, 0, time.UTC)
	clock := func() time.Time { return ts }
	alloc := ids.NewAllocator(store, "app_state", ids.WithClock(clock))
	cols := Collections{
		ManualWorkouts:    collection.NewWorkouts(store, "manual_workouts", domain.FamilyManual, alloc, collection.WithClock(clock)),
		ManualExercises:   collection.NewExercises(store, "manual_exercises", domain.FamilyManual, alloc, collection.WithClock(clock)),
		SupersetWorkouts:  collection.NewWorkouts(store, "superset_workouts", domain.FamilySuperset, alloc, collection.WithClock(clock)),
		SupersetExercises: collection.NewExercises(store, "superset_exercises", domain.FamilySuperset, alloc, collection.WithClock(clock)),
	}
	tr, err := New(store, cols, WithClock(clock))
	require.NoError(t, err)
	return harness{store: store, collections: cols, transfer: tr}
}

func (h harness) seed(t *testing.T) {
	t.Helper()
	_, err := h.collections.ManualWorkouts.Create(domain.Record{"name": "Leg day", "exercises": []any{map[string]any{"name": "Squat", "sets": 3}}})
	require.NoError(t, err)
	_, err = h.collections.ManualExercises.Create(domain.Record{"name": "Squat"})
	require.NoError(t, err)
	_, err = h.collections.SupersetWorkouts.Create(domain.Record{"name": "Push pair"})
	require.NoError(t, err)
	_, err = h.collections.SupersetExercises.Create(domain.Record{"name": "Press + Fly"})
	require.NoError(t, err)
}

func snapshot(t *testing.T, store kv.Store, keys ...string) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, key := range keys {
		raw, _, err := store.Get(key)
		require.NoError(t, err)
		out[key] = string(raw)
	}
	return out
}

var allKeys = []string{"manual_workouts", "manual_exercises", "superset_workouts", "superset_exercises"}

func TestExportImportRoundTrip(t *testing.T) {
	source := newHarness(t)
	source.seed(t)

	env, err := source.transfer.Export(ScopeAll)
	require.NoError(t, err)
	require.Equal(t, Version, env.Version)
	require.Equal(t, "2025-08-01T06:00:00.000Z", env.ExportedAt)
	require.Len(t, env.Data, 4)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	target := newHarness(t)
	require.NoError(t, target.transfer.Import(raw))

	for _, pair := range [][2]*collection.Repository{
		{source.collections.ManualWorkouts, target.collections.ManualWorkouts},
		{source.collections.ManualExercises, target.collections.ManualExercises},
		{source.collections.SupersetWorkouts, target.collections.SupersetWorkouts},
		{source.collections.SupersetExercises, target.collections.SupersetExercises},
	} {
		want, err := pair[0].List()
		require.NoError(t, err)
		got, err := pair[1].List()
		require.NoError(t, err)
		require.Equal(t, want, got, pair[0].Key())
	}
}

func TestManualExportOmitsSupersetSections(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	env, err := h.transfer.Export(ScopeManual)
	require.NoError(t, err)
	require.Equal(t, ScopeManual, env.Type)
	require.Contains(t, env.Data, SectionManualWorkouts)
	require.Contains(t, env.Data, SectionManualExercises)
	require.NotContains(t, env.Data, SectionSupersetWorkouts)
	require.NotContains(t, env.Data, SectionSupersetExercises)
}

func TestImportRejectsMalformedEnvelopes(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"data":`,
		"missing data":      `{"version":"2.0"}`,
		"data not object":   `{"data":[]}`,
		"section not array": `{"data":{"manualWorkouts":{"id":1}}}`,
		"record not object": `{"data":{"manualWorkouts":[1,2]}}`,
		"wrong version":     `{"version":"1.0","data":{"manualWorkouts":[]}}`,
		"unknown type":      `{"type":"cardio","data":{}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.seed(t)
			before := snapshot(t, h.store, allKeys...)

			err := h.transfer.Import([]byte(body))
			require.Error(t, err)
			require.True(t, errors.Is(err, domain.ErrImportFormat))
			require.Equal(t, before, snapshot(t, h.store, allKeys...))
		})
	}
}

func TestImportLeavesAbsentAndNullSectionsAlone(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	before := snapshot(t, h.store, allKeys...)

	body := `{"version":"2.0","type":"manual","data":{"manualWorkouts":[{"id":10,"type":"manual","name":"Imported"}],"supersetWorkouts":null}}`
	require.NoError(t, h.transfer.Import([]byte(body)))

	after := snapshot(t, h.store, allKeys...)
	require.NotEqual(t, before["manual_workouts"], after["manual_workouts"])
	require.Equal(t, before["manual_exercises"], after["manual_exercises"])
	require.Equal(t, before["superset_workouts"], after["superset_workouts"])
	require.Equal(t, before["superset_exercises"], after["superset_exercises"])

	records, err := h.collections.ManualWorkouts.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Imported", records[0]["name"])
}

func TestParseScope(t *testing.T) {
	scope, err := ParseScope("")
	require.NoError(t, err)
	require.Equal(t, ScopeAll, scope)

	scope, err = ParseScope("Superset")
	require.NoError(t, err)
	require.Equal(t, ScopeSuperset, scope)

	_, err = ParseScope("cardio")
	require.Error(t, err)
}

var errStoreDown = errors.New("store unavailable")

// downStore reads normally but refuses every write.
type downStore struct {
	*kv.Memory
}

func (downStore) Set(string, []byte) error { return errStoreDown }
func (downStore) SetBatch(map[string][]byte) error { return errStoreDown }

func TestImportStoreFailureIsNotAFormatError(t *testing.T) {
	h := newHarness(t)
	tr, err := New(downStore{Memory: h.store}, h.collections)
	require.NoError(t, err)

	err = tr.Import([]byte(`{"version":"2.0","type":"manual","data":{"manualWorkouts":[{"id":2,"name":"Legs"}]}}`))
	require.ErrorIs(t, err, errStoreDown)
	require.False(t, errors.Is(err, domain.ErrImportFormat))

	err = tr.Import([]byte(`{"version":"1.0","data":{}}`))
	require.ErrorIs(t, err, domain.ErrImportFormat)
}
