package migrate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/gymstore/internal/collection"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/ids"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/namespace"
)

type fixture struct {
	store    *kv.Memory
	registry *namespace.Registry
	workouts map[domain.Family]*collection.Repository
	clock    func() time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := kv.NewMemory()
	registry, err := namespace.NewRegistry("")
	require.NoError(t, err)
	ts := time.Date(2025, time.June, 10, 7, 0, 0, 0, time.UTC)
	clock := func() time.Time { return ts }
	alloc := ids.NewAllocator(store, registry.Key(namespace.AppState), ids.WithClock(clock))
	workouts := map[domain.Family]*collection.Repository{}
	for _, f := range domain.Families {
		workouts[f] = collection.NewWorkouts(store, registry.Key(namespace.Workouts(f)), f, alloc, collection.WithClock(clock))
	}
	return fixture{store: store, registry: registry, workouts: workouts, clock: clock}
}

func (f fixture) engine(opts ...Option) *Engine {
	return NewEngine(f.store, f.registry, f.workouts, append([]Option{WithClock(f.clock)}, opts...)...)
}

func (f fixture) list(t *testing.T, family domain.Family) []domain.Record {
	t.Helper()
	records, err := f.workouts[family].List()
	require.NoError(t, err)
	return records
}

func TestMigrateClassifiesLegacyItems(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set("workouts", []byte(`[
		{"exercises":[{"name":"Press","type":"superset"}]},
		{"name":"Leg day","exercises":[{"name":"Squat","sets":3}]}
	]`)))

	report, err := f.engine().MigrateLegacy()
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, 1, report.ByFamily[domain.FamilySuperset])
	require.Equal(t, 1, report.ByFamily[domain.FamilyManual])
	require.Equal(t, 2, report.Migrated["workouts"])
	require.Equal(t, 2, report.Total())

	supersets := f.list(t, domain.FamilySuperset)
	require.Len(t, supersets, 1)
	require.Equal(t, "superset", supersets[0][domain.FieldType])
	require.Equal(t, "superset", supersets[0][domain.FieldMode])
	require.Equal(t, "workouts", supersets[0][domain.FieldSource])
	require.Equal(t, "2025-06-10T07:00:00.000Z", supersets[0][domain.FieldMigratedAt])

	manual := f.list(t, domain.FamilyManual)
	require.Len(t, manual, 1)
	require.Equal(t, "Leg day", manual[0]["name"])
	require.Equal(t, "manual", manual[0][domain.FieldMode])

	_, stillThere, err := f.store.Get("workouts")
	require.NoError(t, err)
	require.True(t, stillThere)
}

func TestMigrateSkipsUndecodableKeyOnly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set("workouts", []byte(`[{"name":`)))
	require.NoError(t, f.store.Set("gymApp_history", []byte(`[{"name":"Row","mode":"superset"}]`)))

	report, err := f.engine().MigrateLegacy()
	require.NoError(t, err)
	require.Equal(t, []string{"workouts"}, report.Failed)
	require.Equal(t, 1, report.Migrated["gymApp_history"])
	require.Len(t, f.list(t, domain.FamilySuperset), 1)
	require.Empty(t, f.list(t, domain.FamilyManual))
}

func TestMigrateIsIdempotentUnlessForced(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set("exercises", []byte(`[{"name":"Bench"}]`)))

	_, err := f.engine().MigrateLegacy()
	require.NoError(t, err)
	second, err := f.engine().MigrateLegacy()
	require.NoError(t, err)
	require.Equal(t, []string{"exercises"}, second.Skipped)
	require.Zero(t, second.Total())
	require.Len(t, f.list(t, domain.FamilyManual), 1)

	forced, err := f.engine(WithForce(true)).MigrateLegacy()
	require.NoError(t, err)
	require.Equal(t, 1, forced.Total())
	require.Len(t, f.list(t, domain.FamilyManual), 2)
}

func TestMigrateKeepsExistingIds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set("gymapp_workouts", []byte(`[{"id":1718000000000,"name":"Old"},{"id":"abc","name":"Odd"},42]`)))

	report, err := f.engine().MigrateLegacy()
	require.NoError(t, err)
	require.Equal(t, 1, report.Ignored)

	manual := f.list(t, domain.FamilyManual)
	require.Len(t, manual, 2)
	id, ok := manual[0].ID()
	require.True(t, ok)
	require.Equal(t, int64(1718000000000), id)

	require.Equal(t, "abc", manual[1][domain.FieldID])
	require.NotContains(t, manual[1], domain.FieldLegacyID)
}

func TestMigrateIgnoresNonArrayValues(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set("workouts", []byte(`{"name":"not a list"}`)))

	report, err := f.engine().MigrateLegacy()
	require.NoError(t, err)
	require.Zero(t, report.Total())
	require.Empty(t, report.Failed)
}

func TestMigrateLibraryCopiesOnlyWhenAbsent(t *testing.T) {
	f := newFixture(t)
	legacy := domain.ExerciseLibrary{
		Manual: []domain.ExerciseRecord{{ID: 1, Name: "Press Banca", Category: "Pecho", Type: domain.FamilyManual}},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(namespace.LegacyLibraryKey, raw))

	copied, err := f.engine().MigrateLibrary()
	require.NoError(t, err)
	require.True(t, copied)

	stored, ok, err := f.store.Get(f.registry.Key(namespace.ExerciseLibrary))
	require.NoError(t, err)
	require.True(t, ok)
	var lib domain.ExerciseLibrary
	require.NoError(t, json.Unmarshal(stored, &lib))
	require.Len(t, lib.Manual, 1)
	require.NotNil(t, lib.Superset)

	copied, err = f.engine().MigrateLibrary()
	require.NoError(t, err)
	require.False(t, copied)
}

func TestMigrateLibraryKeepsEntriesVerbatim(t *testing.T) {
	f := newFixture(t)
	legacy := `{"manual":[{"id":1,"name":"Mine","category":"Pecho","type":"manual","notes":"keep me"}],` +
		`"superset":[],"supersetGroups":[{"id":2001,"name":"Brazos","exercises":[{"name":"Curl","sets":"3","reps":"10"}]}]}`
	require.NoError(t, f.store.Set(namespace.LegacyLibraryKey, []byte(legacy)))

	copied, err := f.engine().MigrateLibrary()
	require.NoError(t, err)
	require.True(t, copied)

	stored, ok, err := f.store.Get(f.registry.Key(namespace.ExerciseLibrary))
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, legacy, string(stored))
}

func TestMigrateLibrarySkipsNonObjects(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(namespace.LegacyLibraryKey, []byte(`[{"name":"Press"}]`)))

	copied, err := f.engine().MigrateLibrary()
	require.NoError(t, err)
	require.False(t, copied)
	_, ok, err := f.store.Get(f.registry.Key(namespace.ExerciseLibrary))
	require.NoError(t, err)
	require.False(t, ok)
}
