package library

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/ids"
	"example.com/gymstore/internal/kv"
)

func newLibrary(t *testing.T) (*kv.Memory, *Library) {
	t.Helper()
	store := kv.NewMemory()
	return store, New(store, "exercise_library", ids.NewAllocator(store, "app_state"))
}

func TestInitSeedsDefaultsOnce(t *testing.T) {
	_, lib := newLibrary(t)

	seeded, err := lib.Init()
	require.NoError(t, err)
	require.True(t, seeded)

	manual, err := lib.ManualExercises()
	require.NoError(t, err)
	require.Len(t, manual, 8)
	superset, err := lib.SupersetExercises()
	require.NoError(t, err)
	require.Len(t, superset, 8)
	groups, err := lib.SupersetGroups()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "8-10", groups[0].Exercises[0].Reps)

	_, err = lib.AddManualExercise(domain.ExerciseRecord{Name: "Hip Thrust", Category: "Glúteos"})
	require.NoError(t, err)
	seeded, err = lib.Init()
	require.NoError(t, err)
	require.False(t, seeded)
	manual, err = lib.ManualExercises()
	require.NoError(t, err)
	require.Len(t, manual, 9)
}

func TestAddEntriesStampFamilyAndIds(t *testing.T) {
	_, lib := newLibrary(t)

	m, err := lib.AddManualExercise(domain.ExerciseRecord{Name: "Remo", Type: domain.FamilySuperset})
	require.NoError(t, err)
	require.Equal(t, domain.FamilyManual, m.Type)

	s, err := lib.AddSupersetExercise(domain.ExerciseRecord{Name: "Remo + Face Pull"})
	require.NoError(t, err)
	require.Equal(t, domain.FamilySuperset, s.Type)
	require.NotEqual(t, m.ID, s.ID)

	g, err := lib.AddSupersetGroup(domain.SupersetGroup{Name: "Brazos", Exercises: []domain.GroupExercise{{Name: "Curl", Sets: 3, Reps: "10-12"}}})
	require.NoError(t, err)
	require.Equal(t, domain.SupersetGroupType, g.Type)

	loaded, err := lib.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Manual, 1)
	require.Len(t, loaded.Superset, 1)
	require.Len(t, loaded.SupersetGroups, 1)
}

func TestAddRequiresName(t *testing.T) {
	_, lib := newLibrary(t)
	_, err := lib.AddManualExercise(domain.ExerciseRecord{Name: "  "})
	require.True(t, errors.Is(err, ErrNameRequired))
	_, err = lib.AddSupersetGroup(domain.SupersetGroup{})
	require.True(t, errors.Is(err, ErrNameRequired))
}

func TestCorruptLibraryReadsEmpty(t *testing.T) {
	store, lib := newLibrary(t)
	require.NoError(t, store.Set("exercise_library", []byte(`[1,2,3]`)))

	loaded, err := lib.Load()
	require.NoError(t, err)
	require.Empty(t, loaded.Manual)
	require.NotNil(t, loaded.SupersetGroups)
}

func TestEntryIdsStayDistinctUnderFrozenClock(t *testing.T) {
	store := kv.NewMemory()
	frozen := time.Date(2080, time.January, 1, 0, 0, 0, 0, time.UTC)
	alloc := ids.NewAllocator(store, "app_state", ids.WithClock(func() time.Time { return frozen }))
	lib := New(store, "exercise_library", alloc)

	seen := map[int64]string{}
	track := func(id int64, what string) {
		prev, clash := seen[id]
		require.False(t, clash, "%s id %d already used by %s", what, id, prev)
		seen[id] = what
	}
	for i := 0; i < 3; i++ {
		m, err := lib.AddManualExercise(domain.ExerciseRecord{Name: "Sentadilla"})
		require.NoError(t, err)
		track(m.ID, "manual exercise")
		s, err := lib.AddSupersetExercise(domain.ExerciseRecord{Name: "Curl + Press"})
		require.NoError(t, err)
		track(s.ID, "superset exercise")
		g, err := lib.AddSupersetGroup(domain.SupersetGroup{Name: "Brazos"})
		require.NoError(t, err)
		track(g.ID, "superset group")
	}
	require.Len(t, seen, 9)
}

func TestUnknownFieldsSurviveSave(t *testing.T) {
	store, lib := newLibrary(t)
	require.NoError(t, store.Set("exercise_library", []byte(
		`{"manual":[{"id":1,"name":"Mine","category":"Pecho","type":"manual","notes":"keep me"}],`+
			`"supersetGroups":[{"id":3,"name":"Brazos","type":"supersetGroup","exercises":[{"name":"Curl","sets":"3","reps":"10","tempo":"3-1-1"}]}],`+
			`"favourites":[1]}`)))

	manual, err := lib.ManualExercises()
	require.NoError(t, err)
	require.Len(t, manual, 1)
	require.Equal(t, "Mine", manual[0].Name)

	groups, err := lib.SupersetGroups()
	require.NoError(t, err)
	require.Equal(t, 3, groups[0].Exercises[0].Sets)

	_, err = lib.AddManualExercise(domain.ExerciseRecord{Name: "Hip Thrust"})
	require.NoError(t, err)

	raw, _, err := store.Get("exercise_library")
	require.NoError(t, err)
	stored := string(raw)
	require.Contains(t, stored, `"notes":"keep me"`)
	require.Contains(t, stored, `"tempo":"3-1-1"`)
	require.Contains(t, stored, `"favourites":[1]`)
	require.Contains(t, stored, `"Hip Thrust"`)
}
