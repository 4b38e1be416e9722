package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/kv"
)

func frozenClock() func() time.Time {
	ts := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestRangesStayDisjointUnderIdenticalTiming(t *testing.T) {
	store := kv.NewMemory()
	alloc := NewAllocator(store, "state", WithClock(frozenClock()))

	const n = 10000
	manual := make(map[int64]struct{}, n)
	for i := 0; i < n; i++ {
		id, err := alloc.Next("manual_workouts", domain.FamilyManual)
		require.NoError(t, err)
		manual[id] = struct{}{}
	}
	require.Len(t, manual, n)

	for i := 0; i < n; i++ {
		id, err := alloc.Next("superset_workouts", domain.FamilySuperset)
		require.NoError(t, err)
		_, clash := manual[id]
		require.False(t, clash, "superset id %d collides with a manual id", id)
		require.Equal(t, domain.FamilySuperset, familyOf(id))
	}
}

func TestSequencesAreMonotonicAndPersisted(t *testing.T) {
	store := kv.NewMemory()
	clock := frozenClock()

	first := NewAllocator(store, "state", WithClock(clock))
	a, err := first.Next("manual_workouts", domain.FamilyManual)
	require.NoError(t, err)
	b, err := first.Next("manual_workouts", domain.FamilyManual)
	require.NoError(t, err)
	require.Greater(t, b, a)

	// A new allocator over the same store resumes after the last id.
	second := NewAllocator(store, "state", WithClock(clock))
	c, err := second.Next("manual_workouts", domain.FamilyManual)
	require.NoError(t, err)
	require.Greater(t, c, b)
	require.Equal(t, domain.FamilyManual, familyOf(c))
}

func TestAllocatorPreservesOtherStateFields(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Set("state", []byte(`{"migratedKeys":{"workouts":"2025-01-01T00:00:00.000Z"}}`)))

	alloc := NewAllocator(store, "state", WithClock(frozenClock()))
	_, err := alloc.Next("manual_workouts", domain.FamilyManual)
	require.NoError(t, err)

	raw, ok, err := store.Get("state")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, string(raw), `"migratedKeys"`)
	require.Contains(t, string(raw), `"idSequences"`)
}

func TestAllocatorRecoversFromCorruptState(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Set("state", []byte(`{not json`)))

	alloc := NewAllocator(store, "state", WithClock(frozenClock()))
	id, err := alloc.Next("superset_workouts", domain.FamilySuperset)
	require.NoError(t, err)
	require.Equal(t, domain.FamilySuperset, familyOf(id))
}
