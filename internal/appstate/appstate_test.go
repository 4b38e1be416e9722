package appstate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/gymstore/internal/kv"
)

func TestReadAbsentAndCorrupt(t *testing.T) {
	store := kv.NewMemory()

	doc, corrupt, err := Read(store, "gymapp_v2_app_state")
	require.NoError(t, err)
	require.False(t, corrupt)
	require.Empty(t, doc)

	require.NoError(t, store.Set("gymapp_v2_app_state", []byte(`[1,2`)))
	doc, corrupt, err = Read(store, "gymapp_v2_app_state")
	require.NoError(t, err)
	require.True(t, corrupt)
	require.Empty(t, doc)
}

func TestFieldsSurviveOtherOwners(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Set("state", []byte(`{"theme":"dark","idSequences":{"a":4}}`)))

	doc, _, err := Read(store, "state")
	require.NoError(t, err)
	require.NoError(t, doc.Put("migratedKeys", []string{"workouts"}))
	require.NoError(t, Write(store, "state", doc))

	reread, _, err := Read(store, "state")
	require.NoError(t, err)
	var theme string
	require.True(t, reread.Decode("theme", &theme))
	require.Equal(t, "dark", theme)
	var keys []string
	require.True(t, reread.Decode("migratedKeys", &keys))
	require.Equal(t, []string{"workouts"}, keys)
	require.False(t, reread.Decode("missing", &keys))
}
