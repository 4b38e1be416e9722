package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExerciseRecordKeepsUnknownFields(t *testing.T) {
	var rec ExerciseRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":"7","name":"Press","category":null,"notes":"keep me","id2":1.5}`), &rec))
	require.Equal(t, int64(7), rec.ID)
	require.Equal(t, "Press", rec.Name)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":7,"name":"Press","category":null,"type":"","notes":"keep me","id2":1.5}`, string(out))
}

func TestMistypedFieldsAreKeptVerbatim(t *testing.T) {
	var group SupersetGroup
	require.NoError(t, json.Unmarshal([]byte(`{"id":"g-1","name":"Brazos","exercises":"see notes"}`), &group))
	require.Zero(t, group.ID)
	require.Nil(t, group.Exercises)

	out, err := json.Marshal(group)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"g-1","name":"Brazos","type":"","exercises":"see notes"}`, string(out))
}

func TestGroupExerciseAcceptsNumericStrings(t *testing.T) {
	var ex GroupExercise
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Curl","sets":"3","reps":10}`), &ex))
	require.Equal(t, 3, ex.Sets)
	require.Empty(t, ex.Reps)

	out, err := json.Marshal(ex)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"Curl","sets":3,"reps":10}`, string(out))
}

func TestExerciseLibraryRequiresObject(t *testing.T) {
	var lib ExerciseLibrary
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &lib))
	require.Error(t, json.Unmarshal([]byte(`null`), &lib))

	require.NoError(t, json.Unmarshal([]byte(`{"manual":[{"name":"A"}],"superset":"broken"}`), &lib))
	require.Len(t, lib.Manual, 1)
	require.Nil(t, lib.Superset)

	out, err := json.Marshal(lib.Normalize())
	require.NoError(t, err)
	require.JSONEq(t, `{"manual":[{"id":0,"name":"A","category":"","type":""}],"superset":"broken","supersetGroups":[]}`, string(out))
}
