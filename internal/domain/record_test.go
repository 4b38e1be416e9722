package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("superset")
	require.NoError(t, err)
	require.Equal(t, FamilySuperset, f)
	require.Equal(t, FamilyManual, f.Other())

	_, err = ParseFamily("cardio")
	require.ErrorIs(t, err, ErrInvalidFamily)
}

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		value any
		want  int64
		ok    bool
	}{
		{json.Number("3400000000001"), 3400000000001, true},
		{float64(12), 12, true},
		{int64(7), 7, true},
		{json.Number("1.5"), 0, false},
		{"12", 12, true},
		{"abc", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := NormalizeID(tc.value)
		require.Equal(t, tc.ok, ok, "%v", tc.value)
		if tc.ok {
			require.Equal(t, tc.want, got)
		}
	}
}

func TestMergeKeepsUntouchedFields(t *testing.T) {
	base := Record{"id": int64(2), "name": "Legs", "duration": 30}
	merged := base.Merge(Record{"duration": 45})
	require.Equal(t, "Legs", merged.String("name"))
	require.Equal(t, 45, merged["duration"])
	require.Equal(t, 30, base["duration"])
}
