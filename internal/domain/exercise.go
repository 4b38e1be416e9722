package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Extra keeps the fields of a catalog entry that have no typed counterpart,
// plus typed fields whose stored value had an unexpected type. Both are
// written back verbatim.
type Extra map[string]json.RawMessage

// ExerciseRecord is a catalog entry owned by exactly one family.
type ExerciseRecord struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Type     Family `json:"type"`
	Extra    Extra  `json:"-"`
}

// UnmarshalJSON decodes any JSON object; fields it cannot type stay in Extra.
func (r *ExerciseRecord) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	*r = ExerciseRecord{
		ID:       takeInt(fields, "id"),
		Name:     takeString(fields, "name"),
		Category: takeString(fields, "category"),
		Type:     Family(takeString(fields, "type")),
	}
	r.Extra = leftover(fields)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r ExerciseRecord) MarshalJSON() ([]byte, error) {
	return encodeFields(r.Extra,
		field{"id", r.ID, r.ID == 0},
		field{"name", r.Name, r.Name == ""},
		field{"category", r.Category, r.Category == ""},
		field{"type", r.Type, r.Type == ""},
	)
}

// GroupExercise is one step of a superset template.
type GroupExercise struct {
	Name  string `json:"name"`
	Sets  int    `json:"sets"`
	Reps  string `json:"reps"`
	Extra Extra  `json:"-"`
}

// UnmarshalJSON accepts sets written as a number or a numeric string.
func (g *GroupExercise) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	*g = GroupExercise{
		Name: takeString(fields, "name"),
		Sets: int(takeInt(fields, "sets")),
		Reps: takeString(fields, "reps"),
	}
	g.Extra = leftover(fields)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (g GroupExercise) MarshalJSON() ([]byte, error) {
	return encodeFields(g.Extra,
		field{"name", g.Name, g.Name == ""},
		field{"sets", g.Sets, g.Sets == 0},
		field{"reps", g.Reps, g.Reps == ""},
	)
}

// SupersetGroupType tags superset templates inside the library.
const SupersetGroupType = "supersetGroup"

// SupersetGroup is a named template of exercises performed back to back.
type SupersetGroup struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Exercises []GroupExercise `json:"exercises"`
	Extra     Extra           `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SupersetGroup) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	*s = SupersetGroup{
		ID:        takeInt(fields, "id"),
		Name:      takeString(fields, "name"),
		Type:      takeString(fields, "type"),
		Exercises: takeList[GroupExercise](fields, "exercises"),
	}
	s.Extra = leftover(fields)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s SupersetGroup) MarshalJSON() ([]byte, error) {
	exercises := s.Exercises
	if exercises == nil {
		exercises = []GroupExercise{}
	}
	return encodeFields(s.Extra,
		field{"id", s.ID, s.ID == 0},
		field{"name", s.Name, s.Name == ""},
		field{"type", s.Type, s.Type == ""},
		field{"exercises", exercises, len(s.Exercises) == 0},
	)
}

// ExerciseLibrary holds the three disjoint catalog sequences.
type ExerciseLibrary struct {
	Manual         []ExerciseRecord `json:"manual"`
	Superset       []ExerciseRecord `json:"superset"`
	SupersetGroups []SupersetGroup  `json:"supersetGroups"`
	Extra          Extra            `json:"-"`
}

// UnmarshalJSON requires an object. A section that is not a list of objects
// is kept verbatim in Extra.
func (l *ExerciseLibrary) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	*l = ExerciseLibrary{
		Manual:         takeList[ExerciseRecord](fields, "manual"),
		Superset:       takeList[ExerciseRecord](fields, "superset"),
		SupersetGroups: takeList[SupersetGroup](fields, "supersetGroups"),
	}
	l.Extra = leftover(fields)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l ExerciseLibrary) MarshalJSON() ([]byte, error) {
	n := l.Normalize()
	return encodeFields(l.Extra,
		field{"manual", n.Manual, len(l.Manual) == 0},
		field{"superset", n.Superset, len(l.Superset) == 0},
		field{"supersetGroups", n.SupersetGroups, len(l.SupersetGroups) == 0},
	)
}

// Normalize replaces nil sequences with empty ones.
func (l ExerciseLibrary) Normalize() ExerciseLibrary {
	if l.Manual == nil {
		l.Manual = []ExerciseRecord{}
	}
	if l.Superset == nil {
		l.Superset = []ExerciseRecord{}
	}
	if l.SupersetGroups == nil {
		l.SupersetGroups = []SupersetGroup{}
	}
	return l
}

var errNotObject = errors.New("expected a JSON object")

func decodeFields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errNotObject
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// The take helpers remove a field once it has been typed. Fields that fail
// to decode, or hold null, are left behind for Extra.

func takeString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	delete(fields, key)
	return value
}

func takeInt(fields map[string]json.RawMessage, key string) int64 {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return 0
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return 0
	}
	n, ok := NormalizeID(value)
	if !ok {
		return 0
	}
	delete(fields, key)
	return n
}

func takeList[T any](fields map[string]json.RawMessage, key string) []T {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	delete(fields, key)
	return out
}

func leftover(fields map[string]json.RawMessage) Extra {
	if len(fields) == 0 {
		return nil
	}
	return Extra(fields)
}

type field struct {
	key   string
	value any
	zero  bool
}

// encodeFields lays typed fields over extra. A zero typed field yields to a
// value kept in extra under the same key.
func encodeFields(extra Extra, fields ...field) ([]byte, error) {
	out := make(map[string]any, len(extra)+len(fields))
	for key, raw := range extra {
		out[key] = raw
	}
	for _, f := range fields {
		if _, kept := extra[f.key]; kept && f.zero {
			continue
		}
		out[f.key] = f.value
	}
	return json.Marshal(out)
}
