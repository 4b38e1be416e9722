// Package domain defines the records persisted by the gym store and the
// families that keep them apart.
package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"
)

// Family identifies which namespace a record belongs to.
type Family string

const (
	FamilyManual   Family = "manual"
	FamilySuperset Family = "superset"
)

// Families lists every family in a stable order.
var Families = []Family{FamilyManual, FamilySuperset}

// ParseFamily validates a family name.
func ParseFamily(value string) (Family, error) {
	switch Family(strings.ToLower(strings.TrimSpace(value))) {
	case FamilyManual:
		return FamilyManual, nil
	case FamilySuperset:
		return FamilySuperset, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFamily, value)
	}
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	return f == FamilyManual || f == FamilySuperset
}

// Other returns the opposite family.
func (f Family) Other() Family {
	if f == FamilySuperset {
		return FamilyManual
	}
	return FamilySuperset
}

// Reserved record fields.
const (
	FieldID         = "id"
	FieldType       = "type"
	FieldMode       = "mode"
	FieldCreatedAt  = "createdAt"
	FieldUpdatedAt  = "updatedAt"
	FieldSource     = "source"
	FieldMigratedAt = "migratedAt"
	FieldLegacyID   = "legacyId"
	FieldCategory   = "category"
)

// TimeLayout matches the millisecond ISO-8601 form used by stored records.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders ts in TimeLayout (UTC).
func FormatTime(ts time.Time) string {
	return ts.UTC().Format(TimeLayout)
}

// Record is a free-form workout or exercise document. Fields other than the
// reserved ones are carried through untouched.
type Record map[string]any

// ID returns the record identifier when it is an integral number.
func (r Record) ID() (int64, bool) {
	if r == nil {
		return 0, false
	}
	return NormalizeID(r[FieldID])
}

// Family returns the family tag stored in the record, if any.
func (r Record) Family() Family {
	value, _ := r[FieldType].(string)
	return Family(value)
}

// String returns a string field or "".
func (r Record) String(field string) string {
	value, _ := r[field].(string)
	return value
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// Merge overlays partial onto a copy of r.
func (r Record) Merge(partial Record) Record {
	out := r.Clone()
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// NormalizeID converts a decoded identifier value to int64.
func NormalizeID(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return NormalizeID(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
