// Package classify decides which family a record of unknown origin belongs to.
package classify

import "example.com/gymstore/internal/domain"

const supersetValue = "superset"

// Classify returns the family of record. The first matching rule wins:
//
//  1. type is "superset"
//  2. mode is "superset"
//  3. a supersets field is present, whatever its value
//  4. an exercises array holds an entry typed "superset" or carrying a
//     supersetGroup field
//
// Anything else, including records with no signal fields, is manual.
func Classify(record map[string]any) domain.Family {
	if IsSuperset(record) {
		return domain.FamilySuperset
	}
	return domain.FamilyManual
}

// IsSuperset reports whether record carries any superset signal.
func IsSuperset(record map[string]any) bool {
	if record == nil {
		return false
	}
	if isSupersetString(record["type"]) || isSupersetString(record["mode"]) {
		return true
	}
	if _, ok := record["supersets"]; ok {
		return true
	}
	exercises, ok := record["exercises"].([]any)
	if !ok {
		return false
	}
	for _, entry := range exercises {
		exercise, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if isSupersetString(exercise["type"]) {
			return true
		}
		if _, ok := exercise["supersetGroup"]; ok {
			return true
		}
	}
	return false
}

// Value classifies an arbitrary decoded JSON value; non-objects are manual.
func Value(value any) domain.Family {
	switch v := value.(type) {
	case domain.Record:
		return Classify(v)
	case map[string]any:
		return Classify(v)
	default:
		return domain.FamilyManual
	}
}

func isSupersetString(value any) bool {
	s, ok := value.(string)
	return ok && s == supersetValue
}
