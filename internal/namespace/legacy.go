package namespace

// LegacyWorkoutKeys are the unprefixed and first-generation keys that may
// still hold workout sequences of either family.
var LegacyWorkoutKeys = []string{
	"workouts",
	"gymApp_workouts",
	"exercises",
	"gymApp_exercises",
	"exerciseHistory",
	"workoutHistory",
	"gymApp_history",
	"gymapp_workouts",
	"gymapp_manual_workouts",
	"gymapp_superset_workouts",
}

// LegacyLibraryKey holds the first-generation exercise library object.
const LegacyLibraryKey = "gymapp_exercise_library"

// IsLegacyKey reports whether key belongs to an earlier storage generation.
func IsLegacyKey(key string) bool {
	if key == LegacyLibraryKey {
		return true
	}
	for _, legacy := range LegacyWorkoutKeys {
		if key == legacy {
			return true
		}
	}
	return false
}
