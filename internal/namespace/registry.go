// Package namespace maps logical collections to version-prefixed store keys.
package namespace

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"example.com/gymstore/internal/domain"
)

// DefaultPrefix namespaces the second storage generation.
const DefaultPrefix = "gymapp_v2_"

// Collection is a logical record collection.
type Collection string

const (
	ManualWorkouts    Collection = "manual_workouts"
	ManualExercises   Collection = "manual_exercises"
	ManualHistory     Collection = "manual_history"
	SupersetWorkouts  Collection = "superset_workouts"
	SupersetExercises Collection = "superset_exercises"
	SupersetHistory   Collection = "superset_history"
	ExerciseLibrary   Collection = "exercise_library"
	UserConfig        Collection = "user_config"
	AppState          Collection = "app_state"
)

var builtin = []Collection{
	ManualWorkouts,
	ManualExercises,
	ManualHistory,
	SupersetWorkouts,
	SupersetExercises,
	SupersetHistory,
	ExerciseLibrary,
	UserConfig,
	AppState,
}

var (
	// ErrDuplicateCollection is returned when registering a name twice.
	ErrDuplicateCollection = errors.New("collection already registered")
	// ErrLegacyKeyCollision is returned when a prefixed key would land on a
	// key owned by an earlier storage generation.
	ErrLegacyKeyCollision = errors.New("key collides with a legacy key")
)

// Registry resolves collections to physical keys.
type Registry struct {
	mu     sync.RWMutex
	prefix string
	order  []Collection
	keys   map[Collection]string
}

// NewRegistry builds a registry with the built-in collections. An empty
// prefix selects DefaultPrefix. A prefix that maps any collection onto a
// legacy key is rejected.
func NewRegistry(prefix string) (*Registry, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	r := &Registry{prefix: prefix, keys: make(map[Collection]string, len(builtin))}
	for _, c := range builtin {
		key := prefix + string(c)
		if err := checkLegacy(key); err != nil {
			return nil, fmt.Errorf("prefix %q: %w", prefix, err)
		}
		r.order = append(r.order, c)
		r.keys[c] = key
	}
	return r, nil
}

func checkLegacy(key string) error {
	if IsLegacyKey(key) {
		return fmt.Errorf("%w: %s", ErrLegacyKeyCollision, key)
	}
	return nil
}

// Prefix returns the schema-generation prefix.
func (r *Registry) Prefix() string { return r.prefix }

// Register adds a collection without affecting existing keys.
func (r *Registry) Register(c Collection) (string, error) {
	name := strings.TrimSpace(string(c))
	if name == "" {
		return "", errors.New("collection name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[Collection(name)]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateCollection, name)
	}
	key := r.prefix + name
	if err := checkLegacy(key); err != nil {
		return "", err
	}
	r.order = append(r.order, Collection(name))
	r.keys[Collection(name)] = key
	return key, nil
}

// Lookup returns the key of c.
func (r *Registry) Lookup(c Collection) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[c]
	return key, ok
}

// Key returns the key of c and panics for unregistered collections.
func (r *Registry) Key(c Collection) string {
	key, ok := r.Lookup(c)
	if !ok {
		panic(fmt.Sprintf("namespace: unregistered collection %q", c))
	}
	return key
}

// Collections lists registered collections in registration order.
func (r *Registry) Collections() []Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Collection, len(r.order))
	copy(out, r.order)
	return out
}

// Workouts returns the workout collection of a family.
func Workouts(f domain.Family) Collection {
	if f == domain.FamilySuperset {
		return SupersetWorkouts
	}
	return ManualWorkouts
}

// Exercises returns the exercise collection of a family.
func Exercises(f domain.Family) Collection {
	if f == domain.FamilySuperset {
		return SupersetExercises
	}
	return ManualExercises
}
