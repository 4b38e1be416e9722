// Package library manages the shared exercise catalog, which keeps manual
// exercises, superset exercises and superset templates in separate lists.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/ids"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/observability"
)

// ErrNameRequired is returned when an entry has no name.
var ErrNameRequired = errors.New("exercise name is required")

// Option configures a Library.
type Option func(*Library)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(lib *Library) { lib.logger = l }
}

// Library is bound to the catalog key.
type Library struct {
	store  kv.Store
	key    string
	alloc  *ids.Allocator
	logger *zap.Logger
}

// New returns a Library stored at key.
func New(store kv.Store, key string, alloc *ids.Allocator, opts ...Option) *Library {
	lib := &Library{store: store, key: key, alloc: alloc, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Init seeds the default catalog when none is stored yet and reports whether
// it did.
func (l *Library) Init() (bool, error) {
	_, ok, err := l.store.Get(l.key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", l.key, err)
	}
	if ok {
		return false, nil
	}
	if err := l.save(Defaults()); err != nil {
		return false, err
	}
	l.logger.Info("default exercise library seeded", zap.String("key", l.key))
	return true, nil
}

// Load returns the catalog. A missing or corrupt catalog reads as empty.
func (l *Library) Load() (domain.ExerciseLibrary, error) {
	raw, ok, err := l.store.Get(l.key)
	if err != nil {
		return domain.ExerciseLibrary{}, fmt.Errorf("read %s: %w", l.key, err)
	}
	var lib domain.ExerciseLibrary
	if ok {
		if err := json.Unmarshal(raw, &lib); err != nil {
			l.logger.Warn("treating corrupt exercise library as empty",
				zap.Error(&domain.DecodeError{Key: l.key, Err: err}))
			observability.RecordDecodeFailure(l.key)
			lib = domain.ExerciseLibrary{}
		}
	}
	return lib.Normalize(), nil
}

// ManualExercises returns the manual catalog entries.
func (l *Library) ManualExercises() ([]domain.ExerciseRecord, error) {
	lib, err := l.Load()
	return lib.Manual, err
}

// SupersetExercises returns the superset catalog entries.
func (l *Library) SupersetExercises() ([]domain.ExerciseRecord, error) {
	lib, err := l.Load()
	return lib.Superset, err
}

// SupersetGroups returns the superset templates.
func (l *Library) SupersetGroups() ([]domain.SupersetGroup, error) {
	lib, err := l.Load()
	return lib.SupersetGroups, err
}

// AddManualExercise appends a manual entry with a fresh id.
func (l *Library) AddManualExercise(ex domain.ExerciseRecord) (domain.ExerciseRecord, error) {
	return l.addExercise(domain.FamilyManual, ex)
}

// AddSupersetExercise appends a superset entry with a fresh id.
func (l *Library) AddSupersetExercise(ex domain.ExerciseRecord) (domain.ExerciseRecord, error) {
	return l.addExercise(domain.FamilySuperset, ex)
}

func (l *Library) addExercise(family domain.Family, ex domain.ExerciseRecord) (domain.ExerciseRecord, error) {
	ex.Name = strings.TrimSpace(ex.Name)
	if ex.Name == "" {
		return domain.ExerciseRecord{}, ErrNameRequired
	}
	lib, err := l.Load()
	if err != nil {
		return domain.ExerciseRecord{}, err
	}
	id, err := l.alloc.Next(l.sequence(family), family)
	if err != nil {
		return domain.ExerciseRecord{}, err
	}
	ex.ID = id
	ex.Type = family
	if family == domain.FamilySuperset {
		lib.Superset = append(lib.Superset, ex)
	} else {
		lib.Manual = append(lib.Manual, ex)
	}
	if err := l.save(lib); err != nil {
		return domain.ExerciseRecord{}, err
	}
	return ex, nil
}

// AddSupersetGroup appends a superset template with a fresh id.
func (l *Library) AddSupersetGroup(group domain.SupersetGroup) (domain.SupersetGroup, error) {
	group.Name = strings.TrimSpace(group.Name)
	if group.Name == "" {
		return domain.SupersetGroup{}, ErrNameRequired
	}
	lib, err := l.Load()
	if err != nil {
		return domain.SupersetGroup{}, err
	}
	id, err := l.alloc.Next(l.sequence(domain.FamilySuperset), domain.FamilySuperset)
	if err != nil {
		return domain.SupersetGroup{}, err
	}
	group.ID = id
	group.Type = domain.SupersetGroupType
	if group.Exercises == nil {
		group.Exercises = []domain.GroupExercise{}
	}
	lib.SupersetGroups = append(lib.SupersetGroups, group)
	if err := l.save(lib); err != nil {
		return domain.SupersetGroup{}, err
	}
	return group, nil
}

// sequence names the id sequence of family. Superset exercises and superset
// groups share one so their ids never coincide.
func (l *Library) sequence(family domain.Family) string {
	return l.key + ":" + string(family)
}

func (l *Library) save(lib domain.ExerciseLibrary) error {
	raw, err := json.Marshal(lib.Normalize())
	if err != nil {
		return err
	}
	if err := l.store.Set(l.key, raw); err != nil {
		return fmt.Errorf("write %s: %w", l.key, err)
	}
	return nil
}
