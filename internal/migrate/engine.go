// Package migrate moves records from legacy storage keys into the
// family-separated collections.
package migrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/gymstore/internal/appstate"
	"example.com/gymstore/internal/classify"
	"example.com/gymstore/internal/collection"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/namespace"
	"example.com/gymstore/internal/observability"
)

const migratedKeysField = "migratedKeys"

// Report summarises one MigrateLegacy run.
type Report struct {
	RunID    string                `json:"runId"`
	Migrated map[string]int        `json:"migrated"`
	ByFamily map[domain.Family]int `json:"byFamily"`
	// Skipped lists keys already recorded as migrated by an earlier run.
	Skipped []string `json:"skipped"`
	// Failed lists keys whose value could not be decoded.
	Failed []string `json:"failed"`
	// Ignored counts sequence entries that were not objects.
	Ignored int `json:"ignored"`
}

// Total returns the number of migrated records.
func (r Report) Total() int {
	total := 0
	for _, n := range r.ByFamily {
		total += n
	}
	return total
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source used for migratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithForce re-migrates keys that an earlier run already recorded.
func WithForce(force bool) Option {
	return func(e *Engine) { e.force = force }
}

// WithLegacyKeys overrides the legacy keys to scan.
func WithLegacyKeys(keys []string) Option {
	return func(e *Engine) { e.legacyKeys = append([]string(nil), keys...) }
}

// Engine performs legacy migration against one store.
type Engine struct {
	store      kv.Store
	stateKey   string
	libraryKey string
	targets    map[domain.Family]*collection.Repository
	legacyKeys []string
	force      bool
	now        func() time.Time
	logger     *zap.Logger
}

// NewEngine wires an Engine. workouts maps each family to its workout
// collection.
func NewEngine(store kv.Store, registry *namespace.Registry, workouts map[domain.Family]*collection.Repository, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		stateKey:   registry.Key(namespace.AppState),
		libraryKey: registry.Key(namespace.ExerciseLibrary),
		targets:    workouts,
		legacyKeys: namespace.LegacyWorkoutKeys,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MigrateLegacy copies every legacy sequence into the workout collection of
// the family each item classifies as. Legacy keys are left in place. A key
// that fails to decode is logged and skipped without affecting the others.
func (e *Engine) MigrateLegacy() (Report, error) {
	report := Report{
		RunID:    uuid.NewString(),
		Migrated: map[string]int{},
		ByFamily: map[domain.Family]int{},
		Skipped:  []string{},
		Failed:   []string{},
	}
	logger := e.logger.With(zap.String("run_id", report.RunID))

	done, err := e.migratedKeys()
	if err != nil {
		return report, err
	}

	for _, key := range e.legacyKeys {
		if _, seen := done[key]; seen && !e.force {
			report.Skipped = append(report.Skipped, key)
			continue
		}
		raw, ok, err := e.store.Get(key)
		if err != nil {
			return report, fmt.Errorf("read legacy key %s: %w", key, err)
		}
		if !ok || len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			decodeErr := &domain.DecodeError{Key: key, Err: err}
			logger.Error("skipping undecodable legacy key", zap.Error(decodeErr))
			observability.RecordDecodeFailure(key)
			report.Failed = append(report.Failed, key)
			continue
		}

		counts, ignored, err := e.migrateValue(key, value)
		if err != nil {
			return report, err
		}
		report.Ignored += ignored
		for family, n := range counts {
			report.ByFamily[family] += n
			report.Migrated[key] += n
			observability.RecordMigrated(string(family), n)
		}

		done[key] = domain.FormatTime(e.now())
		if err := e.recordMigrated(done); err != nil {
			return report, err
		}
		logger.Info("legacy key migrated",
			zap.String("key", key),
			zap.Int("manual", counts[domain.FamilyManual]),
			zap.Int("superset", counts[domain.FamilySuperset]),
		)
	}
	return report, nil
}

func (e *Engine) migrateValue(key string, value any) (map[domain.Family]int, int, error) {
	counts := map[domain.Family]int{}
	items, ok := value.([]any)
	if !ok {
		return counts, 0, nil
	}

	ignored := 0
	now := domain.FormatTime(e.now())
	batches := map[domain.Family][]domain.Record{}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			ignored++
			continue
		}
		family := classify.Classify(obj)
		record := domain.Record(obj).Clone()
		record[domain.FieldType] = string(family)
		if family == domain.FamilySuperset {
			record[domain.FieldMode] = string(domain.FamilySuperset)
		} else if mode, _ := record[domain.FieldMode].(string); mode == "" {
			record[domain.FieldMode] = string(domain.FamilyManual)
		}
		record[domain.FieldSource] = key
		record[domain.FieldMigratedAt] = now
		batches[family] = append(batches[family], record)
	}

	for _, family := range domain.Families {
		batch := batches[family]
		if len(batch) == 0 {
			continue
		}
		target, ok := e.targets[family]
		if !ok {
			return nil, 0, fmt.Errorf("no workout collection for family %s", family)
		}
		if _, err := target.InsertAll(batch); err != nil {
			return nil, 0, fmt.Errorf("migrate %s into %s: %w", key, target.Key(), err)
		}
		counts[family] = len(batch)
	}
	return counts, ignored, nil
}

// MigrateLibrary copies the first-generation exercise library, unchanged,
// into the current library key when the latter is absent. It reports whether a copy
// happened.
func (e *Engine) MigrateLibrary() (bool, error) {
	_, exists, err := e.store.Get(e.libraryKey)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", e.libraryKey, err)
	}
	if exists {
		return false, nil
	}
	raw, ok, err := e.store.Get(namespace.LegacyLibraryKey)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", namespace.LegacyLibraryKey, err)
	}
	if !ok {
		return false, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		if err == nil {
			err = errors.New("expected a JSON object")
		}
		e.logger.Error("skipping undecodable legacy library",
			zap.Error(&domain.DecodeError{Key: namespace.LegacyLibraryKey, Err: err}))
		observability.RecordDecodeFailure(namespace.LegacyLibraryKey)
		return false, nil
	}
	// Copied verbatim: entries may carry fields or value types the typed
	// catalog does not model.
	if err := e.store.Set(e.libraryKey, raw); err != nil {
		return false, fmt.Errorf("write %s: %w", e.libraryKey, err)
	}
	e.logger.Info("legacy exercise library migrated",
		zap.String("from", namespace.LegacyLibraryKey),
		zap.String("to", e.libraryKey),
		zap.Int("bytes", len(raw)),
	)
	return true, nil
}

func (e *Engine) migratedKeys() (map[string]string, error) {
	doc, corrupt, err := appstate.Read(e.store, e.stateKey)
	if err != nil {
		return nil, fmt.Errorf("read migration state: %w", err)
	}
	if corrupt {
		e.logger.Warn("discarding corrupt application state", zap.String("key", e.stateKey))
	}
	done := map[string]string{}
	doc.Decode(migratedKeysField, &done)
	if done == nil {
		done = map[string]string{}
	}
	return done, nil
}

func (e *Engine) recordMigrated(done map[string]string) error {
	doc, _, err := appstate.Read(e.store, e.stateKey)
	if err != nil {
		return fmt.Errorf("read migration state: %w", err)
	}
	if err := doc.Put(migratedKeysField, done); err != nil {
		return err
	}
	if err := appstate.Write(e.store, e.stateKey, doc); err != nil {
		return fmt.Errorf("record migration state: %w", err)
	}
	return nil
}
