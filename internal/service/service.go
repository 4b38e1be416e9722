// Package service composes the gym store components behind one object that
// callers construct explicitly.
package service

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/gymstore/internal/audit"
	"example.com/gymstore/internal/collection"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/ids"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/library"
	"example.com/gymstore/internal/migrate"
	"example.com/gymstore/internal/namespace"
	"example.com/gymstore/internal/transfer"
)

// Option configures a Service.
type Option func(*options)

type options struct {
	prefix string
	logger *zap.Logger
	now    func() time.Time
	force  bool
}

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPrefix selects the schema-generation key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithClock overrides the time source of every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithForceMigration makes MigrateLegacy ignore the record of earlier runs.
func WithForceMigration(force bool) Option {
	return func(o *options) { o.force = force }
}

// Service serialises all operations over one store.
type Service struct {
	mu        sync.Mutex
	store     kv.Store
	registry  *namespace.Registry
	workouts  map[domain.Family]*collection.Repository
	exercises map[domain.Family]*collection.Repository
	library   *library.Library
	migrator  *migrate.Engine
	auditor   *audit.Auditor
	transfer  *transfer.Transfer
	logger    *zap.Logger
}

// New wires every component over store.
func New(store kv.Store, opts ...Option) (*Service, error) {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	registry, err := namespace.NewRegistry(o.prefix)
	if err != nil {
		return nil, err
	}
	alloc := ids.NewAllocator(store, registry.Key(namespace.AppState),
		ids.WithClock(o.now), ids.WithLogger(o.logger))

	s := &Service{
		store:     store,
		registry:  registry,
		workouts:  map[domain.Family]*collection.Repository{},
		exercises: map[domain.Family]*collection.Repository{},
		logger:    o.logger,
	}
	repoOpts := []collection.Option{collection.WithClock(o.now), collection.WithLogger(o.logger)}
	for _, f := range domain.Families {
		s.workouts[f] = collection.NewWorkouts(store, registry.Key(namespace.Workouts(f)), f, alloc, repoOpts...)
		s.exercises[f] = collection.NewExercises(store, registry.Key(namespace.Exercises(f)), f, alloc, repoOpts...)
	}

	s.library = library.New(store, registry.Key(namespace.ExerciseLibrary), alloc, library.WithLogger(o.logger))
	s.migrator = migrate.NewEngine(store, registry, s.workouts,
		migrate.WithClock(o.now), migrate.WithLogger(o.logger), migrate.WithForce(o.force))
	s.auditor = audit.NewAuditor(store, s.workouts[domain.FamilyManual], s.workouts[domain.FamilySuperset],
		audit.WithClock(o.now), audit.WithLogger(o.logger))

	tr, err := transfer.New(store, transfer.Collections{
		ManualWorkouts:    s.workouts[domain.FamilyManual],
		ManualExercises:   s.exercises[domain.FamilyManual],
		SupersetWorkouts:  s.workouts[domain.FamilySuperset],
		SupersetExercises: s.exercises[domain.FamilySuperset],
	}, transfer.WithClock(o.now), transfer.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	s.transfer = tr
	return s, nil
}

// Registry exposes the key layout in use.
func (s *Service) Registry() *namespace.Registry { return s.registry }

// InitReport describes what Init changed.
type InitReport struct {
	Seeded          []string        `json:"seeded"`
	LibraryMigrated bool            `json:"libraryMigrated"`
	LibrarySeeded   bool            `json:"librarySeeded"`
	Migration       *migrate.Report `json:"migration,omitempty"`
}

// Init creates empty collections that do not exist yet, brings the
// exercise library forward from the first storage generation or seeds the
// defaults, and optionally migrates legacy workouts.
func (s *Service) Init(migrateLegacy bool) (InitReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := InitReport{Seeded: []string{}}
	for _, f := range domain.Families {
		for _, repo := range []*collection.Repository{s.workouts[f], s.exercises[f]} {
			_, ok, err := s.store.Get(repo.Key())
			if err != nil {
				return report, fmt.Errorf("read %s: %w", repo.Key(), err)
			}
			if ok {
				continue
			}
			if err := repo.Replace(nil); err != nil {
				return report, err
			}
			report.Seeded = append(report.Seeded, repo.Key())
		}
	}

	migrated, err := s.migrator.MigrateLibrary()
	if err != nil {
		return report, err
	}
	report.LibraryMigrated = migrated
	seeded, err := s.library.Init()
	if err != nil {
		return report, err
	}
	report.LibrarySeeded = seeded

	if migrateLegacy {
		mr, err := s.migrator.MigrateLegacy()
		if err != nil {
			return report, err
		}
		report.Migration = &mr
	}
	s.logger.Info("store initialised",
		zap.Strings("seeded", report.Seeded),
		zap.Bool("library_migrated", report.LibraryMigrated),
		zap.Bool("library_seeded", report.LibrarySeeded),
	)
	return report, nil
}

func (s *Service) workoutRepo(f domain.Family) (*collection.Repository, error) {
	repo, ok := s.workouts[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFamily, f)
	}
	return repo, nil
}

func (s *Service) exerciseRepo(f domain.Family) (*collection.Repository, error) {
	repo, ok := s.exercises[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFamily, f)
	}
	return repo, nil
}

// ListWorkouts returns the workouts of a family.
func (s *Service) ListWorkouts(f domain.Family) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.workoutRepo(f)
	if err != nil {
		return nil, err
	}
	return repo.List()
}

// GetWorkout returns one workout of a family.
func (s *Service) GetWorkout(f domain.Family, id int64) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.workoutRepo(f)
	if err != nil {
		return nil, err
	}
	return repo.Get(id)
}

// SaveWorkout creates a workout in a family.
func (s *Service) SaveWorkout(f domain.Family, payload domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.workoutRepo(f)
	if err != nil {
		return nil, err
	}
	return repo.Create(payload)
}

// UpdateWorkout merges partial into a workout.
func (s *Service) UpdateWorkout(f domain.Family, id int64, partial domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.workoutRepo(f)
	if err != nil {
		return nil, err
	}
	return repo.Update(id, partial)
}

// DeleteWorkout removes a workout; unknown ids are ignored.
func (s *Service) DeleteWorkout(f domain.Family, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.workoutRepo(f)
	if err != nil {
		return err
	}
	return repo.Delete(id)
}

// ListExercises returns the exercise collection of a family.
func (s *Service) ListExercises(f domain.Family) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.exerciseRepo(f)
	if err != nil {
		return nil, err
	}
	return repo.List()
}

// SaveExercise creates an exercise in a family's collection.
func (s *Service) SaveExercise(f domain.Family, payload domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.exerciseRepo(f)
	if err != nil {
		return nil, err
	}
	return repo.Create(payload)
}

// Library returns the exercise catalog.
func (s *Service) Library() (domain.ExerciseLibrary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.Load()
}

// AddLibraryExercise appends a catalog entry to the list of a family.
func (s *Service) AddLibraryExercise(f domain.Family, ex domain.ExerciseRecord) (domain.ExerciseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch f {
	case domain.FamilyManual:
		return s.library.AddManualExercise(ex)
	case domain.FamilySuperset:
		return s.library.AddSupersetExercise(ex)
	default:
		return domain.ExerciseRecord{}, fmt.Errorf("%w: %q", domain.ErrInvalidFamily, f)
	}
}

// AddSupersetGroup appends a superset template to the catalog.
func (s *Service) AddSupersetGroup(group domain.SupersetGroup) (domain.SupersetGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.AddSupersetGroup(group)
}

// MigrateLegacy runs the legacy workout migration.
func (s *Service) MigrateLegacy() (migrate.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.migrator.MigrateLegacy()
}

// CheckSeparation reports misplaced records without changing anything.
func (s *Service) CheckSeparation() (audit.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auditor.CheckSeparation()
}

// FixMixedData moves misplaced records and returns how many moved.
func (s *Service) FixMixedData() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auditor.FixMixedData()
}

// Export snapshots the collections covered by scope.
func (s *Service) Export(scope transfer.Scope) (transfer.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer.Export(scope)
}

// Import overwrites the sections carried by an envelope.
func (s *Service) Import(raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer.Import(raw)
}
