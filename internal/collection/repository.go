// Package collection implements CRUD over a single family-scoped collection
// stored as one JSON array under one key.
package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/ids"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/observability"
)

// Kind selects how records are stamped on creation.
type Kind int

const (
	KindWorkouts Kind = iota
	KindExercises
)

const (
	defaultManualCategory   = "General"
	defaultSupersetCategory = "Superserie"
)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Repository is bound to exactly one key and one family.
type Repository struct {
	store  kv.Store
	key    string
	family domain.Family
	kind   Kind
	alloc  *ids.Allocator
	now    func() time.Time
	logger *zap.Logger
}

// NewWorkouts returns a repository for the workout collection at key.
func NewWorkouts(store kv.Store, key string, family domain.Family, alloc *ids.Allocator, opts ...Option) *Repository {
	return newRepository(store, key, family, KindWorkouts, alloc, opts...)
}

// NewExercises returns a repository for the exercise collection at key.
func NewExercises(store kv.Store, key string, family domain.Family, alloc *ids.Allocator, opts ...Option) *Repository {
	return newRepository(store, key, family, KindExercises, alloc, opts...)
}

func newRepository(store kv.Store, key string, family domain.Family, kind Kind, alloc *ids.Allocator, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		key:    key,
		family: family,
		kind:   kind,
		alloc:  alloc,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the physical key backing the collection.
func (r *Repository) Key() string { return r.key }

// Family returns the family the repository stamps onto records.
func (r *Repository) Family() domain.Family { return r.family }

// List returns every record in insertion order. Absent and corrupt
// collections read as empty.
func (r *Repository) List() ([]domain.Record, error) {
	raw, ok, err := r.store.Get(r.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.key, err)
	}
	if !ok {
		return []domain.Record{}, nil
	}
	records, err := Decode(raw)
	if err != nil {
		decodeErr := &domain.DecodeError{Key: r.key, Err: err}
		r.logger.Warn("treating corrupt collection as empty", zap.Error(decodeErr))
		observability.RecordDecodeFailure(r.key)
		return []domain.Record{}, nil
	}
	return records, nil
}

// Get returns the record with id.
func (r *Repository) Get(id int64) (domain.Record, error) {
	records, err := r.List()
	if err != nil {
		return nil, err
	}
	if idx := indexOf(records, id); idx >= 0 {
		return records[idx], nil
	}
	return nil, domain.ErrNotFound
}

// Prepare allocates an id and stamps payload for this collection without
// persisting it.
func (r *Repository) Prepare(payload domain.Record) (domain.Record, error) {
	id, err := r.alloc.Next(r.key, r.family)
	if err != nil {
		return nil, fmt.Errorf("allocate id for %s: %w", r.key, err)
	}
	record := payload.Clone()
	now := domain.FormatTime(r.now())
	record[domain.FieldID] = id
	r.stamp(record)
	record[domain.FieldCreatedAt] = now
	record[domain.FieldUpdatedAt] = now
	return record, nil
}

// Create stamps payload, appends it and persists the collection.
func (r *Repository) Create(payload domain.Record) (domain.Record, error) {
	records, err := r.List()
	if err != nil {
		return nil, err
	}
	record, err := r.Prepare(payload)
	if err != nil {
		return nil, err
	}
	records = append(records, record)
	if err := r.persist(records, "create"); err != nil {
		return nil, err
	}
	return record, nil
}

// Insert appends a record keeping whatever identifier it already carries,
// numeric or not. Records without one (absent, null or "") get a fresh id.
// Timestamps are stamped only when absent.
func (r *Repository) Insert(record domain.Record) (domain.Record, error) {
	out, err := r.InsertAll([]domain.Record{record})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// InsertAll appends records with Insert semantics in a single write.
func (r *Repository) InsertAll(batch []domain.Record) ([]domain.Record, error) {
	if len(batch) == 0 {
		return []domain.Record{}, nil
	}
	records, err := r.List()
	if err != nil {
		return nil, err
	}
	adopted := make([]domain.Record, 0, len(batch))
	for _, record := range batch {
		out, err := r.adopt(record)
		if err != nil {
			return nil, err
		}
		adopted = append(adopted, out)
	}
	records = append(records, adopted...)
	if err := r.persist(records, "insert"); err != nil {
		return nil, err
	}
	return adopted, nil
}

func (r *Repository) adopt(record domain.Record) (domain.Record, error) {
	out := record.Clone()
	if !hasID(out) {
		id, err := r.alloc.Next(r.key, r.family)
		if err != nil {
			return nil, fmt.Errorf("allocate id for %s: %w", r.key, err)
		}
		out[domain.FieldID] = id
	}
	r.stamp(out)
	now := domain.FormatTime(r.now())
	if _, ok := out[domain.FieldCreatedAt]; !ok {
		out[domain.FieldCreatedAt] = now
	}
	if _, ok := out[domain.FieldUpdatedAt]; !ok {
		out[domain.FieldUpdatedAt] = now
	}
	return out, nil
}

// Update shallow-merges partial into the record with id. Workout updates
// refresh updatedAt.
func (r *Repository) Update(id int64, partial domain.Record) (domain.Record, error) {
	records, err := r.List()
	if err != nil {
		return nil, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return nil, domain.ErrNotFound
	}
	merged := records[idx].Merge(partial)
	merged[domain.FieldID] = id
	if r.kind == KindWorkouts {
		merged[domain.FieldUpdatedAt] = domain.FormatTime(r.now())
	}
	records[idx] = merged
	if err := r.persist(records, "update"); err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes the record with id. Missing ids are a no-op.
func (r *Repository) Delete(id int64) error {
	records, err := r.List()
	if err != nil {
		return err
	}
	kept := make([]domain.Record, 0, len(records))
	for _, record := range records {
		if rid, ok := record.ID(); ok && rid == id {
			continue
		}
		kept = append(kept, record)
	}
	if len(kept) == len(records) {
		return nil
	}
	return r.persist(kept, "delete")
}

// Replace overwrites the whole collection.
func (r *Repository) Replace(records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	return r.persist(records, "replace")
}

func (r *Repository) stamp(record domain.Record) {
	record[domain.FieldType] = string(r.family)
	switch r.kind {
	case KindWorkouts:
		if r.family == domain.FamilySuperset {
			record[domain.FieldMode] = string(domain.FamilySuperset)
		} else if mode, _ := record[domain.FieldMode].(string); mode == "" {
			record[domain.FieldMode] = string(domain.FamilyManual)
		}
	case KindExercises:
		if category, _ := record[domain.FieldCategory].(string); category == "" {
			record[domain.FieldCategory] = defaultCategory(r.family)
		}
	}
}

func (r *Repository) persist(records []domain.Record, op string) error {
	raw, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	if err := r.store.Set(r.key, raw); err != nil {
		return fmt.Errorf("write %s: %w", r.key, err)
	}
	observability.RecordWrite(r.key, op, r.now())
	r.logger.Debug("collection persisted",
		zap.String("key", r.key),
		zap.String("op", op),
		zap.Int("records", len(records)),
	)
	return nil
}

func defaultCategory(f domain.Family) string {
	if f == domain.FamilySuperset {
		return defaultSupersetCategory
	}
	return defaultManualCategory
}

func indexOf(records []domain.Record, id int64) int {
	for i, record := range records {
		if rid, ok := record.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

var errNotArray = errors.New("collection is not a JSON array of objects")

// Decode parses a stored collection. Numbers are kept as json.Number so large
// identifiers survive the round trip.
func Decode(raw []byte) ([]domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after collection")
	}
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errNotArray
		}
		records = append(records, domain.Record(obj))
	}
	return records, nil
}

// Encode renders records as a JSON array.
func Encode(records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	return json.Marshal(records)
}

func hasID(record domain.Record) bool {
	switch v := record[domain.FieldID].(type) {
	case nil:
		return false
	case string:
		return v != ""
	default:
		return true
	}
}
