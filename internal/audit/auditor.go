// Package audit detects and repairs records stored under the wrong family.
package audit

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"example.com/gymstore/internal/collection"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/observability"
)

// Report holds the contamination counts of a separation check.
type Report struct {
	ManualInSuperset int `json:"manualInSuperset"`
	SupersetInManual int `json:"supersetInManual"`
}

// Separated reports whether both collections are clean.
func (r Report) Separated() bool {
	return r.ManualInSuperset == 0 && r.SupersetInManual == 0
}

// Total returns the number of misplaced records.
func (r Report) Total() int {
	return r.ManualInSuperset + r.SupersetInManual
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Auditor) { a.logger = l }
}

// WithClock overrides the time source used for updatedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Auditor) { a.now = now }
}

// Auditor checks the manual and superset workout collections against each
// other.
type Auditor struct {
	store    kv.Store
	manual   *collection.Repository
	superset *collection.Repository
	now      func() time.Time
	logger   *zap.Logger
}

// NewAuditor constructs an Auditor over the two workout collections.
func NewAuditor(store kv.Store, manual, superset *collection.Repository, opts ...Option) *Auditor {
	a := &Auditor{
		store:    store,
		manual:   manual,
		superset: superset,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CheckSeparation counts records whose family tag disagrees with the
// collection holding them. Nothing is written.
func (a *Auditor) CheckSeparation() (Report, error) {
	manual, err := a.manual.List()
	if err != nil {
		return Report{}, err
	}
	superset, err := a.superset.List()
	if err != nil {
		return Report{}, err
	}
	report := Report{
		ManualInSuperset: countTagged(superset, domain.FamilyManual),
		SupersetInManual: countTagged(manual, domain.FamilySuperset),
	}
	observability.RecordSeparation(report.Total())
	if !report.Separated() {
		a.logger.Warn("family separation violated",
			zap.Int("manual_in_superset", report.ManualInSuperset),
			zap.Int("superset_in_manual", report.SupersetInManual),
		)
	}
	return report, nil
}

// FixMixedData moves every misplaced record into the collection of its tag,
// giving it a fresh id there, and returns the number of records moved. Both
// collections are written in one batch.
func (a *Auditor) FixMixedData() (int, error) {
	manual, err := a.manual.List()
	if err != nil {
		return 0, err
	}
	superset, err := a.superset.List()
	if err != nil {
		return 0, err
	}

	keptManual, strayManual := split(manual, domain.FamilySuperset)
	keptSuperset, straySuperset := split(superset, domain.FamilyManual)
	moved := len(strayManual) + len(straySuperset)
	if moved == 0 {
		observability.RecordSeparation(0)
		return 0, nil
	}

	for _, record := range straySuperset {
		fixed, err := a.relocate(record, a.manual)
		if err != nil {
			return 0, err
		}
		keptManual = append(keptManual, fixed)
	}
	for _, record := range strayManual {
		fixed, err := a.relocate(record, a.superset)
		if err != nil {
			return 0, err
		}
		keptSuperset = append(keptSuperset, fixed)
	}

	manualRaw, err := collection.Encode(keptManual)
	if err != nil {
		return 0, err
	}
	supersetRaw, err := collection.Encode(keptSuperset)
	if err != nil {
		return 0, err
	}
	if err := kv.SetAll(a.store, map[string][]byte{
		a.manual.Key():   manualRaw,
		a.superset.Key(): supersetRaw,
	}); err != nil {
		return 0, fmt.Errorf("persist repaired collections: %w", err)
	}

	observability.RecordMoved(moved)
	observability.RecordSeparation(0)
	a.logger.Info("misplaced records moved",
		zap.Int("to_manual", len(straySuperset)),
		zap.Int("to_superset", len(strayManual)),
	)
	return moved, nil
}

// relocate stamps record for target, keeping its content and createdAt.
func (a *Auditor) relocate(record domain.Record, target *collection.Repository) (domain.Record, error) {
	payload := record.Clone()
	createdAt, hasCreated := payload[domain.FieldCreatedAt]
	if id, ok := payload.ID(); ok {
		payload[domain.FieldLegacyID] = id
	}
	delete(payload, domain.FieldID)
	fixed, err := target.Prepare(payload)
	if err != nil {
		return nil, err
	}
	if hasCreated {
		fixed[domain.FieldCreatedAt] = createdAt
	}
	fixed[domain.FieldUpdatedAt] = domain.FormatTime(a.now())
	return fixed, nil
}

func countTagged(records []domain.Record, family domain.Family) int {
	n := 0
	for _, record := range records {
		if record.Family() == family {
			n++
		}
	}
	return n
}

func split(records []domain.Record, stray domain.Family) (kept, moved []domain.Record) {
	kept = make([]domain.Record, 0, len(records))
	for _, record := range records {
		if record.Family() == stray {
			moved = append(moved, record)
			continue
		}
		kept = append(kept, record)
	}
	return kept, moved
}
