// Package ids allocates record identifiers whose ranges never overlap across
// families.
package ids

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/gymstore/internal/appstate"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/kv"
)

// Stride is the number of families sharing the identifier space. An id is
// seq*Stride + discriminant, so two families can never produce the same id.
const Stride = 2

const sequencesField = "idSequences"

// Discriminant returns the residue reserved for f.
func Discriminant(f domain.Family) int64 {
	if f == domain.FamilySuperset {
		return 1
	}
	return 0
}

// familyOf returns the family an allocator-issued id was drawn for. Ids kept
// from older records follow no parity rule, so stored records are classified
// by their type tag instead.
func familyOf(id int64) domain.Family {
	if ((id%Stride)+Stride)%Stride == Discriminant(domain.FamilySuperset) {
		return domain.FamilySuperset
	}
	return domain.FamilyManual
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}

// Allocator hands out monotonic identifiers per sequence name. Sequences are
// seeded from the wall clock in milliseconds and persisted in the
// application-state document so restarts never reuse an id.
type Allocator struct {
	mu       sync.Mutex
	store    kv.Store
	stateKey string
	now      func() time.Time
	logger   *zap.Logger
}

// NewAllocator constructs an Allocator persisting to stateKey.
func NewAllocator(store kv.Store, stateKey string, opts ...Option) *Allocator {
	a := &Allocator{store: store, stateKey: stateKey, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next returns a fresh id for family within sequence.
func (a *Allocator) Next(sequence string, family domain.Family) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, corrupt, err := appstate.Read(a.store, a.stateKey)
	if err != nil {
		return 0, fmt.Errorf("read id sequences: %w", err)
	}
	if corrupt {
		a.logger.Warn("discarding corrupt application state", zap.String("key", a.stateKey))
	}
	seqs := map[string]int64{}
	doc.Decode(sequencesField, &seqs)
	if seqs == nil {
		seqs = map[string]int64{}
	}

	seq := a.now().UnixMilli()
	if last, ok := seqs[sequence]; ok && seq <= last {
		seq = last + 1
	}
	seqs[sequence] = seq
	if err := doc.Put(sequencesField, seqs); err != nil {
		return 0, err
	}
	if err := appstate.Write(a.store, a.stateKey, doc); err != nil {
		return 0, fmt.Errorf("persist id sequences: %w", err)
	}
	return seq*Stride + Discriminant(family), nil
}
