// Package transfer exports and imports the family collections as a versioned
// JSON envelope.
package transfer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"example.com/gymstore/internal/collection"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/observability"
)

// Version is the envelope format written by Export.
const Version = "2.0"

// Scope selects which families an export covers.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeManual   Scope = "manual"
	ScopeSuperset Scope = "superset"
)

// ParseScope validates a scope name; empty selects ScopeAll.
func ParseScope(value string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(value))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeManual:
		return ScopeManual, nil
	case ScopeSuperset:
		return ScopeSuperset, nil
	default:
		return "", fmt.Errorf("%w: unknown export type %q", domain.ErrInvalidFamily, value)
	}
}

func (s Scope) includes(f domain.Family) bool {
	return s == ScopeAll || string(s) == string(f)
}

// Section names inside the envelope data object.
const (
	SectionManualWorkouts    = "manualWorkouts"
	SectionManualExercises   = "manualExercises"
	SectionSupersetWorkouts  = "supersetWorkouts"
	SectionSupersetExercises = "supersetExercises"
)

// Envelope is the export document.
type Envelope struct {
	Version    string                     `json:"version"`
	ExportedAt string                     `json:"exportedAt"`
	Type       Scope                      `json:"type"`
	Data       map[string][]domain.Record `json:"data"`
}

// Collections binds the four exportable collections.
type Collections struct {
	ManualWorkouts    *collection.Repository
	ManualExercises   *collection.Repository
	SupersetWorkouts  *collection.Repository
	SupersetExercises *collection.Repository
}

type section struct {
	name   string
	family domain.Family
	repo   *collection.Repository
}

func (c Collections) sections() []section {
	return []section{
		{SectionManualWorkouts, domain.FamilyManual, c.ManualWorkouts},
		{SectionManualExercises, domain.FamilyManual, c.ManualExercises},
		{SectionSupersetWorkouts, domain.FamilySuperset, c.SupersetWorkouts},
		{SectionSupersetExercises, domain.FamilySuperset, c.SupersetExercises},
	}
}

//go:embed envelope.schema.json
var envelopeSchema []byte

const envelopeSchemaURL = "https://gymstore.example.com/schemas/envelope.json"

// Option configures a Transfer.
type Option func(*Transfer)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Transfer) { t.logger = l }
}

// WithClock overrides the time source used for exportedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Transfer) { t.now = now }
}

// Transfer produces and consumes envelopes.
type Transfer struct {
	store       kv.Store
	collections Collections
	schema      *jsonschema.Schema
	now         func() time.Time
	logger      *zap.Logger
}

// New compiles the envelope schema and returns a Transfer.
func New(store kv.Store, collections Collections, opts ...Option) (*Transfer, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	t := &Transfer{
		store:       store,
		collections: collections,
		schema:      schema,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("parse envelope schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(envelopeSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("load envelope schema: %w", err)
	}
	schema, err := compiler.Compile(envelopeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	return schema, nil
}

// Export snapshots the collections covered by scope.
func (t *Transfer) Export(scope Scope) (Envelope, error) {
	env := Envelope{
		Version:    Version,
		ExportedAt: domain.FormatTime(t.now()),
		Type:       scope,
		Data:       map[string][]domain.Record{},
	}
	for _, s := range t.collections.sections() {
		if !scope.includes(s.family) || s.repo == nil {
			continue
		}
		records, err := s.repo.List()
		if err != nil {
			observability.RecordTransfer("export", err)
			return Envelope{}, fmt.Errorf("export %s: %w", s.name, err)
		}
		env.Data[s.name] = records
	}
	observability.RecordTransfer("export", nil)
	t.logger.Info("collections exported", zap.String("type", string(scope)), zap.Int("sections", len(env.Data)))
	return env, nil
}

// Import validates raw and overwrites every section it carries. Sections
// that are absent or null are left untouched. Nothing is written unless the
// whole envelope is valid. Envelope problems wrap domain.ErrImportFormat;
// store failures are returned as they are.
func (t *Transfer) Import(raw []byte) error {
	err := t.importEnvelope(raw)
	observability.RecordTransfer("import", err)
	if err != nil {
		t.logger.Warn("import rejected", zap.Error(err))
	}
	return err
}

func (t *Transfer) importEnvelope(raw []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrImportFormat, err)
	}
	if err := t.schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrImportFormat, err)
	}

	var env struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrImportFormat, err)
	}

	writes := map[string][]byte{}
	for _, s := range t.collections.sections() {
		body, ok := env.Data[s.name]
		if !ok || s.repo == nil || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
			continue
		}
		records, err := collection.Decode(body)
		if err != nil {
			return fmt.Errorf("%w: section %s: %v", domain.ErrImportFormat, s.name, err)
		}
		encoded, err := collection.Encode(records)
		if err != nil {
			return fmt.Errorf("%w: section %s: %v", domain.ErrImportFormat, s.name, err)
		}
		writes[s.repo.Key()] = encoded
	}
	if err := kv.SetAll(t.store, writes); err != nil {
		return fmt.Errorf("persist import: %w", err)
	}
	t.logger.Info("envelope imported", zap.Int("sections", len(writes)))
	return nil
}
