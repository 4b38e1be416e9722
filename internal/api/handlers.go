// Package api exposes HTTP handlers for the gym store.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"example.com/gymstore/internal/auth"
	"example.com/gymstore/internal/domain"
	"example.com/gymstore/internal/library"
	"example.com/gymstore/internal/service"
	"example.com/gymstore/internal/transfer"
)

const (
	maxRecordBody = 1 << 20
	maxImportBody = 32 << 20
)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// Handler coordinates HTTP requests with the store service.
type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(svc *service.Service, opts ...Option) *Handler {
	h := &Handler{service: svc, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/workouts/{family}", h.listWorkouts)
	mux.HandleFunc("POST /v1/workouts/{family}", h.createWorkout)
	mux.HandleFunc("GET /v1/workouts/{family}/{id}", h.getWorkout)
	mux.HandleFunc("PATCH /v1/workouts/{family}/{id}", h.updateWorkout)
	mux.HandleFunc("DELETE /v1/workouts/{family}/{id}", h.deleteWorkout)
	mux.HandleFunc("GET /v1/exercises/{family}", h.listExercises)
	mux.HandleFunc("POST /v1/exercises/{family}", h.createExercise)
	mux.HandleFunc("GET /v1/library", h.getLibrary)
	mux.HandleFunc("POST /v1/library/groups", h.addSupersetGroup)
	mux.HandleFunc("POST /v1/library/{family}", h.addLibraryExercise)
	mux.HandleFunc("GET /v1/export", h.export)
	mux.HandleFunc("POST /v1/import", h.importEnvelope)
	mux.HandleFunc("GET /v1/separation", h.checkSeparation)
	mux.HandleFunc("POST /v1/separation/fix", h.fixSeparation)
	mux.HandleFunc("POST /v1/migrations/legacy", h.migrateLegacy)
	mux.HandleFunc("GET /v1/stats", h.stats)
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	family, ok := h.authorize(w, r, false)
	if !ok {
		return
	}
	records, err := h.service.ListWorkouts(family)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Items: records})
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request) {
	family, ok := h.authorize(w, r, false)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	record, err := h.service.GetWorkout(family, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	family, ok := h.authorize(w, r, true)
	if !ok {
		return
	}
	payload, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	record, err := h.service.SaveWorkout(family, payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) updateWorkout(w http.ResponseWriter, r *http.Request) {
	family, ok := h.authorize(w, r, true)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	partial, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	record, err := h.service.UpdateWorkout(family, id, partial)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	family, ok := h.authorize(w, r, true)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteWorkout(family, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listExercises(w http.ResponseWriter, r *http.Request) {
	family, ok := h.authorize(w, r, false)
	if !ok {
		return
	}
	records, err := h.service.ListExercises(family)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Items: records})
}

func (h *Handler) createExercise(w http.ResponseWriter, r *http.Request) {
	family, ok := h.authorize(w, r, true)
	if !ok {
		return
	}
	payload, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	record, err := h.service.SaveExercise(family, payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) getLibrary(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, false) {
		return
	}
	lib, err := h.service.Library()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

func (h *Handler) addLibraryExercise(w http.ResponseWriter, r *http.Request) {
	family, ok := h.authorize(w, r, true)
	if !ok {
		return
	}
	var req domain.ExerciseRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	ex, err := h.service.AddLibraryExercise(family, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (h *Handler) addSupersetGroup(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, true) {
		return
	}
	var req domain.SupersetGroup
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	group, err := h.service.AddSupersetGroup(req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, false) {
		return
	}
	scope, err := transfer.ParseScope(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	env, err := h.service.Export(scope)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) importEnvelope(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, true) {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to read body")
		return
	}
	if err := h.service.Import(raw); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: true})
}

func (h *Handler) checkSeparation(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, false) {
		return
	}
	report, err := h.service.CheckSeparation()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SeparationResponse{
		Separated:        report.Separated(),
		ManualInSuperset: report.ManualInSuperset,
		SupersetInManual: report.SupersetInManual,
	})
}

func (h *Handler) fixSeparation(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, true) {
		return
	}
	moved, err := h.service.FixMixedData()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FixResponse{Moved: moved})
}

func (h *Handler) migrateLegacy(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, true) {
		return
	}
	report, err := h.service.MigrateLegacy()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, false) {
		return
	}
	stats, err := h.service.Stats()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// authorize checks scopes and resolves the {family} path value.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, write bool) (domain.Family, bool) {
	if !requireScope(w, r, write) {
		return "", false
	}
	family, err := domain.ParseFamily(r.PathValue("family"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return "", false
	}
	return family, true
}

func requireScope(w http.ResponseWriter, r *http.Request, write bool) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if write && !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:write required")
		return false
	}
	if !write && !claims.CanRead() {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:read required")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be an integer")
		return 0, false
	}
	return id, true
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (domain.Record, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody))
	dec.UseNumber()
	var record domain.Record
	if err := dec.Decode(&record); err != nil || record == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON object")
		return nil, false
	}
	return record, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidFamily):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrImportFormat):
		writeError(w, http.StatusUnprocessableEntity, "invalid_envelope", err.Error())
	case errors.Is(err, library.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
