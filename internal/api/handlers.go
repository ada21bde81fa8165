// Package api exposes the agent's local control surface over HTTP: sync
// status and force-sync, bulk export/import/cleanup, and write-through
// record endpoints for the client UI.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/critterhaus/burrow/internal/engine"
	"github.com/critterhaus/burrow/internal/types"
	"github.com/critterhaus/burrow/internal/validation"
)

// maxImportBytes bounds import payloads read into memory.
const maxImportBytes = 32 << 20

// Handler holds the dependencies for all control API endpoints.
type Handler struct {
	engine        *engine.Engine
	apiKey        string
	version       string
	retentionDays int
}

// NewHandler creates a Handler around the engine.
func NewHandler(e *engine.Engine, apiKey, version string, retentionDays int) *Handler {
	return &Handler{
		engine:        e,
		apiKey:        apiKey,
		version:       version,
		retentionDays: retentionDays,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Health reports agent liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Status returns the current sync status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ForceSync runs one drain cycle and returns its result. The result is
// 200 even on partial failure; success is carried in the body.
func (h *Handler) ForceSync(w http.ResponseWriter, r *http.Request) {
	result := h.engine.ForceSync(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// statsResponse bundles store and queue statistics.
type statsResponse struct {
	Records *types.StoreStats `json:"records"`
	Queue   *types.QueueStats `json:"queue"`
}

// Stats returns record counts and queue diagnostics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	records, err := h.engine.Stats(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	queue, err := h.engine.QueueStats(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Records: records, Queue: queue})
}

// Export streams the full snapshot.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.engine.ExportAllData(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, data); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

// Import applies a snapshot. A malformed payload is rejected wholesale
// and the store is left unchanged.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}
	if err := h.engine.ImportData(r.Context(), string(data)); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"imported": true})
}

// Prune deletes history records older than the retention window. The
// window defaults to the configured retention and may be overridden
// with ?days=N.
func (h *Handler) Prune(w http.ResponseWriter, r *http.Request) {
	days := h.retentionDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteProblem(w, r, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	deleted, err := h.engine.ClearOldData(r.Context(), days)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// ClearAll removes every record and queue item.
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearAllData(r.Context()); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// PutRecord writes a record of the given kind through to the local
// store and queues it for sync.
func (h *Handler) PutRecord(w http.ResponseWriter, r *http.Request) {
	kind := types.RecordKind(chi.URLParam(r, "kind"))

	switch kind {
	case types.KindPet:
		var pet types.Pet
		if err := json.NewDecoder(r.Body).Decode(&pet); err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if errs := validatePet(&pet); len(errs) > 0 {
			WriteProblemWithErrors(w, r, "pet failed validation", errs)
			return
		}
		if err := h.engine.SavePet(r.Context(), &pet); err != nil {
			MapStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pet)

	case types.KindFeeding:
		var rec types.FeedingRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if errs := validateFeeding(&rec); len(errs) > 0 {
			WriteProblemWithErrors(w, r, "feeding record failed validation", errs)
			return
		}
		if err := h.engine.RecordFeeding(r.Context(), &rec); err != nil {
			MapStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case types.KindEvolution:
		var rec types.EvolutionRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if errs := validateEvolution(&rec); len(errs) > 0 {
			WriteProblemWithErrors(w, r, "evolution record failed validation", errs)
			return
		}
		if err := h.engine.RecordEvolution(r.Context(), &rec); err != nil {
			MapStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case types.KindSession:
		var sess types.GameSession
		if err := json.NewDecoder(r.Body).Decode(&sess); err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if errs := validateSession(&sess); len(errs) > 0 {
			WriteProblemWithErrors(w, r, "game session failed validation", errs)
			return
		}
		if err := h.engine.RecordSession(r.Context(), &sess); err != nil {
			MapStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)

	default:
		WriteProblem(w, r, http.StatusBadRequest, "unknown record kind")
	}
}

// GetRecord retrieves a single record by kind and id.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	kind := types.RecordKind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")

	var result any
	var err error
	switch kind {
	case types.KindPet:
		result, err = h.engine.GetPet(r.Context(), id)
	case types.KindFeeding:
		result, err = h.engine.GetFeeding(r.Context(), id)
	case types.KindEvolution:
		result, err = h.engine.GetEvolution(r.Context(), id)
	case types.KindSession:
		result, err = h.engine.GetSession(r.Context(), id)
	default:
		WriteProblem(w, r, http.StatusBadRequest, "unknown record kind")
		return
	}
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListRecords lists records for an owner: pets and histories by
// ?owner=, sessions by ?owner= with optional ?limit=.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	kind := types.RecordKind(chi.URLParam(r, "kind"))
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		WriteProblem(w, r, http.StatusBadRequest, "owner query parameter is required")
		return
	}

	var result any
	var err error
	switch kind {
	case types.KindPet:
		result, err = h.engine.ListPets(r.Context(), owner)
	case types.KindFeeding:
		result, err = h.engine.FeedingHistory(r.Context(), owner)
	case types.KindEvolution:
		result, err = h.engine.EvolutionHistory(r.Context(), owner)
	case types.KindSession:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, convErr := strconv.Atoi(v); convErr == nil {
				limit = n
			}
		}
		result, err = h.engine.RecentSessions(r.Context(), owner, limit)
	default:
		WriteProblem(w, r, http.StatusBadRequest, "unknown record kind")
		return
	}
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeletePet removes a pet locally and queues the remote deletion.
func (h *Handler) DeletePet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.DeletePet(r.Context(), id); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func validatePet(pet *types.Pet) []validation.ValidationError {
	var c validation.Collector
	c.Add(validation.ValidateRequired("ownerId", pet.OwnerID))
	c.Add(validation.ValidateRequired("name", pet.Name))
	c.Add(validation.ValidateMaxLength("name", pet.Name, 100))
	c.Add(validation.ValidateRequired("species", pet.Species))
	c.Add(validation.ValidateRange("happiness", float64(pet.Happiness), 0, 100))
	c.Add(validation.ValidateRange("hunger", float64(pet.Hunger), 0, 100))
	if pet.ID != "" {
		c.Add(validation.ValidateULID("id", pet.ID))
	}
	return c.Errors()
}

func validateFeeding(rec *types.FeedingRecord) []validation.ValidationError {
	var c validation.Collector
	c.Add(validation.ValidateRequired("petId", rec.PetID))
	c.Add(validation.ValidateRequired("foodType", rec.FoodType))
	c.Add(validation.ValidateRange("amount", float64(rec.Amount), 0, 10000))
	return c.Errors()
}

func validateEvolution(rec *types.EvolutionRecord) []validation.ValidationError {
	var c validation.Collector
	c.Add(validation.ValidateRequired("petId", rec.PetID))
	c.Add(validation.ValidateRequired("fromStage", rec.FromStage))
	c.Add(validation.ValidateRequired("toStage", rec.ToStage))
	return c.Errors()
}

func validateSession(sess *types.GameSession) []validation.ValidationError {
	var c validation.Collector
	c.Add(validation.ValidateRequired("userId", sess.UserID))
	c.Add(validation.ValidateRequired("gameType", sess.GameType))
	c.Add(validation.ValidateRange("score", float64(sess.Score), 0, 1e9))
	return c.Errors()
}
