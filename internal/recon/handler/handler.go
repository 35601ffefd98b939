package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"countroom/internal/recon/models"
	"countroom/internal/recon/service"
	dErrors "countroom/pkg/domain-errors"
	"countroom/pkg/requestcontext"
)

// Engine is the reconciliation surface the HTTP layer depends on.
type Engine interface {
	Checkin(ctx context.Context, input service.CheckinInput) (*models.Transaction, error)
	SaveContainer(ctx context.Context, input service.SaveContainerInput) (*models.Container, error)
	RegisterIncident(ctx context.Context, input service.RegisterIncidentInput, reporterID int64) (*models.Incident, error)
	ResolveIncident(ctx context.Context, incidentID int64, target models.IncidentStatus, reviewerID int64) (bool, error)
	Transition(ctx context.Context, transactionID int64, target models.TransactionState, userID int64) (*models.Transaction, error)
	PrepareReview(ctx context.Context, transactionID int64) (*service.ReviewView, error)
}

// Handler exposes the reconciliation endpoints.
type Handler struct {
	engine Engine
	logger *slog.Logger
}

// New creates a reconciliation Handler.
func New(engine Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts the reconciliation routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transactions/checkin", h.handleCheckin)
	r.Post("/transactions/{id}/transition", h.handleTransition)
	r.Get("/transactions/{id}/review", h.handleReview)
	r.Post("/containers", h.handleSaveContainer)
	r.Post("/containers/{id}", h.handleSaveContainer)
	r.Post("/incidents", h.handleRegisterIncident)
	r.Post("/incidents/{id}/resolve", h.handleResolveIncident)
}

func (h *Handler) handleCheckin(w http.ResponseWriter, r *http.Request) {
	var input service.CheckinInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(r, w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	t, err := h.engine.Checkin(r.Context(), input)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transaction_id": t.ID, "state": t.State})
}

func (h *Handler) handleSaveContainer(w http.ResponseWriter, r *http.Request) {
	var input service.SaveContainerInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(r, w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(r, w, dErrors.New(dErrors.CodeValidation, "invalid container id"))
			return
		}
		input.ID = id
	}

	c, err := h.engine.SaveContainer(r.Context(), input)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleRegisterIncident(w http.ResponseWriter, r *http.Request) {
	var body struct {
		service.RegisterIncidentInput
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(r, w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	inc, err := h.engine.RegisterIncident(r.Context(), body.RegisterIncidentInput, body.UserID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inc)
}

func (h *Handler) handleResolveIncident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	var body struct {
		Status models.IncidentStatus `json:"status"`
		UserID int64                 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(r, w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	resolved, err := h.engine.ResolveIncident(r.Context(), id, body.Status, body.UserID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolved": resolved})
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	var body struct {
		Target models.TransactionState `json:"target"`
		UserID int64                   `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(r, w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	t, err := h.engine.Transition(r.Context(), id, body.Target, body.UserID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction_id":   t.ID,
		"state":            t.State,
		"value_difference": t.ValueDifference,
	})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	view, err := h.engine.PrepareReview(r.Context(), id)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid id in path")
	}
	return id, nil
}

// writeError centralizes domain error translation to HTTP responses so every
// endpoint shares one JSON error envelope.
func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
