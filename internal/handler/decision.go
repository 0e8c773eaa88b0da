package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/decision-log/internal/domain"
	"github.com/msomdec/decision-log/internal/service"
)

// DecisionHandler handles decision CRUD, retrospectives, and statistics.
type DecisionHandler struct {
	decisions *service.DecisionService
}

// NewDecisionHandler creates a new DecisionHandler.
func NewDecisionHandler(decisions *service.DecisionService) *DecisionHandler {
	return &DecisionHandler{decisions: decisions}
}

// HandleList returns decisions, most recent first. Reads are public.
// GET /api/decisions?userId=N (filter optional)
// Response: {"decisions": [...]}
func (h *DecisionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var decisions []domain.Decision
	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid userId.")
			return
		}
		decisions = h.decisions.GetByUser(userID)
	} else {
		decisions = h.decisions.List()
	}

	if decisions == nil {
		decisions = []domain.Decision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

// HandleCreate records a new decision owned by the authenticated user.
// POST /api/decisions
// Response: {"decision": {...}}
func (h *DecisionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	var req struct {
		Title       string              `json:"title"`
		Type        domain.DecisionType `json:"type"`
		Situation   string              `json:"situation"`
		Options     []domain.Option     `json:"options"`
		FinalChoice string              `json:"finalChoice"`
		Criteria    domain.Criteria     `json:"criteria"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	decision, err := h.decisions.Create(r.Context(), service.DecisionInput{
		Title:       req.Title,
		Type:        req.Type,
		Situation:   req.Situation,
		Options:     req.Options,
		FinalChoice: req.FinalChoice,
		Criteria:    req.Criteria,
	}, user.ID, user.Name)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("create decision", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"decision": decision})
}

// HandleGet returns a single decision. Reads are public.
// GET /api/decisions/{id}
// Response: {"decision": {...}} or 404
func (h *DecisionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	decision, found := h.decisions.GetByID(id)
	if !found {
		writeError(w, http.StatusNotFound, "Decision not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decision": decision})
}

// HandleUpdate merges a partial edit into a decision the caller owns.
// PUT /api/decisions/{id}
// Response: {"decision": {...}}, 403, or 404
func (h *DecisionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title       *string              `json:"title"`
		Type        *domain.DecisionType `json:"type"`
		Situation   *string              `json:"situation"`
		Options     *[]domain.Option     `json:"options"`
		FinalChoice *string              `json:"finalChoice"`
		Criteria    *domain.Criteria     `json:"criteria"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	updated, err := h.decisions.Update(r.Context(), id, service.DecisionPatch{
		Title:       req.Title,
		Type:        req.Type,
		Situation:   req.Situation,
		Options:     req.Options,
		FinalChoice: req.FinalChoice,
		Criteria:    req.Criteria,
	}, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("update decision", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}
	if !updated {
		h.writeOwnershipFailure(w, id)
		return
	}

	decision, _ := h.decisions.GetByID(id)
	writeJSON(w, http.StatusOK, map[string]any{"decision": decision})
}

// HandleDelete removes a decision the caller owns.
// DELETE /api/decisions/{id}
// Response: 204, 403, or 404
func (h *DecisionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deleted, err := h.decisions.Delete(r.Context(), id, user.ID)
	if err != nil {
		slog.Error("delete decision", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}
	if !deleted {
		h.writeOwnershipFailure(w, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRetrospective sets a decision's retrospective, replacing any prior
// one.
// PUT /api/decisions/{id}/retrospective
// Response: {"decision": {...}}, 403, or 404
func (h *DecisionHandler) HandleRetrospective(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		ActualResult string            `json:"actualResult"`
		WasCorrect   domain.WasCorrect `json:"wasCorrect"`
		Improvements string            `json:"improvements"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	added, err := h.decisions.AddRetrospective(r.Context(), id, service.RetrospectiveInput{
		ActualResult: req.ActualResult,
		WasCorrect:   req.WasCorrect,
		Improvements: req.Improvements,
	}, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("add retrospective", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}
	if !added {
		h.writeOwnershipFailure(w, id)
		return
	}

	decision, _ := h.decisions.GetByID(id)
	writeJSON(w, http.StatusOK, map[string]any{"decision": decision})
}

// HandleStats returns aggregate statistics for the full collection or one
// user's subset.
// GET /api/stats?userId=N (filter optional)
// Response: {"stats": {...}}
func (h *DecisionHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	var stats domain.Stats
	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid userId.")
			return
		}
		stats = h.decisions.StatsByUser(userID)
	} else {
		stats = h.decisions.Stats()
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// writeOwnershipFailure translates the store's soft-fail false into a 404
// when the decision is absent and a 403 when it belongs to someone else.
func (h *DecisionHandler) writeOwnershipFailure(w http.ResponseWriter, id int64) {
	if _, found := h.decisions.GetByID(id); !found {
		writeError(w, http.StatusNotFound, "Decision not found.")
		return
	}
	writeError(w, http.StatusForbidden, "Only the owner can modify this decision.")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Decision not found.")
		return 0, false
	}
	return id, true
}
