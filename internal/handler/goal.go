package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/questlog/questlog/internal/ctxkeys"
	"github.com/questlog/questlog/internal/repository"
	"github.com/questlog/questlog/internal/service"
)

type goalHandler struct {
	goals     *service.GoalService
	aggregate *service.AggregateService
	insights  *service.InsightService
}

func NewGoalHandler(goals *service.GoalService, aggregate *service.AggregateService, insights *service.InsightService) *goalHandler {
	return &goalHandler{goals: goals, aggregate: aggregate, insights: insights}
}

func (h *goalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	target, err := strconv.Atoi(r.FormValue("target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "target must be a number")
		return
	}

	goal, err := h.goals.Create(userID, r.FormValue("title"), r.FormValue("description"), r.FormValue("type"), target)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidGoalType), errors.Is(err, service.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("goal create failed", "error", err, "user_id", userID)
			writeError(w, http.StatusInternalServerError, "failed to create goal")
		}
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

func (h *goalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	goals, err := h.goals.Goals(userID, r.URL.Query().Get("sort"))
	if err != nil {
		slog.Error("goal list failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (h *goalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	goal, err := h.goals.ByID(userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		slog.Error("goal lookup failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to load goal")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *goalHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	target, err := strconv.Atoi(r.FormValue("target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "target must be a number")
		return
	}

	goal, err := h.goals.Update(userID, r.PathValue("id"), r.FormValue("title"), r.FormValue("description"), target)
	if err != nil {
		h.writeGoalError(w, userID, err, "update")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *goalHandler) AddProgress(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	delta, err := strconv.Atoi(r.FormValue("delta"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "delta must be a number")
		return
	}

	goal, err := h.goals.AddProgress(userID, r.PathValue("id"), delta)
	if err != nil {
		h.writeGoalError(w, userID, err, "progress")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *goalHandler) Pause(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	goal, err := h.goals.Pause(userID, r.PathValue("id"))
	if err != nil {
		h.writeGoalError(w, userID, err, "pause")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *goalHandler) Resume(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	goal, err := h.goals.Resume(userID, r.PathValue("id"))
	if err != nil {
		h.writeGoalError(w, userID, err, "resume")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *goalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	err := h.goals.Delete(userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		slog.Error("goal delete failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to delete goal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *goalHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	summary, err := h.aggregate.DailySummary(r.Context(), userID)
	if err != nil {
		slog.Error("daily summary failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *goalHandler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	summary, err := h.aggregate.WeeklySummary(r.Context(), userID)
	if err != nil {
		slog.Error("weekly summary failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	summary.Insight = h.insights.WeeklyInsight(r.Context(), summary)

	writeJSON(w, http.StatusOK, summary)
}

func (h *goalHandler) writeGoalError(w http.ResponseWriter, userID string, err error, op string) {
	switch {
	case errors.Is(err, repository.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, "goal not found")
	case errors.Is(err, service.ErrGoalAlreadyCompleted), errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("goal "+op+" failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to "+op+" goal")
	}
}
