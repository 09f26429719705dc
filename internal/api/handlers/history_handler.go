package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "deployd/internal/api/context"
	"deployd/internal/pkg/errors"
	"deployd/internal/platform/models"
	"deployd/internal/platform/repositories"
)

type HistoryHandler struct {
	repo *repositories.DeployRunRepository
}

func NewHistoryHandler(repo *repositories.DeployRunRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repo.ListRecent(historyLimit(r))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load deploy history", nil)
		return
	}
	writeRuns(w, runs)
}

func (h *HistoryHandler) ListByApp(w http.ResponseWriter, r *http.Request) {
	ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	app := ps.ByName("app")
	if app == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Missing app name", nil)
		return
	}

	runs, err := h.repo.ListByApp(app, historyLimit(r))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load deploy history", nil)
		return
	}
	writeRuns(w, runs)
}

func historyLimit(r *http.Request) int {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit
}

func writeRuns(w http.ResponseWriter, runs []*models.DeployRun) {
	if runs == nil {
		runs = []*models.DeployRun{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Runs []*models.DeployRun `json:"runs"`
	}{Runs: runs})
}
