package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"deployd/internal/api/middleware"
	"deployd/internal/engine/deploy"
	"deployd/internal/pkg/errors"
	"deployd/internal/platform/config"
)

type DeployHandler struct {
	svc     *deploy.Service
	metrics *Metrics
}

func NewDeployHandler(svc *deploy.Service, metrics *Metrics) *DeployHandler {
	return &DeployHandler{svc: svc, metrics: metrics}
}

type deployResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handle returns the trigger handler for one configured app. The
// response contract matches what deploy clients expect: 200 with
// {"success":true} when the script ran clean, 500 with
// {"success":false} when it did not.
func (h *DeployHandler) Handle(app config.AppConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Detach from the request context so a client hanging up
		// mid-deploy does not kill the script halfway through.
		ctx := context.WithoutCancel(r.Context())
		run, err := h.svc.Trigger(ctx, app, middleware.ClientIP(r))
		if err != nil {
			if stderrors.Is(err, deploy.ErrInProgress) {
				errors.WriteError(w, http.StatusConflict, errors.ErrCodeDeployInProgress,
					fmt.Sprintf("A deploy for %s is already running.", app.Name), nil)
				return
			}
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Deploy could not be started.", nil)
			return
		}

		h.metrics.RecordDeploy(run.Success)

		elapsed := float64(run.DurationMs) / 1000.0
		w.Header().Set("Content-Type", "application/json")
		if run.Success {
			json.NewEncoder(w).Encode(deployResponse{
				Success: true,
				Message: fmt.Sprintf("Deployment for %s succeeded in %.2f seconds.", app.Name, elapsed),
			})
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(deployResponse{
			Success: false,
			Message: fmt.Sprintf("Deployment failed after %.2f seconds.", elapsed),
		})
	}
}
