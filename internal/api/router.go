package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "deployd/internal/api/context"
	"deployd/internal/api/handlers"
	"deployd/internal/api/middleware"
	"deployd/internal/pkg/errors"
	"deployd/internal/platform/auth"
	"deployd/internal/platform/config"
)

type Dependencies struct {
	Config         *config.Config
	DeployHandler  *handlers.DeployHandler
	HistoryHandler *handlers.HistoryHandler
	HealthHandler  *handlers.HealthHandler
	Metrics        *handlers.Metrics
	SignatureMW    *middleware.SignatureMiddleware
	AuthMW         *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	cfg := deps.Config

	router.GET("/", wrap(handlers.Index))
	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.Metrics.Export))

	// One trigger endpoint per configured app. Size check runs before
	// the signature check so an oversized body is never read in full.
	for _, app := range cfg.Apps {
		router.POST(app.Endpoint, chain(deps.DeployHandler.Handle(app),
			middleware.MaxPayload(cfg.Security.MaxPayloadBytes),
			deps.RateLimiter.Limit("trigger", cfg.RateLimit.TriggerPerMinute),
			deps.SignatureMW.Handle))
	}

	// Ops API: bearer-token guarded, read only.
	router.GET("/api/v1/history",
		chain(deps.HistoryHandler.List,
			deps.RateLimiter.Limit("api_read", cfg.RateLimit.APIReadPerMinute),
			deps.AuthMW.Handle,
			requireScope("history:read")))
	router.GET("/api/v1/history/:app",
		chain(deps.HistoryHandler.ListByApp,
			deps.RateLimiter.Limit("api_read", cfg.RateLimit.APIReadPerMinute),
			deps.AuthMW.Handle,
			requireScope("history:read")))

	return router
}

// requireScope rejects authenticated requests whose token was not
// granted the named scope. Runs after AuthMW has put claims in the
// context.
func requireScope(scope string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)
			if !ok || !claims.HasScope(scope) {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}
			next(w, r)
		}
	}
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
