package handlers

import (
	"log/slog"
	"net/http"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/handlers/respond"
	applog "github.com/chris/stealth-ledger/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts h on a chi router with request ids, panic recovery and
// request logging.
func NewRouter(h api.ServerInterface, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(applog.NewStructuredLogger(logger))
	router.Use(middleware.Recoverer)

	return api.HandlerWithOptions(h, api.ChiServerOptions{
		BaseRouter: router,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			respond.Error(w, r, apperrors.Validation("%v", err))
		},
	})
}
