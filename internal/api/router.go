package api

import (
	"net/http"
	"time"

	"codewars_portal/internal/api/handler"
	"codewars_portal/internal/api/middleware"
	"codewars_portal/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

// RouterTimeout bounds a whole request. It must stay above service.MaxExecutionBudget.
const RouterTimeout = 60 * time.Second

type Services struct {
	Sessions    handler.SessionManager
	Revocations middleware.RevocationChecker
	Executor    handler.Executor
	Recorder    handler.Recorder
}

func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(RouterTimeout))

	// Looks for the token in "Authorization: Bearer T", then in the "jwt" cookie.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authn := middleware.Authenticator(svc.Revocations)

	handler.NewAuthHandler(svc.Sessions, authn).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		handler.NewExecutionHandler(svc.Executor, authn).RegisterRoutes(api)
		handler.NewSubmissionHandler(svc.Recorder, authn).RegisterRoutes(api)
	})

	return r
}
