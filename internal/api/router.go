package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(apiHandler.SessionMiddleware)

		r.Get("/login", apiHandler.LoginPageHandler)
		r.Post("/login", apiHandler.LoginHandler)

		r.With(apiHandler.RequirePageAuth).Get("/", apiHandler.ChatPageHandler)

		r.Route("/api", func(r chi.Router) {
			r.Use(apiHandler.RequireAPIAuth)

			r.Get("/models", apiHandler.ListModelsHandler)
			r.Get("/messages", apiHandler.GetMessagesHandler)
			r.Post("/messages", apiHandler.PostMessageHandler)
			r.Delete("/messages", apiHandler.ClearMessagesHandler)
		})
	})

	return r
}
