package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/carvex/warranty/internal/http/auth"
	"github.com/carvex/warranty/internal/http/claim"
	"github.com/carvex/warranty/internal/http/importcsv"
	"github.com/carvex/warranty/internal/http/workorder"
)

func New(
	jwtSecret string,
	claimsV1 *claim.Handler,
	workOrdersV1 *workorder.Handler,
	importV1 *importcsv.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))

		r.Route("/claims", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			claimsV1.Routes(r)
		})

		r.Route("/work-orders", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			workOrdersV1.Routes(r)
		})

		r.Route("/import", importV1.Routes)
	})

	return router
}
