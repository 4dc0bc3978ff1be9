package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jvillar/tienda/internal/auth"
	catalogHandler "github.com/jvillar/tienda/internal/http/catalog"
	saleHandler "github.com/jvillar/tienda/internal/http/sale"
)

func New(jwtSecret string, salesV1 *saleHandler.Handler, catalogV1 *catalogHandler.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	router.Use(auth.Middleware(jwtSecret))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			salesV1.Routes(r)
		})

		r.Route("/products", func(r chi.Router) {
			catalogV1.Routes(r)
		})
	})

	return router
}
