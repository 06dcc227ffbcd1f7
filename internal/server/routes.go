package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mightyoctopus/worthbrain/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			// unauthorized zone
			r.Get("/opportunities", handler(s.getV1Opportunities))
			r.Post("/estimates", handler(s.postV1Estimates))

			r.Route("/runs", func(r chi.Router) {
				r.Post("/", handler(s.postV1Runs))
				r.Get("/{id}", handler(s.getV1Run))
			})
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
