package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(electionHandler *ElectionHandler, tokenHandler *TokenHandler, voteHandler *VoteHandler, auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Route("/elections", func(r chi.Router) {
			r.Get("/{id}", electionHandler.GetElection)
			r.Get("/{id}/results", voteHandler.Results)
			r.Get("/{id}/chain", voteHandler.VerifyChain)
			r.Get("/{id}/receipts/{hash}", voteHandler.GetReceipt)

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Post("/", electionHandler.CreateElection)
				r.Post("/{id}/start", electionHandler.StartElection)
				r.Post("/{id}/end", electionHandler.EndElection)
				r.Post("/{id}/tokens", tokenHandler.IssueToken)
				r.Post("/{id}/votes", voteHandler.CastVote)
			})
		})
	})

	return r
}
