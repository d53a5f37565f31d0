package main

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/noni007/domin8-p2e-sub002/internal/middleware"
	"github.com/noni007/domin8-p2e-sub002/internal/notify"
	"github.com/noni007/domin8-p2e-sub002/internal/service"
	"github.com/noni007/domin8-p2e-sub002/internal/store"
)

type application struct {
	sessions    *scs.SessionManager
	userStore   *store.UserStore
	users       *service.UserService
	tournaments *service.TournamentService
	brackets    *service.BracketService
	matches     *service.MatchService
	hub         *notify.Hub
}

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(app.sessions.LoadAndSave)

	// Auth
	r.Get("/auth/{provider}", app.beginOAuth)
	r.Get("/auth/{provider}/callback", app.completeOAuth)
	r.Post("/auth/guest", app.guestLogin)
	r.Post("/logout", app.logout)

	// Public reads
	r.Get("/tournaments/{id}", app.getTournament)
	r.Get("/tournaments/{id}/bracket/complete", app.getBracketComplete)
	r.Get("/matches/{id}", app.getMatch)
	r.Get("/ws/tournaments/{id}", app.serveTournamentWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(app.sessions, app.userStore))

		r.Get("/tournaments", app.listTournaments)
		r.Post("/tournaments", app.createTournament)
		r.Post("/tournaments/{id}/participants", app.registerParticipant)
		r.Post("/tournaments/{id}/bracket", app.generateBracket)
		r.Delete("/tournaments/{id}/bracket", app.resetBracket)
		r.Post("/tournaments/{id}/cancel", app.cancelTournament)
		r.Post("/matches/{id}/result", app.submitMatchResult)
	})

	return r
}
