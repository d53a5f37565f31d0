package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
	"github.com/noni007/domin8-p2e-sub002/internal/httputil"
	"github.com/noni007/domin8-p2e-sub002/internal/middleware"
	"github.com/noni007/domin8-p2e-sub002/internal/notify"
)

func (app *application) beginOAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

	gothic.BeginAuthHandler(w, r)
}

func (app *application) completeOAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		httputil.BadRequest(w, "authentication failure", err)
		return
	}

	user, err := app.users.FindOrCreateUserByProvider(r.Context(), gothUser)
	if err != nil {
		httputil.InternalServerError(w, "failed to find or create user", err)
		return
	}

	if err := app.sessions.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "failed to renew session", err)
		return
	}
	app.sessions.Put(r.Context(), "userID", user.ID.String())

	httputil.JSON(w, http.StatusOK, user)
}

func (app *application) guestLogin(w http.ResponseWriter, r *http.Request) {
	user, err := app.users.EnsureGuestUser(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "failed to login as guest", err)
		return
	}

	if err := app.sessions.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "failed to renew session", err)
		return
	}
	app.sessions.Put(r.Context(), "userID", user.ID.String())

	httputil.JSON(w, http.StatusOK, user)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.sessions.Destroy(r.Context()); err != nil {
		httputil.InternalServerError(w, "failed to destroy session", err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (app *application) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := app.tournaments.GetTournamentsForOrganizer(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, tournaments)
}

func (app *application) createTournament(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name            string `json:"name"`
		Game            string `json:"game"`
		MaxParticipants int    `json:"max_participants"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	tournament, err := app.tournaments.CreateTournament(r.Context(), input.Name, input.Game, input.MaxParticipants)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, tournament)
}

func (app *application) getTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	data, err := app.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}

func (app *application) registerParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var input struct {
		DisplayName string     `json:"display_name"`
		UserID      *uuid.UUID `json:"user_id"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	participant, err := app.tournaments.RegisterParticipant(r.Context(), id, input.DisplayName, input.UserID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, participant)
}

func (app *application) generateBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if _, ok := app.requireOrganizer(w, r, id); !ok {
		return
	}

	matches, err := app.brackets.GenerateBracket(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, matches)
}

func (app *application) resetBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if _, ok := app.requireOrganizer(w, r, id); !ok {
		return
	}

	if err := app.brackets.ResetBracket(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (app *application) getBracketComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	complete, err := app.brackets.IsComplete(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"complete": complete})
}

func (app *application) cancelTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	if _, ok := app.requireOrganizer(w, r, id); !ok {
		return
	}

	if err := app.tournaments.CancelTournament(r.Context(), id, input.Reason); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (app *application) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	match, err := app.matches.GetMatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, match)
}

func (app *application) submitMatchResult(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var input struct {
		WinnerID     uuid.UUID `json:"winner_id"`
		ScorePlayer1 int       `json:"score_player1"`
		ScorePlayer2 int       `json:"score_player2"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	match, err := app.matches.GetMatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if !app.canReportResult(w, r, match) {
		return
	}

	if err := app.matches.SubmitResult(r.Context(), id, input.WinnerID, input.ScorePlayer1, input.ScorePlayer2); err != nil {
		httputil.Error(w, err)
		return
	}

	updated, err := app.matches.GetMatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, updated)
}

func (app *application) serveTournamentWS(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	notify.ServeWS(app.hub, w, r, id.String())
}

// canReportResult accepts a session user whose account is bound to one of the
// match's seated participants, and otherwise falls back to the organizer
// check. Writes the error response itself when the check fails.
func (app *application) canReportResult(w http.ResponseWriter, r *http.Request, match *bracket.Match) bool {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.Forbidden(w, "authentication required")
		return false
	}

	reporter, err := app.matches.CanUserReport(r.Context(), match, userID)
	if err != nil {
		httputil.Error(w, err)
		return false
	}
	if reporter {
		return true
	}

	_, ok = app.requireOrganizer(w, r, match.TournamentID)
	return ok
}

// requireOrganizer loads the tournament and checks that the session user owns
// it. Writes the error response itself when the check fails.
func (app *application) requireOrganizer(w http.ResponseWriter, r *http.Request, tournamentID uuid.UUID) (*bracket.Tournament, bool) {
	data, err := app.tournaments.GetTournamentData(r.Context(), tournamentID)
	if err != nil {
		httputil.Error(w, err)
		return nil, false
	}

	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || data.Tournament.OrganizerID != userID {
		httputil.Forbidden(w, "only the organizer may do this")
		return nil, false
	}
	return data.Tournament, true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid id", err)
		return uuid.Nil, false
	}
	return id, true
}
