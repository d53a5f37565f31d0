package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
)

type TournamentStore struct {
	db *sqlx.DB
}

const (
	createTournamentQuery = `
		INSERT INTO tournaments (id, organizer_id, name, game, max_participants,
			bracket_generated, status)
		VALUES (:id, :organizer_id, :name, :game, :max_participants,
			:bracket_generated, :status)`

	getTournamentQuery = "SELECT * FROM tournaments WHERE id = ?"

	listTournamentsByOrganizerQuery = `
		SELECT * FROM tournaments
		WHERE organizer_id = ?
		ORDER BY created_at DESC`

	updateTournamentStatusQuery = "UPDATE tournaments SET status = ? WHERE id = ?"

	setBracketGeneratedQuery = `
		UPDATE tournaments SET bracket_generated = ?, status = ? WHERE id = ?`
)

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) Create(ctx context.Context, exec sqlx.ExtContext, tournament *bracket.Tournament) error {
	_, err := sqlx.NamedExecContext(ctx, exec, createTournamentQuery, tournament)
	return err
}

func (s *TournamentStore) Get(ctx context.Context, exec sqlx.ExtContext, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, exec, &tournament, getTournamentQuery, id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, listTournamentsByOrganizerQuery, organizerID)
	return tournaments, err
}

func (s *TournamentStore) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id uuid.UUID, status bracket.TournamentStatus) error {
	_, err := exec.ExecContext(ctx, updateTournamentStatusQuery, status, id)
	return err
}

// SetBracketGenerated flips the bracket flag and the lifecycle status together,
// so a generated bracket and an in_progress tournament always move in lockstep.
func (s *TournamentStore) SetBracketGenerated(ctx context.Context, exec sqlx.ExtContext, id uuid.UUID, generated bool, status bracket.TournamentStatus) error {
	_, err := exec.ExecContext(ctx, setBracketGeneratedQuery, generated, status, id)
	return err
}
