package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
)

type ParticipantStore struct {
	db *sqlx.DB
}

const (
	createParticipantQuery = `
		INSERT INTO participants (id, tournament_id, user_id, display_name, status)
		VALUES (:id, :tournament_id, :user_id, :display_name, :status)`

	getParticipantQuery = "SELECT * FROM participants WHERE id = ?"

	listParticipantsQuery = `
		SELECT * FROM participants
		WHERE tournament_id = ?
		ORDER BY created_at ASC, id ASC`

	countParticipantsQuery = "SELECT COUNT(*) FROM participants WHERE tournament_id = ?"

	updateParticipantStatusQuery = "UPDATE participants SET status = ? WHERE id = ?"

	resetParticipantStatusesQuery = "UPDATE participants SET status = ? WHERE tournament_id = ?"
)

func NewParticipantStore(db *sqlx.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func (s *ParticipantStore) Create(ctx context.Context, exec sqlx.ExtContext, participant *bracket.Participant) error {
	_, err := sqlx.NamedExecContext(ctx, exec, createParticipantQuery, participant)
	return err
}

func (s *ParticipantStore) Get(ctx context.Context, id uuid.UUID) (*bracket.Participant, error) {
	var participant bracket.Participant
	err := s.db.GetContext(ctx, &participant, getParticipantQuery, id)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (s *ParticipantStore) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	var participants []bracket.Participant
	err := s.db.SelectContext(ctx, &participants, listParticipantsQuery, tournamentID)
	return participants, err
}

func (s *ParticipantStore) CountByTournament(ctx context.Context, exec sqlx.ExtContext, tournamentID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, exec, &count, countParticipantsQuery, tournamentID)
	return count, err
}

func (s *ParticipantStore) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, participantID uuid.UUID, status bracket.ParticipantStatus) error {
	_, err := exec.ExecContext(ctx, updateParticipantStatusQuery, status, participantID)
	return err
}

// ResetStatuses puts every participant of the tournament back to registered.
// Used when a bracket is torn down.
func (s *ParticipantStore) ResetStatuses(ctx context.Context, exec sqlx.ExtContext, tournamentID uuid.UUID) error {
	_, err := exec.ExecContext(ctx, resetParticipantStatusesQuery, bracket.ParticipantRegistered, tournamentID)
	return err
}
