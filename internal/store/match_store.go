package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
)

// MatchStore is the durable home of the match graph. Writes that belong to a
// bracket mutation take an explicit executor so callers can group them into a
// single transaction.
type MatchStore struct {
	db *sqlx.DB
}

const (
	createMatchQuery = `
		INSERT INTO matches (id, tournament_id, round, match_number, bracket_position,
			player1_id, player2_id, winner_id, score_player1, score_player2,
			scheduled_time, status)
		VALUES (:id, :tournament_id, :round, :match_number, :bracket_position,
			:player1_id, :player2_id, :winner_id, :score_player1, :score_player2,
			:scheduled_time, :status)`

	getMatchQuery = "SELECT * FROM matches WHERE id = ?"

	getMatchByPositionQuery = `
		SELECT * FROM matches
		WHERE tournament_id = ? AND round = ? AND bracket_position = ?`

	listMatchesQuery = `
		SELECT * FROM matches
		WHERE tournament_id = ?
		ORDER BY round ASC, bracket_position ASC`

	getFinalMatchQuery = `
		SELECT * FROM matches
		WHERE tournament_id = ?
		ORDER BY round DESC, bracket_position ASC
		LIMIT 1`

	completeMatchQuery = `
		UPDATE matches
		SET winner_id = ?, score_player1 = ?, score_player2 = ?, status = ?
		WHERE id = ? AND status = ?`

	deleteMatchesQuery = "DELETE FROM matches WHERE tournament_id = ?"
)

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) CreateMatches(ctx context.Context, exec sqlx.ExtContext, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, exec, createMatchQuery, matches)
	return err
}

func (s *MatchStore) GetMatch(ctx context.Context, exec sqlx.ExtContext, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := sqlx.GetContext(ctx, exec, &match, getMatchQuery, id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) GetMatchByPosition(ctx context.Context, exec sqlx.ExtContext, tournamentID uuid.UUID, round, position int) (*bracket.Match, error) {
	var match bracket.Match
	err := sqlx.GetContext(ctx, exec, &match, getMatchByPositionQuery, tournamentID, round, position)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, listMatchesQuery, tournamentID)
	return matches, err
}

// GetFinalMatch returns the highest-round match of the tournament's bracket.
func (s *MatchStore) GetFinalMatch(ctx context.Context, tournamentID uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := s.db.GetContext(ctx, &match, getFinalMatchQuery, tournamentID)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// SetPlayerSlot seats a participant into one slot of a match without touching
// the other slot.
func (s *MatchStore) SetPlayerSlot(ctx context.Context, exec sqlx.ExtContext, matchID uuid.UUID, slot int, playerID uuid.UUID) error {
	var query string
	switch slot {
	case 1:
		query = "UPDATE matches SET player1_id = ? WHERE id = ?"
	case 2:
		query = "UPDATE matches SET player2_id = ? WHERE id = ?"
	default:
		return fmt.Errorf("invalid player slot %d", slot)
	}
	_, err := exec.ExecContext(ctx, query, playerID, matchID)
	return err
}

// CompleteMatch records a result, guarded by the current status so that two
// concurrent submissions cannot both win the write. Returns false when the
// match was no longer scheduled, in which case nothing was changed.
func (s *MatchStore) CompleteMatch(ctx context.Context, exec sqlx.ExtContext, matchID, winnerID uuid.UUID, scorePlayer1, scorePlayer2 *int) (bool, error) {
	res, err := exec.ExecContext(ctx, completeMatchQuery,
		winnerID, scorePlayer1, scorePlayer2, bracket.MatchCompleted,
		matchID, bracket.MatchScheduled)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *MatchStore) DeleteByTournament(ctx context.Context, exec sqlx.ExtContext, tournamentID uuid.UUID) (int64, error) {
	res, err := exec.ExecContext(ctx, deleteMatchesQuery, tournamentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
