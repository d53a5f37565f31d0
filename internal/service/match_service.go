package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
	"github.com/noni007/domin8-p2e-sub002/internal/notify"
	"github.com/noni007/domin8-p2e-sub002/internal/store"
	"github.com/noni007/domin8-p2e-sub002/internal/utils"
)

// MatchService records match results and advances winners through the bracket.
type MatchService struct {
	db           *sqlx.DB
	tournaments  *store.TournamentStore
	participants *store.ParticipantStore
	matches      *store.MatchStore
	sink         NotificationSink
}

func NewMatchService(db *sqlx.DB, tournaments *store.TournamentStore, participants *store.ParticipantStore, matches *store.MatchStore, sink NotificationSink) *MatchService {
	return &MatchService{
		db:           db,
		tournaments:  tournaments,
		participants: participants,
		matches:      matches,
		sink:         sink,
	}
}

// CanUserReport reports whether the user account is bound to either seated
// participant of the match. Organizers are authorized separately by the caller.
func (s *MatchService) CanUserReport(ctx context.Context, match *bracket.Match, userID uuid.UUID) (bool, error) {
	for _, participantID := range []*uuid.UUID{match.Player1ID, match.Player2ID} {
		if participantID == nil {
			continue
		}
		participant, err := s.participants.Get(ctx, *participantID)
		if err != nil {
			return false, err
		}
		if participant.UserID != nil && *participant.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	match, err := s.matches.GetMatch(ctx, s.db, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

// SubmitResult validates and records a decisive result, then seats the winner
// in the next round. Submitting the exact stored result to a completed match
// is accepted as a no-op; any other re-submission is rejected. The completion
// write is guarded by the match's current status, so two racing submissions
// cannot both advance a winner.
func (s *MatchService) SubmitResult(ctx context.Context, matchID, winnerID uuid.UUID, scorePlayer1, scorePlayer2 int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	match, err := s.matches.GetMatch(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to get match: %w", err)
	}

	if match.Status == bracket.MatchCompleted {
		if isIdenticalResult(match, winnerID, scorePlayer1, scorePlayer2) {
			return nil
		}
		return ErrAlreadyCompleted
	}

	if err := validateResult(match, winnerID, scorePlayer1, scorePlayer2); err != nil {
		return err
	}

	updated, err := s.matches.CompleteMatch(ctx, tx, matchID, winnerID,
		utils.Ptr(scorePlayer1), utils.Ptr(scorePlayer2))
	if err != nil {
		return fmt.Errorf("failed to complete match: %w", err)
	}
	if !updated {
		// Someone else completed it between our read and write.
		return ErrAlreadyCompleted
	}

	champion, err := s.advanceWinner(ctx, tx, match, winnerID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.publish(notify.Event{
		Type:         notify.EventMatchCompleted,
		TournamentID: match.TournamentID,
		Payload: map[string]any{
			"match_id":  matchID,
			"winner_id": winnerID,
		},
	})
	if champion {
		s.publish(notify.Event{
			Type:         notify.EventTournamentCompleted,
			TournamentID: match.TournamentID,
			Payload:      map[string]any{"winner_id": winnerID},
		})
	}
	return nil
}

func isIdenticalResult(m *bracket.Match, winnerID uuid.UUID, scorePlayer1, scorePlayer2 int) bool {
	return m.WinnerID != nil && *m.WinnerID == winnerID &&
		m.ScorePlayer1 != nil && *m.ScorePlayer1 == scorePlayer1 &&
		m.ScorePlayer2 != nil && *m.ScorePlayer2 == scorePlayer2
}

func validateResult(m *bracket.Match, winnerID uuid.UUID, scorePlayer1, scorePlayer2 int) error {
	if m.State() != bracket.MatchPending {
		return fmt.Errorf("%w: both player slots must be filled", ErrInvalidResult)
	}
	if !m.HasPlayer(winnerID) {
		return fmt.Errorf("%w: winner is not part of this match", ErrInvalidResult)
	}
	if scorePlayer1 < 0 || scorePlayer2 < 0 {
		return fmt.Errorf("%w: scores must be non-negative", ErrInvalidResult)
	}
	if scorePlayer1 == scorePlayer2 {
		return fmt.Errorf("%w: ties are not allowed", ErrInvalidResult)
	}
	higher := *m.Player1ID
	if scorePlayer2 > scorePlayer1 {
		higher = *m.Player2ID
	}
	if higher != winnerID {
		return fmt.Errorf("%w: declared winner does not match the higher score", ErrInvalidResult)
	}
	return nil
}

// advanceWinner seats the winner in the next round. When the slot opposite the
// winner has no live feeder match (the shorter first round leaves such gaps
// for most participant counts), the target completes as a bye immediately and
// the winner keeps cascading upward. Returns true when there is no next match,
// i.e. the tournament is decided.
func (s *MatchService) advanceWinner(ctx context.Context, tx *sqlx.Tx, match *bracket.Match, winnerID uuid.UUID) (bool, error) {
	cur := match
	for {
		next, err := s.matches.GetMatchByPosition(ctx, tx, cur.TournamentID, cur.Round+1, cur.NextPosition())
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// No match above this one: the bracket is decided.
				if err := s.completeTournament(ctx, tx, cur.TournamentID, winnerID); err != nil {
					return false, err
				}
				return true, nil
			}
			return false, fmt.Errorf("failed to get next match: %w", err)
		}

		slot := cur.NextSlot()
		if err := s.matches.SetPlayerSlot(ctx, tx, next.ID, slot, winnerID); err != nil {
			return false, fmt.Errorf("failed to seat winner in next match: %w", err)
		}

		otherFilled := (slot == 1 && next.Player2ID != nil) || (slot == 2 && next.Player1ID != nil)
		if otherFilled {
			return false, nil
		}
		siblingAlive, err := s.feederCanProduce(ctx, tx, cur.TournamentID, cur.Round, cur.BracketPosition^1)
		if err != nil {
			return false, err
		}
		if siblingAlive {
			// The opponent arrives once the sibling match resolves.
			return false, nil
		}

		if _, err := s.matches.CompleteMatch(ctx, tx, next.ID, winnerID, nil, nil); err != nil {
			return false, fmt.Errorf("failed to complete bye match: %w", err)
		}
		cur = next
	}
}

// feederCanProduce reports whether the match at the given position can ever
// deliver a player: it exists and either already has players or some chain of
// its own feeders does.
func (s *MatchService) feederCanProduce(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, round, position int) (bool, error) {
	m, err := s.matches.GetMatchByPosition(ctx, tx, tournamentID, round, position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if m.State() != bracket.MatchUnfilled {
		return true, nil
	}
	if round == 1 {
		// Round-1 matches always have at least one player.
		return true, nil
	}
	for _, feeder := range []int{2 * position, 2*position + 1} {
		ok, err := s.feederCanProduce(ctx, tx, tournamentID, round-1, feeder)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *MatchService) completeTournament(ctx context.Context, tx *sqlx.Tx, tournamentID, winnerID uuid.UUID) error {
	if err := s.tournaments.UpdateStatus(ctx, tx, tournamentID, bracket.TournamentCompleted); err != nil {
		return fmt.Errorf("failed to mark tournament completed: %w", err)
	}
	if err := s.participants.UpdateStatus(ctx, tx, winnerID, bracket.ParticipantWinner); err != nil {
		return fmt.Errorf("failed to mark champion: %w", err)
	}
	return nil
}

func (s *MatchService) publish(event notify.Event) {
	if s.sink != nil {
		s.sink.Publish(event)
	}
}
