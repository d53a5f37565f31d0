package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
	"github.com/noni007/domin8-p2e-sub002/internal/middleware"
	"github.com/noni007/domin8-p2e-sub002/internal/notify"
	"github.com/noni007/domin8-p2e-sub002/internal/store"
	"golang.org/x/sync/errgroup"
)

// PayoutNotifier is told when a tournament is cancelled so entry fees can be
// refunded. The refund flow itself is an external collaborator; this is only
// the hand-off boundary.
type PayoutNotifier interface {
	TournamentCancelled(ctx context.Context, tournamentID uuid.UUID, reason string)
}

type TournamentService struct {
	db           *sqlx.DB
	tournaments  *store.TournamentStore
	participants *store.ParticipantStore
	matches      *store.MatchStore
	sink         NotificationSink
	payouts      PayoutNotifier
}

func NewTournamentService(db *sqlx.DB, tournaments *store.TournamentStore, participants *store.ParticipantStore, matches *store.MatchStore, sink NotificationSink, payouts PayoutNotifier) *TournamentService {
	return &TournamentService{
		db:           db,
		tournaments:  tournaments,
		participants: participants,
		matches:      matches,
		sink:         sink,
		payouts:      payouts,
	}
}

type TournamentData struct {
	Tournament   *bracket.Tournament   `json:"tournament"`
	Participants []bracket.Participant `json:"participants"`
	Matches      []bracket.Match       `json:"matches"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, name, game string, maxParticipants int) (*bracket.Tournament, error) {
	organizerID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user ID not found in the context")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrInvalidResult)
	}
	if maxParticipants < 0 {
		maxParticipants = 0
	}

	tournament := &bracket.Tournament{
		ID:              uuid.New(),
		OrganizerID:     organizerID,
		Name:            name,
		Game:            strings.TrimSpace(game),
		MaxParticipants: maxParticipants,
		Status:          bracket.TournamentRegistrationOpen,
	}
	if err := s.tournaments.Create(ctx, s.db, tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *TournamentService) GetTournamentsForOrganizer(ctx context.Context) ([]bracket.Tournament, error) {
	organizerID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user ID not found in the context")
	}
	return s.tournaments.ListByOrganizer(ctx, organizerID)
}

// GetTournamentData loads the tournament together with its participants and
// matches, fetched in parallel.
func (s *TournamentService) GetTournamentData(ctx context.Context, tournamentID uuid.UUID) (*TournamentData, error) {
	data := &TournamentData{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tournament, err := s.tournaments.Get(gCtx, s.db, tournamentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTournamentNotFound
			}
			return err
		}
		data.Tournament = tournament
		return nil
	})
	g.Go(func() error {
		participants, err := s.participants.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return err
		}
		data.Participants = participants
		return nil
	})
	g.Go(func() error {
		matches, err := s.matches.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return err
		}
		data.Matches = matches
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// RegisterParticipant adds an entrant while registration is open. The display
// name is what the bracket shows; user binding is optional so organizers can
// enter offline players.
func (s *TournamentService) RegisterParticipant(ctx context.Context, tournamentID uuid.UUID, displayName string, userID *uuid.UUID) (*bracket.Participant, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrInvalidResult)
	}

	tournament, err := s.tournaments.Get(ctx, s.db, tournamentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.BracketGenerated {
		return nil, ErrBracketAlreadyGenerated
	}
	if tournament.Status != bracket.TournamentRegistrationOpen {
		return nil, ErrRegistrationNotOpen
	}
	if tournament.MaxParticipants > 0 {
		count, err := s.participants.CountByTournament(ctx, s.db, tournamentID)
		if err != nil {
			return nil, err
		}
		if count >= tournament.MaxParticipants {
			return nil, ErrTournamentFull
		}
	}

	participant := &bracket.Participant{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		UserID:       userID,
		DisplayName:  displayName,
		Status:       bracket.ParticipantRegistered,
	}
	if err := s.participants.Create(ctx, s.db, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

// CancelTournament ends a tournament early and hands the refund trigger to the
// payout collaborator. Completed tournaments cannot be cancelled; cancelling
// twice is a no-op.
func (s *TournamentService) CancelTournament(ctx context.Context, tournamentID uuid.UUID, reason string) error {
	tournament, err := s.tournaments.Get(ctx, s.db, tournamentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return err
	}
	if tournament.Status == bracket.TournamentCancelled {
		return nil
	}
	if tournament.Status == bracket.TournamentCompleted {
		return fmt.Errorf("%w: completed tournaments cannot be cancelled", ErrInvalidStatusTransition)
	}

	if err := s.tournaments.UpdateStatus(ctx, s.db, tournamentID, bracket.TournamentCancelled); err != nil {
		return err
	}

	if s.payouts != nil {
		s.payouts.TournamentCancelled(ctx, tournamentID, reason)
	}
	if s.sink != nil {
		s.sink.Publish(notify.Event{
			Type:         notify.EventTournamentCancelled,
			TournamentID: tournamentID,
			Payload:      map[string]string{"reason": reason},
		})
	}
	return nil
}
