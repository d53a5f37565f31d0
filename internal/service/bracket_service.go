package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
	"github.com/noni007/domin8-p2e-sub002/internal/notify"
	"github.com/noni007/domin8-p2e-sub002/internal/store"
)

// NotificationSink fans bracket events out to interested listeners (spectator
// websockets today). Delivery is fire-and-forget; implementations must not
// block and their failures never affect bracket state.
type NotificationSink interface {
	Publish(event notify.Event)
}

// BracketService owns single-elimination bracket construction, reset and
// completion detection. Winner advancement lives in MatchService.
type BracketService struct {
	db           *sqlx.DB
	tournaments  *store.TournamentStore
	participants *store.ParticipantStore
	matches      *store.MatchStore
	rng          *rand.Rand
	sink         NotificationSink
}

// NewBracketService wires the service. rng drives the seeding shuffle and may
// be nil, in which case a time-seeded source is used; tests pass a fixed seed
// for reproducible brackets. sink may be nil.
func NewBracketService(db *sqlx.DB, tournaments *store.TournamentStore, participants *store.ParticipantStore, matches *store.MatchStore, rng *rand.Rand, sink NotificationSink) *BracketService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &BracketService{
		db:           db,
		tournaments:  tournaments,
		participants: participants,
		matches:      matches,
		rng:          rng,
		sink:         sink,
	}
}

// Spacing applied to scheduled times. Cosmetic: it keeps matches from all
// firing at the same instant but carries no correctness weight.
const (
	round1Spacing    = time.Hour
	laterRoundOffset = 24 * time.Hour
)

// GenerateBracket shuffles the registered participants into a fresh bracket
// and persists every match in one transaction. Round 1 holds ceil(N/2)
// matches, each later round r holds 2^(R-r), R = ceil(log2(N)). An odd
// participant count leaves the last round-1 match without a second player;
// that match is created already completed as a bye.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
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

	participants, err := s.participants.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(participants) < 2 {
		return nil, ErrInsufficientParticipants
	}

	matches, err := s.buildBracket(tournamentID, participants)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.matches.CreateMatches(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to persist bracket: %w", err)
	}
	if err := s.tournaments.SetBracketGenerated(ctx, tx, tournamentID, true, bracket.TournamentInProgress); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.publish(notify.Event{
		Type:         notify.EventBracketGenerated,
		TournamentID: tournamentID,
		Payload:      map[string]int{"matches": len(matches), "participants": len(participants)},
	})
	return matches, nil
}

func (s *BracketService) buildBracket(tournamentID uuid.UUID, participants []bracket.Participant) ([]bracket.Match, error) {
	shuffled := make([]bracket.Participant, len(participants))
	copy(shuffled, participants)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	totalRounds := int(math.Ceil(math.Log2(float64(n))))
	firstRoundMatches := (n + 1) / 2
	now := time.Now().UTC()

	matches := make([]bracket.Match, 0, firstRoundMatches+(1<<(totalRounds-1)))
	matchNumber := 1

	for i := 0; i < firstRoundMatches; i++ {
		m := bracket.Match{
			ID:              uuid.New(),
			TournamentID:    tournamentID,
			Round:           1,
			MatchNumber:     matchNumber,
			BracketPosition: i,
			Player1ID:       &shuffled[2*i].ID,
			ScheduledTime:   now.Add(time.Duration(i) * round1Spacing),
			Status:          bracket.MatchScheduled,
			CreatedAt:       now,
		}
		if 2*i+1 < n {
			m.Player2ID = &shuffled[2*i+1].ID
		} else {
			// Odd count: the unpaired player advances on a bye.
			m.Status = bracket.MatchCompleted
			m.WinnerID = m.Player1ID
		}
		matches = append(matches, m)
		matchNumber++
	}

	for r := 2; r <= totalRounds; r++ {
		count := 1 << (totalRounds - r)
		for p := 0; p < count; p++ {
			matches = append(matches, bracket.Match{
				ID:              uuid.New(),
				TournamentID:    tournamentID,
				Round:           r,
				MatchNumber:     matchNumber,
				BracketPosition: p,
				ScheduledTime:   now.Add(time.Duration(r)*laterRoundOffset + time.Duration(p)*round1Spacing),
				Status:          bracket.MatchScheduled,
				CreatedAt:       now,
			})
			matchNumber++
		}
	}

	if err := resolveByes(matches, totalRounds, firstRoundMatches); err != nil {
		return nil, err
	}
	return matches, nil
}

// resolveByes walks the freshly built bracket in round order, seats round-1
// bye winners in the next round, and completes any later-round match whose
// empty slot can never be filled. The first round is shorter than a full power
// of two for most participant counts, so some later-round slots have no feeder
// match at all; a player seated opposite such a slot advances immediately.
func resolveByes(matches []bracket.Match, totalRounds, firstRoundMatches int) error {
	roundSize := func(r int) int {
		if r == 1 {
			return firstRoundMatches
		}
		return 1 << (totalRounds - r)
	}

	byPos := make(map[[2]int]*bracket.Match, len(matches))
	for i := range matches {
		m := &matches[i]
		byPos[[2]int{m.Round, m.BracketPosition}] = m
	}

	// canProduce marks positions whose feeder chain can ever yield a winner.
	canProduce := make(map[[2]int]bool, len(matches))
	for p := 0; p < firstRoundMatches; p++ {
		canProduce[[2]int{1, p}] = true
	}
	for r := 2; r <= totalRounds; r++ {
		for p := 0; p < roundSize(r); p++ {
			s1 := 2*p < roundSize(r-1) && canProduce[[2]int{r - 1, 2 * p}]
			s2 := 2*p+1 < roundSize(r-1) && canProduce[[2]int{r - 1, 2*p + 1}]
			canProduce[[2]int{r, p}] = s1 || s2
		}
	}
	slotFillable := func(r, p, slot int) bool {
		feeder := 2*p + slot - 1
		return feeder < roundSize(r-1) && canProduce[[2]int{r - 1, feeder}]
	}

	for r := 1; r <= totalRounds; r++ {
		for p := 0; p < roundSize(r); p++ {
			m := byPos[[2]int{r, p}]
			if r >= 2 && m.Status == bracket.MatchScheduled {
				if m.Player1ID == nil && m.Player2ID != nil && !slotFillable(r, p, 1) {
					// Construction fills slots left to right; a lone player2
					// with a dead player1 slot means the math above is wrong.
					return fmt.Errorf("bracket construction: match round %d position %d has player2 but an unfillable player1 slot", r, p)
				}
				if m.Player1ID != nil && m.Player2ID == nil && !slotFillable(r, p, 2) {
					m.Status = bracket.MatchCompleted
					m.WinnerID = m.Player1ID
				}
			}
			if m.WinnerID == nil || r == totalRounds {
				continue
			}
			next := byPos[[2]int{r + 1, m.NextPosition()}]
			if next == nil {
				return fmt.Errorf("bracket construction: no match at round %d position %d", r+1, m.NextPosition())
			}
			if m.NextSlot() == 1 {
				next.Player1ID = m.WinnerID
			} else {
				next.Player2ID = m.WinnerID
			}
		}
	}
	return nil
}

// ResetBracket deletes every match of the tournament and reopens registration.
// Resetting a tournament with no bracket is a no-op, so the call is idempotent.
func (s *BracketService) ResetBracket(ctx context.Context, tournamentID uuid.UUID) error {
	if _, err := s.tournaments.Get(ctx, s.db, tournamentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.matches.DeleteByTournament(ctx, tx, tournamentID); err != nil {
		return err
	}
	if err := s.participants.ResetStatuses(ctx, tx, tournamentID); err != nil {
		return err
	}
	if err := s.tournaments.SetBracketGenerated(ctx, tx, tournamentID, false, bracket.TournamentRegistrationOpen); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.publish(notify.Event{Type: notify.EventBracketReset, TournamentID: tournamentID})
	return nil
}

// IsComplete reports whether the bracket's final match is decided. It must
// agree with the terminal event fired during advancement; it is a query for
// external polling, not the completion trigger itself.
func (s *BracketService) IsComplete(ctx context.Context, tournamentID uuid.UUID) (bool, error) {
	final, err := s.matches.GetFinalMatch(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return final.Status == bracket.MatchCompleted && final.WinnerID != nil, nil
}

func (s *BracketService) publish(event notify.Event) {
	if s.sink != nil {
		s.sink.Publish(event)
	}
}
