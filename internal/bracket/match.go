package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
)

// MatchState is the derived state of a match's player slots. The flat schema
// overloads a null player2: it can mean a bye or a future-round slot that has
// not been filled yet, so callers should branch on State rather than on the
// raw pointers.
type MatchState int

const (
	// MatchUnfilled is a later-round match still waiting for at least one feeder.
	MatchUnfilled MatchState = iota
	// MatchBye is a completed match where a lone player advanced without an opponent.
	MatchBye
	// MatchPending has both players seated and no result yet.
	MatchPending
	// MatchDecided has both players and a submitted result.
	MatchDecided
)

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`

	// Position in the bracket. Round 1 is played first; bracket_position is the
	// zero-based index within the round and determines the advancement target.
	// match_number is a per-tournament display counter with no structural meaning.
	Round           int `db:"round" json:"round"`
	MatchNumber     int `db:"match_number" json:"match_number"`
	BracketPosition int `db:"bracket_position" json:"bracket_position"`

	Player1ID *uuid.UUID `db:"player1_id" json:"player1_id,omitempty"`
	Player2ID *uuid.UUID `db:"player2_id" json:"player2_id,omitempty"`
	WinnerID  *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`

	ScorePlayer1 *int `db:"score_player1" json:"score_player1,omitempty"`
	ScorePlayer2 *int `db:"score_player2" json:"score_player2,omitempty"`

	ScheduledTime time.Time   `db:"scheduled_time" json:"scheduled_time"`
	Status        MatchStatus `db:"status" json:"status"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

func (m *Match) State() MatchState {
	switch {
	case m.Player1ID != nil && m.Player2ID != nil && m.Status == MatchCompleted:
		return MatchDecided
	case m.Player1ID != nil && m.Player2ID != nil:
		return MatchPending
	case m.Status == MatchCompleted:
		return MatchBye
	default:
		return MatchUnfilled
	}
}

func (m *Match) IsBye() bool {
	return m.State() == MatchBye
}

func (m *Match) HasPlayer(id uuid.UUID) bool {
	return (m.Player1ID != nil && *m.Player1ID == id) ||
		(m.Player2ID != nil && *m.Player2ID == id)
}

// NextPosition is the bracket position this match's winner advances to in the
// following round. Even positions feed player1 of the target, odd feed player2.
func (m *Match) NextPosition() int {
	return m.BracketPosition / 2
}

func (m *Match) NextSlot() int {
	if m.BracketPosition%2 == 0 {
		return 1
	}
	return 2
}
