package bracket

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantWinner     ParticipantStatus = "winner"
)

// Participant is a registered entrant. The bracket treats the participant list
// as a read-only snapshot taken at generation time; only Status is written
// back, when a champion is decided.
type Participant struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	TournamentID uuid.UUID         `db:"tournament_id" json:"tournament_id"`
	UserID       *uuid.UUID        `db:"user_id" json:"user_id,omitempty"`
	DisplayName  string            `db:"display_name" json:"display_name"`
	Status       ParticipantStatus `db:"status" json:"status"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}
