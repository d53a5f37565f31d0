package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentRegistrationOpen TournamentStatus = "registration_open"
	TournamentInProgress       TournamentStatus = "in_progress"
	TournamentCompleted        TournamentStatus = "completed"
	TournamentCancelled        TournamentStatus = "cancelled"
)

type Tournament struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OrganizerID uuid.UUID `db:"organizer_id" json:"organizer_id"`
	Name        string    `db:"name" json:"name"`
	Game        string    `db:"game" json:"game"`

	// MaxParticipants of 0 means no registration cap.
	MaxParticipants  int              `db:"max_participants" json:"max_participants"`
	BracketGenerated bool             `db:"bracket_generated" json:"bracket_generated"`
	Status           TournamentStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}
