package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// PayoutLogger stands in for the wallet service at the cancellation boundary.
// The real refund flow lives outside this codebase; this records that the
// event was handed off.
type PayoutLogger struct{}

func (PayoutLogger) TournamentCancelled(ctx context.Context, tournamentID uuid.UUID, reason string) {
	slog.Info("tournament cancelled, refunds requested",
		"tournament_id", tournamentID, "reason", reason)
}
