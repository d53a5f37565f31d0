package store

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

// guest organizer seeded by the initial migration
const testOrganizerID = "00000000-0000-0000-0000-000000000001"

func seedMatch(t *testing.T, db *sqlx.DB) (uuid.UUID, bracket.Match, [2]uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	tournaments := NewTournamentStore(db)
	participants := NewParticipantStore(db)
	matches := NewMatchStore(db)

	tournament := &bracket.Tournament{
		ID:          uuid.New(),
		OrganizerID: uuid.MustParse(testOrganizerID),
		Name:        "Store Test",
		Status:      bracket.TournamentInProgress,
	}
	require.NoError(t, tournaments.Create(ctx, db, tournament))

	var players [2]uuid.UUID
	for i := range players {
		p := &bracket.Participant{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			DisplayName:  "Player",
			Status:       bracket.ParticipantRegistered,
		}
		require.NoError(t, participants.Create(ctx, db, p))
		players[i] = p.ID
	}

	match := bracket.Match{
		ID:              uuid.New(),
		TournamentID:    tournament.ID,
		Round:           1,
		MatchNumber:     1,
		BracketPosition: 0,
		Player1ID:       &players[0],
		Player2ID:       &players[1],
		ScheduledTime:   time.Now().UTC(),
		Status:          bracket.MatchScheduled,
	}
	require.NoError(t, matches.CreateMatches(ctx, db, []bracket.Match{match}))

	return tournament.ID, match, players
}

func TestCompleteMatchGuardsAgainstDoubleWrite(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	matches := NewMatchStore(db)
	_, match, players := seedMatch(t, db)

	score1, score2 := 2, 1
	updated, err := matches.CompleteMatch(ctx, db, match.ID, players[0], &score1, &score2)
	require.NoError(t, err)
	assert.True(t, updated)

	// A second writer loses the race: the guard sees a completed match and
	// changes nothing.
	updated, err = matches.CompleteMatch(ctx, db, match.ID, players[1], &score2, &score1)
	require.NoError(t, err)
	assert.False(t, updated)

	stored, err := matches.GetMatch(ctx, db, match.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchCompleted, stored.Status)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, players[0], *stored.WinnerID)
	assert.Equal(t, 2, *stored.ScorePlayer1)
	assert.Equal(t, 1, *stored.ScorePlayer2)
}

func TestSetPlayerSlot(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	matches := NewMatchStore(db)
	tournamentID, _, players := seedMatch(t, db)

	next := bracket.Match{
		ID:              uuid.New(),
		TournamentID:    tournamentID,
		Round:           2,
		MatchNumber:     2,
		BracketPosition: 0,
		ScheduledTime:   time.Now().UTC(),
		Status:          bracket.MatchScheduled,
	}
	require.NoError(t, matches.CreateMatches(ctx, db, []bracket.Match{next}))

	require.NoError(t, matches.SetPlayerSlot(ctx, db, next.ID, 1, players[0]))
	require.NoError(t, matches.SetPlayerSlot(ctx, db, next.ID, 2, players[1]))

	stored, err := matches.GetMatch(ctx, db, next.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Player1ID)
	require.NotNil(t, stored.Player2ID)
	assert.Equal(t, players[0], *stored.Player1ID)
	assert.Equal(t, players[1], *stored.Player2ID)

	assert.Error(t, matches.SetPlayerSlot(ctx, db, next.ID, 3, players[0]))
}

func TestDeleteByTournament(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	matches := NewMatchStore(db)
	tournamentID, _, _ := seedMatch(t, db)

	deleted, err := matches.DeleteByTournament(ctx, db, tournamentID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	listed, err := matches.ListByTournament(ctx, tournamentID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
