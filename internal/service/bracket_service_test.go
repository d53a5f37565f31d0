package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/noni007/domin8-p2e-sub002/internal/bracket"
	"github.com/noni007/domin8-p2e-sub002/internal/middleware"
	"github.com/noni007/domin8-p2e-sub002/internal/store"
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

type testEnv struct {
	db           *sqlx.DB
	tournaments  *store.TournamentStore
	participants *store.ParticipantStore
	matches      *store.MatchStore
	brackets     *BracketService
	matchSvc     *MatchService
	tournSvc     *TournamentService
	payouts      *fakePayoutNotifier
}

type fakePayoutNotifier struct {
	calls []string
}

func (f *fakePayoutNotifier) TournamentCancelled(ctx context.Context, tournamentID uuid.UUID, reason string) {
	f.calls = append(f.calls, reason)
}

func newTestEnv(t *testing.T, seed int64) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	tournaments := store.NewTournamentStore(db)
	participants := store.NewParticipantStore(db)
	matches := store.NewMatchStore(db)
	payouts := &fakePayoutNotifier{}

	rng := rand.New(rand.NewSource(seed))

	return &testEnv{
		db:           db,
		tournaments:  tournaments,
		participants: participants,
		matches:      matches,
		brackets:     NewBracketService(db, tournaments, participants, matches, rng, nil),
		matchSvc:     NewMatchService(db, tournaments, participants, matches, nil),
		tournSvc:     NewTournamentService(db, tournaments, participants, matches, nil, payouts),
		payouts:      payouts,
	}
}

// createTournamentWithPlayers seeds a tournament owned by the guest user with
// n participants. Participant IDs are handcrafted so the seeding order (and
// therefore a fixed-seed shuffle) is reproducible.
func createTournamentWithPlayers(t *testing.T, env *testEnv, n int, idPrefix string) (uuid.UUID, []bracket.Participant) {
	t.Helper()
	ctx := context.Background()

	tournament := &bracket.Tournament{
		ID:          uuid.New(),
		OrganizerID: uuid.MustParse(middleware.GuestUserID),
		Name:        fmt.Sprintf("Test Tournament %s", idPrefix),
		Game:        "Test Game",
		Status:      bracket.TournamentRegistrationOpen,
	}
	require.NoError(t, env.tournaments.Create(ctx, env.db, tournament))

	players := make([]bracket.Participant, 0, n)
	for i := 0; i < n; i++ {
		p := bracket.Participant{
			ID:           uuid.MustParse(fmt.Sprintf("%s0000000-0000-0000-0000-%012d", idPrefix, i+1)),
			TournamentID: tournament.ID,
			DisplayName:  fmt.Sprintf("Player %d", i+1),
			Status:       bracket.ParticipantRegistered,
		}
		require.NoError(t, env.participants.Create(ctx, env.db, &p))
		players = append(players, p)
	}
	return tournament.ID, players
}

func matchAt(t *testing.T, env *testEnv, tournamentID uuid.UUID, round, position int) *bracket.Match {
	t.Helper()
	m, err := env.matches.GetMatchByPosition(context.Background(), env.db, tournamentID, round, position)
	require.NoError(t, err)
	return m
}

func TestGenerateBracketShape(t *testing.T) {
	testCases := []struct {
		name            string
		numPlayers      int
		expectedRounds  int
		expectedMatches int
	}{
		{"2 players", 2, 1, 1},
		{"3 players", 3, 2, 3},
		{"4 players", 4, 2, 3},
		{"5 players", 5, 3, 6},
		{"6 players", 6, 3, 6},
		{"8 players", 8, 3, 7},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, 1)
			tournamentID, _ := createTournamentWithPlayers(t, env, tc.numPlayers, "a")

			matches, err := env.brackets.GenerateBracket(context.Background(), tournamentID)
			require.NoError(t, err)
			assert.Len(t, matches, tc.expectedMatches)

			rounds := 0
			firstRound := 0
			for _, m := range matches {
				if m.Round > rounds {
					rounds = m.Round
				}
				if m.Round == 1 {
					firstRound++
				}
			}
			assert.Equal(t, tc.expectedRounds, rounds)
			assert.Equal(t, (tc.numPlayers+1)/2, firstRound)

			// Later round r holds 2^(R-r) matches.
			for r := 2; r <= rounds; r++ {
				count := 0
				for _, m := range matches {
					if m.Round == r {
						count++
					}
				}
				assert.Equal(t, 1<<(rounds-r), count, "round %d", r)
			}

			tournament, err := env.tournaments.Get(context.Background(), env.db, tournamentID)
			require.NoError(t, err)
			assert.True(t, tournament.BracketGenerated)
			assert.Equal(t, bracket.TournamentInProgress, tournament.Status)
		})
	}
}

func TestGenerateBracketOddCountBye(t *testing.T) {
	env := newTestEnv(t, 7)
	tournamentID, _ := createTournamentWithPlayers(t, env, 5, "a")

	_, err := env.brackets.GenerateBracket(context.Background(), tournamentID)
	require.NoError(t, err)

	// The unpaired player gets a completed round-1 bye in the last position.
	bye := matchAt(t, env, tournamentID, 1, 2)
	assert.Equal(t, bracket.MatchCompleted, bye.Status)
	require.NotNil(t, bye.Player1ID)
	assert.Nil(t, bye.Player2ID)
	require.NotNil(t, bye.WinnerID)
	assert.Equal(t, *bye.Player1ID, *bye.WinnerID)
	assert.True(t, bye.IsBye())

	// Round 2 position 1 has no second feeder match, so the bye winner falls
	// straight through it into the final.
	r2p1 := matchAt(t, env, tournamentID, 2, 1)
	assert.Equal(t, bracket.MatchCompleted, r2p1.Status)
	require.NotNil(t, r2p1.WinnerID)
	assert.Equal(t, *bye.WinnerID, *r2p1.WinnerID)
	assert.Nil(t, r2p1.ScorePlayer1)
	assert.Nil(t, r2p1.ScorePlayer2)

	final := matchAt(t, env, tournamentID, 3, 0)
	assert.Equal(t, bracket.MatchScheduled, final.Status)
	assert.Nil(t, final.Player1ID)
	require.NotNil(t, final.Player2ID)
	assert.Equal(t, *bye.WinnerID, *final.Player2ID)
}

func TestGenerateBracketEvenCountHasNoByes(t *testing.T) {
	env := newTestEnv(t, 3)
	tournamentID, _ := createTournamentWithPlayers(t, env, 8, "a")

	matches, err := env.brackets.GenerateBracket(context.Background(), tournamentID)
	require.NoError(t, err)

	for _, m := range matches {
		if m.Round == 1 {
			assert.NotNil(t, m.Player1ID)
			assert.NotNil(t, m.Player2ID)
			assert.Equal(t, bracket.MatchScheduled, m.Status)
		}
	}
}

func TestGenerateBracketInsufficientParticipants(t *testing.T) {
	for _, n := range []int{0, 1} {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			env := newTestEnv(t, 1)
			tournamentID, _ := createTournamentWithPlayers(t, env, n, "a")

			_, err := env.brackets.GenerateBracket(context.Background(), tournamentID)
			assert.ErrorIs(t, err, ErrInsufficientParticipants)

			// Nothing must have been written.
			matches, err := env.matches.ListByTournament(context.Background(), tournamentID)
			require.NoError(t, err)
			assert.Empty(t, matches)

			tournament, err := env.tournaments.Get(context.Background(), env.db, tournamentID)
			require.NoError(t, err)
			assert.False(t, tournament.BracketGenerated)
			assert.Equal(t, bracket.TournamentRegistrationOpen, tournament.Status)
		})
	}
}

func TestGenerateBracketAlreadyGenerated(t *testing.T) {
	env := newTestEnv(t, 1)
	tournamentID, _ := createTournamentWithPlayers(t, env, 4, "a")

	_, err := env.brackets.GenerateBracket(context.Background(), tournamentID)
	require.NoError(t, err)

	_, err = env.brackets.GenerateBracket(context.Background(), tournamentID)
	assert.ErrorIs(t, err, ErrBracketAlreadyGenerated)
}

func TestGenerateBracketUnknownTournament(t *testing.T) {
	env := newTestEnv(t, 1)

	_, err := env.brackets.GenerateBracket(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGenerateBracketDeterministicWithSeed(t *testing.T) {
	ctx := context.Background()

	pairings := func(seed int64, idPrefix string) [][2]string {
		env := newTestEnv(t, seed)
		tournamentID, players := createTournamentWithPlayers(t, env, 6, idPrefix)

		matches, err := env.brackets.GenerateBracket(ctx, tournamentID)
		require.NoError(t, err)

		names := make(map[uuid.UUID]string, len(players))
		for _, p := range players {
			names[p.ID] = p.DisplayName
		}

		var out [][2]string
		for _, m := range matches {
			if m.Round != 1 {
				continue
			}
			out = append(out, [2]string{names[*m.Player1ID], names[*m.Player2ID]})
		}
		return out
	}

	first := pairings(42, "a")
	second := pairings(42, "b")
	assert.Equal(t, first, second, "same seed must produce the same round-1 pairings")
}

func TestResetBracket(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	tournamentID, players := createTournamentWithPlayers(t, env, 4, "a")

	_, err := env.brackets.GenerateBracket(ctx, tournamentID)
	require.NoError(t, err)

	// Decide one match so the reset has real state to tear down.
	m := matchAt(t, env, tournamentID, 1, 0)
	require.NoError(t, env.matchSvc.SubmitResult(ctx, m.ID, *m.Player1ID, 2, 1))

	require.NoError(t, env.brackets.ResetBracket(ctx, tournamentID))

	matches, err := env.matches.ListByTournament(ctx, tournamentID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	tournament, err := env.tournaments.Get(ctx, env.db, tournamentID)
	require.NoError(t, err)
	assert.False(t, tournament.BracketGenerated)
	assert.Equal(t, bracket.TournamentRegistrationOpen, tournament.Status)

	for _, p := range players {
		got, err := env.participants.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, bracket.ParticipantRegistered, got.Status)
	}

	// Resetting again is a no-op, not an error.
	require.NoError(t, env.brackets.ResetBracket(ctx, tournamentID))

	// A fresh bracket can be generated afterwards.
	_, err = env.brackets.GenerateBracket(ctx, tournamentID)
	require.NoError(t, err)
}

func TestIsCompleteWithoutBracket(t *testing.T) {
	env := newTestEnv(t, 1)
	tournamentID, _ := createTournamentWithPlayers(t, env, 4, "a")

	complete, err := env.brackets.IsComplete(context.Background(), tournamentID)
	require.NoError(t, err)
	assert.False(t, complete)
}
