package main

import (
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/noni007/domin8-p2e-sub002/internal/db"
	"github.com/noni007/domin8-p2e-sub002/internal/middleware"
	"github.com/noni007/domin8-p2e-sub002/internal/notify"
	"github.com/noni007/domin8-p2e-sub002/internal/service"
	"github.com/noni007/domin8-p2e-sub002/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	database := db.InitDB(os.Getenv("DATABASE_DSN"))
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	middleware.InitAuth()

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour
	sessionManager.Store = sqlite3store.New(database.DB)

	hub := notify.NewHub()
	go hub.Run()

	tournamentStore := store.NewTournamentStore(database)
	participantStore := store.NewParticipantStore(database)
	matchStore := store.NewMatchStore(database)
	userStore := store.NewUserStore(database)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	app := &application{
		sessions:    sessionManager,
		userStore:   userStore,
		users:       service.NewUserService(database, userStore),
		tournaments: service.NewTournamentService(database, tournamentStore, participantStore, matchStore, hub, notify.PayoutLogger{}),
		brackets:    service.NewBracketService(database, tournamentStore, participantStore, matchStore, rng, hub),
		matches:     service.NewMatchService(database, tournamentStore, participantStore, matchStore, hub),
		hub:         hub,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("Server starting on http://localhost:" + port)
	if err := http.ListenAndServe(":"+port, newRouter(app)); err != nil {
		log.Fatal(err)
	}
}
