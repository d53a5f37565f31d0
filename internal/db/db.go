package db

import (
	"database/sql"
	"errors"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

func InitDB(dsn string) *sqlx.DB {
	if dsn == "" {
		dsn = "domin8.db?_journal_mode=WAL"
	}

	database, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		log.Fatalln("Failed to connect to DB:", err)
	}

	if _, err := database.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Fatal(err)
	}

	log.Println("Database connected.")
	return database
}

func RunMigrations(database *sql.DB) error {
	driver, err := sqlite3.WithInstance(database, &sqlite3.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
