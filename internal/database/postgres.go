package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL database
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	// Set connection pool settings
	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	// Initialize tables
	if err = InitPostgresTables(); err != nil {
		return err
	}

	return nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			theme VARCHAR(20) NOT NULL DEFAULT 'dark',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Diary entries. Mood and category are free VARCHARs at the storage
		// level; the closed enumerations are enforced at the write boundary.
		`CREATE TABLE IF NOT EXISTS entries (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(200) NOT NULL,
			body TEXT NOT NULL,
			mood VARCHAR(30),
			category VARCHAR(50),
			tags TEXT[] NOT NULL DEFAULT '{}',
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (created_at <= updated_at)
		)`,

		// Photo attachments uploaded to Cloudinary; only the URL is stored.
		`CREATE TABLE IF NOT EXISTS entry_media (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			entry_id UUID NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email))`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user_id ON entries(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user_created ON entries(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user_mood ON entries(user_id, mood)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_tags ON entries USING GIN (tags)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_media_entry_id ON entry_media(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_media_user_id ON entry_media(user_id)`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
