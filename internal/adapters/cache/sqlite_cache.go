package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the ClassificationRepository interface
type SQLiteCache struct {
	*sqlStore
}

// NewSQLiteCache creates a new SQLite store
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite serializes writers
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS classifications (
			fingerprint TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			label TEXT NOT NULL,
			reasoning TEXT NOT NULL,
			classified_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_classifications_expires_at ON classifications(expires_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		sqlStore: newSQLStore(db, `
			INSERT OR REPLACE INTO classifications
				(fingerprint, sender, label, reasoning, classified_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)`, logger),
	}

	go runCleanup(cache, cleanupFreq, cache.stopCh, logger)

	return cache, nil
}
