package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the ClassificationRepository interface
type MySQLCache struct {
	*sqlStore
}

// NewMySQLCache creates a new MySQL store
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS classifications (
			fingerprint CHAR(64) PRIMARY KEY,
			sender VARCHAR(320) NOT NULL,
			label VARCHAR(16) NOT NULL,
			reasoning TEXT NOT NULL,
			classified_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_classifications_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		sqlStore: newSQLStore(db, `
			INSERT INTO classifications
				(fingerprint, sender, label, reasoning, classified_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				sender = VALUES(sender),
				label = VALUES(label),
				reasoning = VALUES(reasoning),
				classified_at = VALUES(classified_at),
				expires_at = VALUES(expires_at)`, logger),
	}

	go runCleanup(cache, cleanupFreq, cache.stopCh, logger)

	return cache, nil
}
