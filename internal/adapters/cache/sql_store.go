package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

// sqlStore holds the queries shared by the SQL backends; timestamps are unix seconds
type sqlStore struct {
	db        *sql.DB
	upsertSQL string
	logger    *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

const (
	selectClassificationSQL = `
		SELECT fingerprint, sender, label, reasoning, classified_at, expires_at
		FROM classifications
		WHERE fingerprint = ? AND expires_at > ?`
	deleteClassificationSQL  = `DELETE FROM classifications WHERE fingerprint = ?`
	cleanupClassificationSQL = `DELETE FROM classifications WHERE expires_at <= ?`
)

func newSQLStore(db *sql.DB, upsertSQL string, logger *zap.Logger) *sqlStore {
	return &sqlStore{
		db:        db,
		upsertSQL: upsertSQL,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Get retrieves the classification stored for a fingerprint
func (s *sqlStore) Get(ctx context.Context, fingerprint string) (*core.StoredClassification, error) {
	var entry core.StoredClassification
	var label string
	var classifiedAt, expiresAt int64

	err := s.db.QueryRowContext(ctx, selectClassificationSQL, fingerprint, time.Now().Unix()).
		Scan(&entry.Fingerprint, &entry.Sender, &label, &entry.Reasoning, &classifiedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query classification: %w", err)
	}

	entry.Label = core.Label(label)
	entry.ClassifiedAt = time.Unix(classifiedAt, 0)
	entry.ExpiresAt = time.Unix(expiresAt, 0)
	return &entry, nil
}

// Set stores a classification, replacing any earlier one for the fingerprint
func (s *sqlStore) Set(ctx context.Context, entry *core.StoredClassification) error {
	_, err := s.db.ExecContext(ctx, s.upsertSQL,
		entry.Fingerprint,
		entry.Sender,
		string(entry.Label),
		entry.Reasoning,
		entry.ClassifiedAt.Unix(),
		entry.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store classification: %w", err)
	}
	return nil
}

// Delete removes a stored classification
func (s *sqlStore) Delete(ctx context.Context, fingerprint string) error {
	if _, err := s.db.ExecContext(ctx, deleteClassificationSQL, fingerprint); err != nil {
		return fmt.Errorf("failed to delete classification: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (s *sqlStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, cleanupClassificationSQL, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up classifications: %w", err)
	}

	if rowsAffected, err := result.RowsAffected(); err == nil {
		s.logger.Debug("Cleaned up expired classifications", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database
func (s *sqlStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close classification store", zap.Error(err))
		}
	})
}
