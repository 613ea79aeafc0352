package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/campusgate/campusbot/core/logger"
	"github.com/campusgate/campusbot/internal/domain"
)

// BlacklistStore bars users from the bot's request features.
type BlacklistStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewBlacklistStore constructs a BlacklistStore.
func NewBlacklistStore(db *sqlx.DB) *BlacklistStore {
	return &BlacklistStore{db: db, log: logger.Component("store.blacklist")}
}

// Add bars the user, recording the reason. Re-adding replaces the reason and
// bumps the modification time.
func (s *BlacklistStore) Add(ctx context.Context, userID int64, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blacklist (user_id, reason) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET reason = EXCLUDED.reason, date_modified = NOW()`,
		userID, reason)
	if err != nil {
		return fmt.Errorf("blacklist add %d: %w", userID, err)
	}
	s.log.Info("user barred",
		slog.String("event", "blacklist.add"),
		slog.Int64("user_id", userID),
	)
	return nil
}

// Remove lifts the bar. Returns domain.ErrNotFound when the user is not barred.
func (s *BlacklistStore) Remove(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("blacklist remove %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("bar lifted",
		slog.String("event", "blacklist.remove"),
		slog.Int64("user_id", userID),
	)
	return nil
}

// Get returns the blacklist entry or domain.ErrNotFound.
func (s *BlacklistStore) Get(ctx context.Context, userID int64) (domain.BlacklistEntry, error) {
	var e domain.BlacklistEntry
	err := s.db.GetContext(ctx, &e,
		`SELECT user_id, reason, date_added, date_modified FROM blacklist WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BlacklistEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.BlacklistEntry{}, fmt.Errorf("blacklist get %d: %w", userID, err)
	}
	return e, nil
}

// IsBarred reports whether the user is on the blacklist.
func (s *BlacklistStore) IsBarred(ctx context.Context, userID int64) (bool, error) {
	var found bool
	err := s.db.GetContext(ctx, &found,
		`SELECT EXISTS (SELECT 1 FROM blacklist WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("blacklist check %d: %w", userID, err)
	}
	return found, nil
}
