package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/campusgate/campusbot/core/logger"
)

// StaffStore tracks the admin and dean representative membership tables.
// Role grants and revocations mirror the users table and these memberships
// in a single terminal action.
type StaffStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewStaffStore constructs a StaffStore.
func NewStaffStore(db *sqlx.DB) *StaffStore {
	return &StaffStore{db: db, log: logger.Component("store.staff")}
}

// AddAdmin inserts the user into the admins table. Re-adding is a no-op.
func (s *StaffStore) AddAdmin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("add admin %d: %w", userID, err)
	}
	s.log.Info("admin added", slog.String("event", "staff.admin_add"), slog.Int64("user_id", userID))
	return nil
}

// RemoveAdmin deletes the user from the admins table. Absent rows are ignored.
func (s *StaffStore) RemoveAdmin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("remove admin %d: %w", userID, err)
	}
	s.log.Info("admin removed", slog.String("event", "staff.admin_remove"), slog.Int64("user_id", userID))
	return nil
}

// IsAdmin reports admin membership.
func (s *StaffStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var found bool
	err := s.db.GetContext(ctx, &found,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("is admin %d: %w", userID, err)
	}
	return found, nil
}

// AddDeanRep inserts the user into the dean representative table.
func (s *StaffStore) AddDeanRep(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dean_representatives (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("add dean rep %d: %w", userID, err)
	}
	s.log.Info("dean rep added", slog.String("event", "staff.dean_add"), slog.Int64("user_id", userID))
	return nil
}

// RemoveDeanRep deletes the user from the dean representative table.
func (s *StaffStore) RemoveDeanRep(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dean_representatives WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("remove dean rep %d: %w", userID, err)
	}
	s.log.Info("dean rep removed", slog.String("event", "staff.dean_remove"), slog.Int64("user_id", userID))
	return nil
}

// IsDeanRep reports dean representative membership.
func (s *StaffStore) IsDeanRep(ctx context.Context, userID int64) (bool, error) {
	var found bool
	err := s.db.GetContext(ctx, &found,
		`SELECT EXISTS (SELECT 1 FROM dean_representatives WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("is dean rep %d: %w", userID, err)
	}
	return found, nil
}
