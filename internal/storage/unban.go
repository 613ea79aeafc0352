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

// UnbanStore holds reinstatement pleas from blacklisted users. Unlike the
// other queues, reviewed requests keep their rows; review moves status to
// approved or rejected.
type UnbanStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewUnbanStore constructs an UnbanStore.
func NewUnbanStore(db *sqlx.DB) *UnbanStore {
	return &UnbanStore{db: db, log: logger.Component("store.unban")}
}

// Create files a pending plea and returns its id. A user may hold at most
// one pending plea; a repeat returns domain.ErrDuplicate.
func (s *UnbanStore) Create(ctx context.Context, r domain.UnbanRequest) (int64, error) {
	pending, err := s.HasPending(ctx, r.UserID)
	if err != nil {
		return 0, err
	}
	if pending {
		return 0, domain.ErrDuplicate
	}
	var id int64
	err = s.db.GetContext(ctx, &id,
		`INSERT INTO unban_requests (user_id, chat_id, username, description, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.UserID, r.ChatID, r.Username, r.Description, domain.UnbanStatusPending)
	if err != nil {
		return 0, fmt.Errorf("create unban request: %w", err)
	}
	s.log.Info("plea filed",
		slog.String("event", "unban.create"),
		slog.Int64("id", id),
		slog.Int64("user_id", r.UserID),
	)
	return id, nil
}

// Get returns the plea by id or domain.ErrNotFound.
func (s *UnbanStore) Get(ctx context.Context, id int64) (domain.UnbanRequest, error) {
	var r domain.UnbanRequest
	err := s.db.GetContext(ctx, &r,
		`SELECT id, user_id, chat_id, username, description, status,
		        reviewed_by, review_date, review_notes, date
		 FROM unban_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UnbanRequest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.UnbanRequest{}, fmt.Errorf("get unban request %d: %w", id, err)
	}
	return r, nil
}

// ListPending returns pending pleas, oldest first.
func (s *UnbanStore) ListPending(ctx context.Context) ([]domain.UnbanRequest, error) {
	var list []domain.UnbanRequest
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, user_id, chat_id, username, description, status,
		        reviewed_by, review_date, review_notes, date
		 FROM unban_requests WHERE status = $1 ORDER BY date, id`,
		domain.UnbanStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending unban requests: %w", err)
	}
	return list, nil
}

// HasPending reports whether the user already has a pending plea.
func (s *UnbanStore) HasPending(ctx context.Context, userID int64) (bool, error) {
	var found bool
	err := s.db.GetContext(ctx, &found,
		`SELECT EXISTS (SELECT 1 FROM unban_requests WHERE user_id = $1 AND status = $2)`,
		userID, domain.UnbanStatusPending)
	if err != nil {
		return false, fmt.Errorf("pending unban exists %d: %w", userID, err)
	}
	return found, nil
}

// Review closes a pending plea with the given status, stamping reviewer and
// time. Returns domain.ErrNotFound when the plea is absent or already closed.
func (s *UnbanStore) Review(ctx context.Context, id int64, status string, reviewedBy int64, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE unban_requests
		 SET status = $2, reviewed_by = $3, review_date = NOW(), review_notes = $4
		 WHERE id = $1 AND status = $5`,
		id, status, reviewedBy, notes, domain.UnbanStatusPending)
	if err != nil {
		return fmt.Errorf("review unban request %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("plea reviewed",
		slog.String("event", "unban.review"),
		slog.Int64("id", id),
		slog.String("status", status),
		slog.Int64("reviewed_by", reviewedBy),
	)
	return nil
}

// Reopen reverts a reviewed plea back to pending. Used to undo a partially
// applied review.
func (s *UnbanStore) Reopen(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE unban_requests
		 SET status = $2, reviewed_by = NULL, review_date = NULL, review_notes = NULL
		 WHERE id = $1`,
		id, domain.UnbanStatusPending)
	if err != nil {
		return fmt.Errorf("reopen unban request %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Warn("plea reopened",
		slog.String("event", "unban.reopen"),
		slog.Int64("id", id),
	)
	return nil
}
