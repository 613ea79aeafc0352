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

// DeanApplicationStore holds pending dean representative applications.
type DeanApplicationStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewDeanApplicationStore constructs a DeanApplicationStore.
func NewDeanApplicationStore(db *sqlx.DB) *DeanApplicationStore {
	return &DeanApplicationStore{db: db, log: logger.Component("store.dean_apps")}
}

// Create files an application. A user may hold at most one pending
// application; a repeat returns domain.ErrDuplicate.
func (s *DeanApplicationStore) Create(ctx context.Context, userID int64, username string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dean_applications (user_id, username) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, username)
	if err != nil {
		return fmt.Errorf("create dean application %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicate
	}
	s.log.Info("application filed",
		slog.String("event", "dean_app.create"),
		slog.Int64("user_id", userID),
	)
	return nil
}

// Get returns the application for userID or domain.ErrNotFound.
func (s *DeanApplicationStore) Get(ctx context.Context, userID int64) (domain.DeanApplication, error) {
	var a domain.DeanApplication
	err := s.db.GetContext(ctx, &a,
		`SELECT user_id, username, date_created FROM dean_applications WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DeanApplication{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DeanApplication{}, fmt.Errorf("get dean application %d: %w", userID, err)
	}
	return a, nil
}

// List returns all pending applications, oldest first.
func (s *DeanApplicationStore) List(ctx context.Context) ([]domain.DeanApplication, error) {
	var list []domain.DeanApplication
	err := s.db.SelectContext(ctx, &list,
		`SELECT user_id, username, date_created FROM dean_applications ORDER BY date_created`)
	if err != nil {
		return nil, fmt.Errorf("list dean applications: %w", err)
	}
	return list, nil
}

// Delete removes the application. Returns domain.ErrNotFound when absent.
func (s *DeanApplicationStore) Delete(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dean_applications WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete dean application %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("application removed",
		slog.String("event", "dean_app.delete"),
		slog.Int64("user_id", userID),
	)
	return nil
}
