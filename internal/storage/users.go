// Package storage provides thin per-entity Postgres stores. Every store is
// atomic at the single-entity level; cross-entity sequences are composed by
// the dispatcher's terminal actions.
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

// UserStore maintains the canonical user role records.
type UserStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewUserStore constructs a UserStore.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db, log: logger.Component("store.users")}
}

// Upsert creates the user record or replaces its role.
func (s *UserStore) Upsert(ctx context.Context, userID int64, role domain.Role) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, role) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`,
		userID, string(role),
	)
	if err != nil {
		s.log.Error("upsert failed",
			slog.String("event", "user.upsert"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("upsert user %d: %w", userID, err)
	}
	s.log.Info("role set",
		slog.String("event", "user.upsert"),
		slog.Int64("user_id", userID),
		slog.String("role", string(role)),
	)
	return nil
}

// Get returns the user record or domain.ErrNotFound.
func (s *UserStore) Get(ctx context.Context, userID int64) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u,
		`SELECT user_id, role, date_added FROM users WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, nil
}

// Exists reports whether a record for userID is present.
func (s *UserStore) Exists(ctx context.Context, userID int64) (bool, error) {
	var found bool
	err := s.db.GetContext(ctx, &found,
		`SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("user exists %d: %w", userID, err)
	}
	return found, nil
}
