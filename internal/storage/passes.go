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

// PassStore holds dormitory pass applications awaiting review.
type PassStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewPassStore constructs a PassStore.
func NewPassStore(db *sqlx.DB) *PassStore {
	return &PassStore{db: db, log: logger.Component("store.passes")}
}

// Create files a pass application and returns its id. Birthday is persisted
// exactly as the applicant entered it.
func (s *PassStore) Create(ctx context.Context, p domain.PassRequest) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO pass_requests (user_id, chat_id, username, user_group, date_of_birthday, reason)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.UserID, p.ChatID, p.Username, p.GroupName, p.Birthday, p.Reason)
	if err != nil {
		return 0, fmt.Errorf("create pass request: %w", err)
	}
	s.log.Info("pass requested",
		slog.String("event", "pass.create"),
		slog.Int64("id", id),
		slog.Int64("user_id", p.UserID),
	)
	return id, nil
}

// Get returns the pass request by id or domain.ErrNotFound.
func (s *PassStore) Get(ctx context.Context, id int64) (domain.PassRequest, error) {
	var p domain.PassRequest
	err := s.db.GetContext(ctx, &p,
		`SELECT id, user_id, chat_id, username, user_group, date_of_birthday, reason, submission_date
		 FROM pass_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PassRequest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PassRequest{}, fmt.Errorf("get pass request %d: %w", id, err)
	}
	return p, nil
}

// List returns all open pass requests, oldest first.
func (s *PassStore) List(ctx context.Context) ([]domain.PassRequest, error) {
	var list []domain.PassRequest
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, user_id, chat_id, username, user_group, date_of_birthday, reason, submission_date
		 FROM pass_requests ORDER BY submission_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list pass requests: %w", err)
	}
	return list, nil
}

// Delete removes a reviewed pass request. Returns domain.ErrNotFound when absent.
func (s *PassStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pass_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pass request %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("pass removed",
		slog.String("event", "pass.delete"),
		slog.Int64("id", id),
	)
	return nil
}
