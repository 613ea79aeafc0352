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

// ComplaintStore holds dormitory complaints awaiting review.
type ComplaintStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewComplaintStore constructs a ComplaintStore.
func NewComplaintStore(db *sqlx.DB) *ComplaintStore {
	return &ComplaintStore{db: db, log: logger.Component("store.complaints")}
}

// Create files a complaint and returns its id.
func (s *ComplaintStore) Create(ctx context.Context, c domain.Complaint) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO complaints (user_id, chat_id, username, description, number_room)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.UserID, c.ChatID, c.Username, c.Description, c.Room)
	if err != nil {
		return 0, fmt.Errorf("create complaint: %w", err)
	}
	s.log.Info("complaint filed",
		slog.String("event", "complaint.create"),
		slog.Int64("id", id),
		slog.Int64("user_id", c.UserID),
	)
	return id, nil
}

// Get returns the complaint by id or domain.ErrNotFound.
func (s *ComplaintStore) Get(ctx context.Context, id int64) (domain.Complaint, error) {
	var c domain.Complaint
	err := s.db.GetContext(ctx, &c,
		`SELECT id, user_id, chat_id, username, description, number_room, date_created
		 FROM complaints WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Complaint{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Complaint{}, fmt.Errorf("get complaint %d: %w", id, err)
	}
	return c, nil
}

// List returns all open complaints, oldest first.
func (s *ComplaintStore) List(ctx context.Context) ([]domain.Complaint, error) {
	var list []domain.Complaint
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, user_id, chat_id, username, description, number_room, date_created
		 FROM complaints ORDER BY date_created, id`)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return list, nil
}

// Delete removes a reviewed complaint. Returns domain.ErrNotFound when absent.
func (s *ComplaintStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM complaints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete complaint %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("complaint removed",
		slog.String("event", "complaint.delete"),
		slog.Int64("id", id),
	)
	return nil
}
