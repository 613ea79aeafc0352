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

// NewsStore maintains institution news items.
type NewsStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewNewsStore constructs a NewsStore.
func NewNewsStore(db *sqlx.DB) *NewsStore {
	return &NewsStore{db: db, log: logger.Component("store.news")}
}

// Create inserts a news item and returns its id.
func (s *NewsStore) Create(ctx context.Context, title, description string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO news (title, description) VALUES ($1, $2) RETURNING id`,
		title, description)
	if err != nil {
		return 0, fmt.Errorf("create news: %w", err)
	}
	s.log.Info("news created",
		slog.String("event", "news.create"),
		slog.Int64("id", id),
	)
	return id, nil
}

// Get returns a news item by id or domain.ErrNotFound.
func (s *NewsStore) Get(ctx context.Context, id int64) (domain.News, error) {
	var n domain.News
	err := s.db.GetContext(ctx, &n,
		`SELECT id, title, description, date_created FROM news WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.News{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.News{}, fmt.Errorf("get news %d: %w", id, err)
	}
	return n, nil
}

// Update replaces a news item's title and description.
func (s *NewsStore) Update(ctx context.Context, id int64, title, description string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE news SET title = $2, description = $3 WHERE id = $1`,
		id, title, description)
	if err != nil {
		return fmt.Errorf("update news %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("news updated",
		slog.String("event", "news.update"),
		slog.Int64("id", id),
	)
	return nil
}

// List returns news items, newest first.
func (s *NewsStore) List(ctx context.Context) ([]domain.News, error) {
	var list []domain.News
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, title, description, date_created FROM news ORDER BY date_created DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return list, nil
}
