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

// CertificateStore holds study certificate orders awaiting dean review.
type CertificateStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewCertificateStore constructs a CertificateStore.
func NewCertificateStore(db *sqlx.DB) *CertificateStore {
	return &CertificateStore{db: db, log: logger.Component("store.certificates")}
}

// Create files a certificate order and returns its id.
func (s *CertificateStore) Create(ctx context.Context, r domain.CertificateRequest) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO certificate_requests (user_id, username, full_name, group_name, count)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.UserID, r.Username, r.FullName, r.GroupName, r.Count)
	if err != nil {
		return 0, fmt.Errorf("create certificate request: %w", err)
	}
	s.log.Info("request filed",
		slog.String("event", "certificate.create"),
		slog.Int64("id", id),
		slog.Int64("user_id", r.UserID),
		slog.Int("count", r.Count),
	)
	return id, nil
}

// Get returns the request by id or domain.ErrNotFound.
func (s *CertificateStore) Get(ctx context.Context, id int64) (domain.CertificateRequest, error) {
	var r domain.CertificateRequest
	err := s.db.GetContext(ctx, &r,
		`SELECT id, user_id, username, full_name, group_name, count, date_created
		 FROM certificate_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CertificateRequest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CertificateRequest{}, fmt.Errorf("get certificate request %d: %w", id, err)
	}
	return r, nil
}

// List returns all pending requests, oldest first.
func (s *CertificateStore) List(ctx context.Context) ([]domain.CertificateRequest, error) {
	var list []domain.CertificateRequest
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, user_id, username, full_name, group_name, count, date_created
		 FROM certificate_requests ORDER BY date_created, id`)
	if err != nil {
		return nil, fmt.Errorf("list certificate requests: %w", err)
	}
	return list, nil
}

// Delete removes a reviewed request. Returns domain.ErrNotFound when absent.
func (s *CertificateStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM certificate_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete certificate request %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("request removed",
		slog.String("event", "certificate.delete"),
		slog.Int64("id", id),
	)
	return nil
}
