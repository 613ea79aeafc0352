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

// EventStore maintains upcoming institution events.
type EventStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewEventStore constructs an EventStore.
func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db, log: logger.Component("store.events")}
}

// Create inserts an event and returns its id. EventDate is the operator's
// DD.MM.YYYY string, stored verbatim.
func (s *EventStore) Create(ctx context.Context, e domain.Event) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO events (title, description, event_date, location)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		e.Title, e.Description, e.EventDate, e.Location)
	if err != nil {
		return 0, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("event created",
		slog.String("event", "event.create"),
		slog.Int64("id", id),
	)
	return id, nil
}

// Get returns an event by id or domain.ErrNotFound.
func (s *EventStore) Get(ctx context.Context, id int64) (domain.Event, error) {
	var e domain.Event
	err := s.db.GetContext(ctx, &e,
		`SELECT id, title, description, event_date, location, date_created
		 FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

// Update replaces every editable field of an event.
func (s *EventStore) Update(ctx context.Context, e domain.Event) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title = $2, description = $3, event_date = $4, location = $5
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.EventDate, e.Location)
	if err != nil {
		return fmt.Errorf("update event %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("event updated",
		slog.String("event", "event.update"),
		slog.Int64("id", e.ID),
	)
	return nil
}

// Delete removes an event.
func (s *EventStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("event deleted",
		slog.String("event", "event.delete"),
		slog.Int64("id", id),
	)
	return nil
}

// List returns events in creation order.
func (s *EventStore) List(ctx context.Context) ([]domain.Event, error) {
	var list []domain.Event
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, title, description, event_date, location, date_created
		 FROM events ORDER BY date_created, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return list, nil
}
