package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/campusgate/campusbot/core/logger"
	"github.com/campusgate/campusbot/internal/domain"
)

// SubscriptionStore tracks mailing recipients per kind.
type SubscriptionStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewSubscriptionStore constructs a SubscriptionStore.
func NewSubscriptionStore(db *sqlx.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db, log: logger.Component("store.subscriptions")}
}

// Add subscribes the user to a mailing kind. Re-adding is a no-op.
func (s *SubscriptionStore) Add(ctx context.Context, userID, chatID int64, kind string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, chat_id, kind) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, kind) DO NOTHING`,
		userID, chatID, kind)
	if err != nil {
		return fmt.Errorf("subscribe %d to %s: %w", userID, kind, err)
	}
	s.log.Info("subscribed",
		slog.String("event", "subscription.add"),
		slog.Int64("user_id", userID),
		slog.String("kind", kind),
	)
	return nil
}

// Remove unsubscribes the user from a mailing kind.
func (s *SubscriptionStore) Remove(ctx context.Context, userID int64, kind string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = $1 AND kind = $2`, userID, kind)
	if err != nil {
		return fmt.Errorf("unsubscribe %d from %s: %w", userID, kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("unsubscribed",
		slog.String("event", "subscription.remove"),
		slog.Int64("user_id", userID),
		slog.String("kind", kind),
	)
	return nil
}

// IsSubscribed reports whether the user receives the mailing kind.
func (s *SubscriptionStore) IsSubscribed(ctx context.Context, userID int64, kind string) (bool, error) {
	var found bool
	err := s.db.GetContext(ctx, &found,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND kind = $2)`,
		userID, kind)
	if err != nil {
		return false, fmt.Errorf("subscription check %d %s: %w", userID, kind, err)
	}
	return found, nil
}

// List returns every subscription of the given kind.
func (s *SubscriptionStore) List(ctx context.Context, kind string) ([]domain.Subscription, error) {
	var list []domain.Subscription
	err := s.db.SelectContext(ctx, &list,
		`SELECT user_id, chat_id, kind, date_added FROM subscriptions
		 WHERE kind = $1 ORDER BY date_added`,
		kind)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions %s: %w", kind, err)
	}
	return list, nil
}
