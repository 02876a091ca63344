// Package notify persists user notifications and pushes them to live
// subscribers. Dispatch is best-effort: a failure here is logged and never
// rolls back the operation that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"skillswap/internal/common"
	"skillswap/internal/models"
	"skillswap/internal/ws"
)

// Notification types emitted by the exchange engine and rating aggregator.
const (
	TypeExchangeRequest  = "exchange_request"
	TypeExchangeAccepted = "exchange_accepted"
	TypeExchangeDeclined = "exchange_declined"
	TypeStatusChange     = "exchange_status_change"
	TypePointsDeducted   = "points_deducted"
	TypePointsAwarded    = "points_awarded"
	TypeNewRating        = "new_rating"
	TypeReminder         = "exchange_reminder"
)

type Service struct {
	db     *sqlx.DB
	hub    *ws.Hub
	logger *zap.Logger
}

func NewService(db *sqlx.DB, hub *ws.Hub, logger *zap.Logger) *Service {
	return &Service{db: db, hub: hub, logger: logger}
}

// Notify stores the notification and pushes it to the user's room.
func (s *Service) Notify(ctx context.Context, userID int64, ntype, title, message string, data map[string]any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}
	var n models.Notification
	err = s.db.QueryRowxContext(ctx,
		`INSERT INTO notifications (user_id, type, title, message, data)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, type, title, message, data, is_read, read_at, created_at`,
		userID, ntype, title, message, payload).StructScan(&n)
	if err != nil {
		s.logger.Error("store notification",
			zap.Int64("user_id", userID), zap.String("type", ntype), zap.Error(err))
		return
	}
	s.hub.Broadcast(ws.UserRoom(userID), "notification", n)
}

// ExchangeEvent pushes an event to everyone watching an exchange room.
func (s *Service) ExchangeEvent(exchangeID int64, event string, payload any) {
	s.hub.Broadcast(ws.ExchangeRoom(exchangeID), event, payload)
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	out := []models.Notification{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, type, title, message, data, is_read, read_at, created_at
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// MarkRead flips one notification to read; scoped to the owner so a user can
// never touch someone else's notifications.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW()
		 WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %d: %w", id, common.ErrNotFound)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW()
		 WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}
