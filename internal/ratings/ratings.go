// Package ratings stores exchange ratings and keeps users' denormalized
// average in step with them.
package ratings

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"skillswap/internal/models"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Upsert inserts the rating, replacing any prior rating for the same exchange.
func (s *Store) Upsert(ctx context.Context, r *models.Rating) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO ratings (exchange_id, rater_id, rated_user_id, score, review_text)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (exchange_id)
		 DO UPDATE SET rater_id = EXCLUDED.rater_id, rated_user_id = EXCLUDED.rated_user_id,
		               score = EXCLUDED.score, review_text = EXCLUDED.review_text
		 RETURNING id, created_at`,
		r.ExchangeID, r.RaterID, r.RatedUserID, r.Score, r.ReviewText).
		Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// Recompute recalculates the user's average rating from all ratings they have
// received and writes it back to the user row. Returns the fresh average
// (0 when the user has no ratings).
func (s *Store) Recompute(ctx context.Context, userID int64) (float64, error) {
	var avg float64
	err := s.db.GetContext(ctx, &avg,
		`SELECT COALESCE(AVG(score), 0) FROM ratings WHERE rated_user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET average_rating = $2, updated_at = NOW() WHERE id = $1`,
		userID, avg); err != nil {
		return 0, fmt.Errorf("store average rating: %w", err)
	}
	return avg, nil
}

// ForUser returns ratings received by the user, newest first, with the rater's
// display name joined in.
func (s *Store) ForUser(ctx context.Context, userID int64) ([]models.Rating, error) {
	out := []models.Rating{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT r.id, r.exchange_id, r.rater_id, r.rated_user_id, r.score, r.review_text, r.created_at,
		        u.name AS rater_name
		 FROM ratings r JOIN users u ON u.id = r.rater_id
		 WHERE r.rated_user_id = $1
		 ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ratings for user: %w", err)
	}
	return out, nil
}
