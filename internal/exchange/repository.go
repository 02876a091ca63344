package exchange

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"skillswap/internal/common"
	"skillswap/internal/models"
)

// Repository is the Postgres-backed Store.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, e *models.Exchange) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO exchanges (requester_id, provider_id, skill_id, skill, skill_level, description,
		                        session_type, status, hourly_rate, scheduled_date, duration_hours, is_mutual_exchange)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		e.RequesterID, e.ProviderID, e.SkillID, e.Skill, e.SkillLevel, e.Description,
		e.SessionType, e.Status, e.HourlyRate, e.ScheduledDate, e.DurationHours, e.IsMutualExchange).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create exchange: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*models.Exchange, error) {
	var e models.Exchange
	err := r.db.GetContext(ctx, &e,
		`SELECT e.*, requester.name AS requester_name, provider.name AS provider_name
		 FROM exchanges e
		 JOIN users requester ON requester.id = e.requester_id
		 JOIN users provider ON provider.id = e.provider_id
		 WHERE e.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exchange %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get exchange: %w", err)
	}
	return &e, nil
}

// SetStatus is a compare-and-swap on the status column: concurrent transitions
// on the same exchange lose cleanly instead of silently overwriting.
func (r *Repository) SetStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE exchanges SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, fmt.Errorf("set exchange status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set exchange status: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]models.Exchange, error) {
	out := []models.Exchange{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT e.*, requester.name AS requester_name, provider.name AS provider_name
		 FROM exchanges e
		 JOIN users requester ON requester.id = e.requester_id
		 JOIN users provider ON provider.id = e.provider_id
		 WHERE e.requester_id = $1 OR e.provider_id = $1
		 ORDER BY e.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	return out, nil
}

func (r *Repository) AddMessage(ctx context.Context, m *models.Message) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (exchange_id, sender_id, content, message_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		m.ExchangeID, m.SenderID, m.Content, m.MessageType).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

func (r *Repository) Messages(ctx context.Context, exchangeID int64) ([]models.Message, error) {
	out := []models.Message{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT m.id, m.exchange_id, m.sender_id, m.content, m.message_type, m.created_at,
		        u.name AS sender_name, u.profile_picture AS sender_picture
		 FROM messages m JOIN users u ON u.id = m.sender_id
		 WHERE m.exchange_id = $1
		 ORDER BY m.created_at ASC, m.id ASC`, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

func (r *Repository) Ratings(ctx context.Context, exchangeID int64) ([]models.Rating, error) {
	out := []models.Rating{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT r.id, r.exchange_id, r.rater_id, r.rated_user_id, r.score, r.review_text, r.created_at,
		        u.name AS rater_name
		 FROM ratings r JOIN users u ON u.id = r.rater_id
		 WHERE r.exchange_id = $1
		 ORDER BY r.created_at DESC`, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("list exchange ratings: %w", err)
	}
	return out, nil
}

// IsParticipant backs the websocket room authorization check.
func (r *Repository) IsParticipant(ctx context.Context, exchangeID, userID int64) (bool, error) {
	var x int
	err := r.db.QueryRowxContext(ctx,
		`SELECT 1 FROM exchanges WHERE id = $1 AND (requester_id = $2 OR provider_id = $2)`,
		exchangeID, userID).Scan(&x)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UserDirectory resolves users for the engine's balance checks and display
// name lookups.
type UserDirectory struct {
	db *sqlx.DB
}

func NewUserDirectory(db *sqlx.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) Get(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := d.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
