package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Location       string    `db:"location" json:"location"`
	Bio            string    `db:"bio" json:"bio"`
	ProfilePicture *string   `db:"profile_picture" json:"profile_picture,omitempty"`
	PointsBalance  int64     `db:"points_balance" json:"points_balance"`
	AverageRating  float64   `db:"average_rating" json:"average_rating"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type Skill struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Category   string `db:"category" json:"category"`
	SkillLevel string `db:"skill_level" json:"skill_level"`
	HourlyRate int64  `db:"hourly_rate" json:"hourly_rate"`
}

// SkillOffering is a (user, skill) pairing; one row per pair, replaced on
// re-add.
type SkillOffering struct {
	ID          int64  `db:"id" json:"id"`
	UserID      int64  `db:"user_id" json:"user_id"`
	SkillID     int64  `db:"skill_id" json:"skill_id"`
	SkillLevel  string `db:"skill_level" json:"skill_level"`
	HourlyRate  int64  `db:"hourly_rate" json:"hourly_rate"`
	Description string `db:"description" json:"description"`
	SkillName   string `db:"skill_name" json:"skill_name,omitempty"`
	Category    string `db:"category" json:"category,omitempty"`
}

type Exchange struct {
	ID               int64      `db:"id" json:"id"`
	RequesterID      int64      `db:"requester_id" json:"requester_id"`
	ProviderID       int64      `db:"provider_id" json:"provider_id"`
	SkillID          int64      `db:"skill_id" json:"skill_id"`
	Skill            string     `db:"skill" json:"skill"`
	SkillLevel       string     `db:"skill_level" json:"skill_level"`
	Description      string     `db:"description" json:"description"`
	SessionType      string     `db:"session_type" json:"session_type"`
	Status           string     `db:"status" json:"status"`
	HourlyRate       int64      `db:"hourly_rate" json:"hourly_rate"`
	ScheduledDate    *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	DurationHours    float64    `db:"duration_hours" json:"duration_hours"`
	IsMutualExchange bool       `db:"is_mutual_exchange" json:"is_mutual_exchange"`
	RemindedAt       *time.Time `db:"reminded_at" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	// Joined for list and detail views.
	RequesterName *string `db:"requester_name" json:"requester_name,omitempty"`
	ProviderName  *string `db:"provider_name" json:"provider_name,omitempty"`
}

type Message struct {
	ID          int64     `db:"id" json:"id"`
	ExchangeID  int64     `db:"exchange_id" json:"exchange_id"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	Content     string    `db:"content" json:"content"`
	MessageType string    `db:"message_type" json:"message_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	SenderName    *string `db:"sender_name" json:"sender_name,omitempty"`
	SenderPicture *string `db:"sender_picture" json:"sender_picture,omitempty"`
}

// Rating is keyed by exchange: the requester rates the provider at most once,
// insert-or-replace semantics.
type Rating struct {
	ID          int64     `db:"id" json:"id"`
	ExchangeID  int64     `db:"exchange_id" json:"exchange_id"`
	RaterID     int64     `db:"rater_id" json:"rater_id"`
	RatedUserID int64     `db:"rated_user_id" json:"rated_user_id"`
	Score       int       `db:"score" json:"score"`
	ReviewText  string    `db:"review_text" json:"review_text"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	RaterName *string `db:"rater_name" json:"rater_name,omitempty"`
}

// Transaction is an immutable ledger entry. The amount sign encodes direction:
// negative for debits, positive for credits.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Type        string    `db:"transaction_type" json:"transaction_type"`
	Description string    `db:"description" json:"description"`
	ExchangeID  *int64    `db:"exchange_id" json:"exchange_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Notification struct {
	ID        int64          `db:"id" json:"id"`
	UserID    int64          `db:"user_id" json:"user_id"`
	Type      string         `db:"type" json:"type"`
	Title     string         `db:"title" json:"title"`
	Message   string         `db:"message" json:"message"`
	Data      types.JSONText `db:"data" json:"data"`
	IsRead    bool           `db:"is_read" json:"is_read"`
	ReadAt    *time.Time     `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
