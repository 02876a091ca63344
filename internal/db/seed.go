package db

import (
	"context"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Seed inserts a small skill catalog and two demo accounts. It is a no-op on
// a database that already has users, so it is safe to run on every startup.
func Seed(db *sqlx.DB, startingBalance int64) error {
	ctx := context.Background()

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	skills := []struct {
		name, category, level string
		rate                  int64
	}{
		{"Programming", "Technology", "Intermediate", 50},
		{"Cooking", "Lifestyle", "Beginner", 20},
		{"Photography", "Arts", "Advanced", 40},
		{"Guitar", "Music", "Intermediate", 30},
		{"Spanish Language", "Language", "Beginner", 25},
		{"Yoga", "Fitness", "Intermediate", 35},
		{"Web Design", "Technology", "Advanced", 55},
		{"Gardening", "Lifestyle", "Beginner", 15},
	}
	for _, s := range skills {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO skills (name, category, skill_level, hourly_rate) VALUES ($1, $2, $3, $4)`,
			s.name, s.category, s.level, s.rate); err != nil {
			return err
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	demo := []struct {
		name, email, location, bio string
	}{
		{"Demo User", "demo@example.com", "Stockholm, Sweden", "Passionate about technology and learning new skills!"},
		{"Test User", "test@test.com", "Gothenburg, Sweden", "Love cooking and photography. Always eager to share knowledge."},
	}
	for _, u := range demo {
		tx, err := db.Beginx()
		if err != nil {
			return err
		}
		var userID int64
		if err := tx.QueryRowxContext(ctx,
			`INSERT INTO users (name, email, password_hash, location, bio, points_balance) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			u.name, u.email, string(hashed), u.location, u.bio, startingBalance).Scan(&userID); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (user_id, amount, transaction_type, description) VALUES ($1, $2, 'Award', 'Welcome bonus')`,
			userID, startingBalance); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
