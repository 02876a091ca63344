// Package jobs runs scheduled background work.
package jobs

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"skillswap/internal/models"
	"skillswap/internal/notify"
)

// Scheduler sends session reminders for exchanges scheduled in the next 24
// hours. Each exchange is reminded once; reminded_at marks it done.
type Scheduler struct {
	cron     *cron.Cron
	db       *sqlx.DB
	notifier *notify.Service
	logger   *zap.Logger
}

func NewScheduler(db *sqlx.DB, notifier *notify.Service, logger *zap.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), db: db, notifier: notifier, logger: logger}
}

// Start registers the reminder job and launches the cron loop.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.SendReminders(ctx); err != nil {
			s.logger.Error("send reminders", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	s.cron.Start()
	s.logger.Info("reminder scheduler started", zap.String("schedule", schedule))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// SendReminders notifies both parties of upcoming accepted or in-progress
// sessions and marks the exchanges reminded.
func (s *Scheduler) SendReminders(ctx context.Context) error {
	due := []models.Exchange{}
	err := s.db.SelectContext(ctx, &due,
		`SELECT e.*, requester.name AS requester_name, provider.name AS provider_name
		 FROM exchanges e
		 JOIN users requester ON requester.id = e.requester_id
		 JOIN users provider ON provider.id = e.provider_id
		 WHERE e.status IN ('Accepted', 'In Progress')
		   AND e.scheduled_date IS NOT NULL
		   AND e.scheduled_date BETWEEN NOW() AND NOW() + INTERVAL '24 hours'
		   AND e.reminded_at IS NULL`)
	if err != nil {
		return fmt.Errorf("find upcoming exchanges: %w", err)
	}

	for _, e := range due {
		when := e.ScheduledDate.Format("2006-01-02 15:04")
		data := map[string]any{"exchangeId": e.ID, "skill": e.Skill, "scheduledDate": when}

		partner := ""
		if e.ProviderName != nil {
			partner = *e.ProviderName
		}
		s.notifier.Notify(ctx, e.RequesterID, notify.TypeReminder, "Exchange Reminder",
			fmt.Sprintf("Your %s session with %s is scheduled for %s", e.Skill, partner, when), data)

		partner = ""
		if e.RequesterName != nil {
			partner = *e.RequesterName
		}
		s.notifier.Notify(ctx, e.ProviderID, notify.TypeReminder, "Exchange Reminder",
			fmt.Sprintf("Your %s session with %s is scheduled for %s", e.Skill, partner, when), data)

		if _, err := s.db.ExecContext(ctx,
			`UPDATE exchanges SET reminded_at = NOW() WHERE id = $1`, e.ID); err != nil {
			s.logger.Error("mark exchange reminded", zap.Int64("exchange_id", e.ID), zap.Error(err))
		}
	}
	return nil
}
