// Package exchange owns the exchange lifecycle: creation, acceptance,
// decline/revoke, status progression, completion payout and cancellation
// refund, plus the messaging and rating that hang off an exchange.
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/common"
	"skillswap/internal/ledger"
	"skillswap/internal/models"
	"skillswap/internal/notify"
)

// Exchange statuses. Completed and Cancelled are terminal.
const (
	StatusPending    = "Pending"
	StatusAccepted   = "Accepted"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func terminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TotalCost is the single cost computation used at creation, acceptance,
// completion and cancellation. Fractional point remainders are dropped.
func TotalCost(hourlyRate int64, durationHours float64) int64 {
	return int64(float64(hourlyRate) * durationHours)
}

// Store persists exchanges and their messages.
type Store interface {
	Create(ctx context.Context, e *models.Exchange) error
	Get(ctx context.Context, id int64) (*models.Exchange, error)
	// SetStatus writes the new status only if the current status still
	// matches from; reports whether the swap happened.
	SetStatus(ctx context.Context, id int64, from, to string) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Exchange, error)
	AddMessage(ctx context.Context, m *models.Message) error
	Messages(ctx context.Context, exchangeID int64) ([]models.Message, error)
	Ratings(ctx context.Context, exchangeID int64) ([]models.Rating, error)
}

// Users resolves user records for balance checks and display names.
type Users interface {
	Get(ctx context.Context, id int64) (*models.User, error)
}

// Ledger moves points. Debit and Credit pair the balance mutation with the
// transaction record atomically; policy (sufficient funds) stays here in the
// engine.
type Ledger interface {
	Debit(ctx context.Context, userID, amount int64, txType, description string, exchangeID *int64) (*models.Transaction, error)
	Credit(ctx context.Context, userID, amount int64, txType, description string, exchangeID *int64) (*models.Transaction, error)
	FindExchangeTransaction(ctx context.Context, exchangeID int64, txType string) (*models.Transaction, error)
}

// Aggregator records ratings and refreshes the rated user's average.
type Aggregator interface {
	Upsert(ctx context.Context, r *models.Rating) error
	Recompute(ctx context.Context, userID int64) (float64, error)
}

// Notifier delivers events. Calls are fire-and-forget; the engine never fails
// an operation because a notification could not be delivered.
type Notifier interface {
	Notify(ctx context.Context, userID int64, ntype, title, message string, data map[string]any)
	ExchangeEvent(exchangeID int64, event string, payload any)
}

type Service struct {
	store    Store
	users    Users
	ledger   Ledger
	ratings  Aggregator
	notifier Notifier
	logger   *zap.Logger
}

func NewService(store Store, users Users, lg Ledger, ratings Aggregator, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{store: store, users: users, ledger: lg, ratings: ratings, notifier: notifier, logger: logger}
}

// CreateParams carries the terms of a new exchange request.
type CreateParams struct {
	CounterpartyID   int64
	SkillID          int64
	Skill            string
	SkillLevel       string
	Description      string
	SessionType      string
	HourlyRate       int64
	ScheduledDate    *time.Time
	DurationHours    float64
	IsMutualExchange bool
}

// Create opens a new exchange in Pending. The initiator is always the
// requester (the paying side) in both creation variants; the counterparty is
// the provider. Points are only checked here, never deducted: an abandoned or
// declined request must never need a compensating refund.
func (s *Service) Create(ctx context.Context, initiatorID int64, p CreateParams) (*models.Exchange, error) {
	if p.CounterpartyID == 0 || p.SkillID == 0 || p.Skill == "" {
		return nil, fmt.Errorf("%w: counterparty, skill id and skill name are required", common.ErrInvalidArgument)
	}
	if p.CounterpartyID == initiatorID {
		return nil, fmt.Errorf("%w: cannot create an exchange with yourself", common.ErrInvalidArgument)
	}
	if p.HourlyRate < 0 {
		return nil, fmt.Errorf("%w: hourly rate cannot be negative", common.ErrInvalidArgument)
	}
	if _, err := s.users.Get(ctx, p.CounterpartyID); err != nil {
		return nil, err
	}
	if p.SkillLevel == "" {
		p.SkillLevel = "Beginner"
	}
	if p.SessionType == "" {
		p.SessionType = "Exchange"
	}
	if p.DurationHours <= 0 {
		p.DurationHours = 1.0
	}

	cost := TotalCost(p.HourlyRate, p.DurationHours)
	requester, err := s.users.Get(ctx, initiatorID)
	if err != nil {
		return nil, err
	}
	if requester.PointsBalance < cost {
		return nil, fmt.Errorf("%w: you need %d points but only have %d",
			common.ErrInsufficientFunds, cost, requester.PointsBalance)
	}

	e := &models.Exchange{
		RequesterID:      initiatorID,
		ProviderID:       p.CounterpartyID,
		SkillID:          p.SkillID,
		Skill:            p.Skill,
		SkillLevel:       p.SkillLevel,
		Description:      p.Description,
		SessionType:      p.SessionType,
		Status:           StatusPending,
		HourlyRate:       p.HourlyRate,
		ScheduledDate:    p.ScheduledDate,
		DurationHours:    p.DurationHours,
		IsMutualExchange: p.IsMutualExchange,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, e.ProviderID, notify.TypeExchangeRequest,
		"New Exchange Request",
		fmt.Sprintf("%s wants to learn %s from you", requester.Name, e.Skill),
		map[string]any{"exchangeId": e.ID, "requesterName": requester.Name, "skill": e.Skill})
	return e, nil
}

// Accept moves a Pending exchange to Accepted and debits the requester. This
// is the deduction trigger: the requester pays the full cost here, recorded as
// a Payment transaction linked to the exchange.
func (s *Service) Accept(ctx context.Context, exchangeID, actorID int64) (*models.Exchange, error) {
	e, err := s.participantExchange(ctx, exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusPending {
		return nil, fmt.Errorf("%w: exchange is no longer pending", common.ErrInvalidState)
	}

	// Re-check the balance before committing: the creation-time check may be
	// arbitrarily old. A concurrent spend between this read and the debit can
	// still push the balance negative; the ledger records it faithfully.
	cost := TotalCost(e.HourlyRate, e.DurationHours)
	requester, err := s.users.Get(ctx, e.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester.PointsBalance < cost {
		return nil, fmt.Errorf("%w: requester needs %d points but has %d",
			common.ErrInsufficientFunds, cost, requester.PointsBalance)
	}

	ok, err := s.store.SetStatus(ctx, e.ID, StatusPending, StatusAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: exchange is no longer pending", common.ErrInvalidState)
	}
	e.Status = StatusAccepted

	desc := fmt.Sprintf("Payment for accepted exchange: %s", e.Skill)
	if _, err := s.ledger.Debit(ctx, e.RequesterID, cost, ledger.TypePayment, desc, &e.ID); err != nil {
		// The status already moved; put it back rather than leave an
		// Accepted exchange that was never paid for.
		if _, revErr := s.store.SetStatus(ctx, e.ID, StatusAccepted, StatusPending); revErr != nil {
			s.logger.Error("revert accept after failed debit",
				zap.Int64("exchange_id", e.ID), zap.Error(revErr))
		}
		return nil, err
	}

	s.notifier.Notify(ctx, e.RequesterID, notify.TypePointsDeducted,
		"Points Deducted",
		fmt.Sprintf("%d points deducted for %s", cost, desc),
		map[string]any{"amount": cost, "reason": desc, "exchangeId": e.ID})

	other := s.otherParticipant(e, actorID)
	s.notifier.Notify(ctx, other, notify.TypeExchangeAccepted,
		"Exchange Accepted!",
		fmt.Sprintf("Your exchange for %s has been accepted", e.Skill),
		map[string]any{"exchangeId": e.ID, "skill": e.Skill})
	s.notifier.ExchangeEvent(e.ID, "status_changed", e)
	return e, nil
}

// Decline cancels a Pending exchange. Nothing was ever deducted, so there is
// no ledger effect.
func (s *Service) Decline(ctx context.Context, exchangeID, actorID int64) (*models.Exchange, error) {
	e, err := s.participantExchange(ctx, exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusPending {
		return nil, fmt.Errorf("%w: exchange is no longer pending", common.ErrInvalidState)
	}
	ok, err := s.store.SetStatus(ctx, e.ID, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: exchange is no longer pending", common.ErrInvalidState)
	}
	e.Status = StatusCancelled

	s.notifier.Notify(ctx, e.RequesterID, notify.TypeExchangeDeclined,
		"Exchange Declined",
		fmt.Sprintf("Your request to learn %s was declined", e.Skill),
		map[string]any{"exchangeId": e.ID, "skill": e.Skill})
	s.notifier.ExchangeEvent(e.ID, "status_changed", e)
	return e, nil
}

// Revoke cancels a Pending exchange at the requester's initiative.
func (s *Service) Revoke(ctx context.Context, exchangeID, actorID int64) (*models.Exchange, error) {
	e, err := s.store.Get(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if e.RequesterID != actorID {
		return nil, fmt.Errorf("%w: only the requester can revoke this exchange request", common.ErrForbidden)
	}
	if e.Status != StatusPending {
		return nil, fmt.Errorf("%w: only pending exchanges can be revoked", common.ErrInvalidState)
	}
	ok, err := s.store.SetStatus(ctx, e.ID, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: only pending exchanges can be revoked", common.ErrInvalidState)
	}
	e.Status = StatusCancelled

	s.notifier.Notify(ctx, e.ProviderID, notify.TypeExchangeDeclined,
		"Exchange Request Revoked",
		fmt.Sprintf("The request to learn %s was revoked by the requester", e.Skill),
		map[string]any{"exchangeId": e.ID, "skill": e.Skill, "reason": "Request was revoked by the requester"})
	s.notifier.ExchangeEvent(e.ID, "status_changed", e)
	return e, nil
}

// UpdateStatus moves an exchange to an arbitrary valid status. Completion pays
// the provider (debiting the requester first if the accept-time debit never
// happened); cancellation refunds the requester when a payment exists.
// Terminal states are closed: nothing moves an exchange out of Completed or
// Cancelled.
func (s *Service) UpdateStatus(ctx context.Context, exchangeID, actorID int64, newStatus string) (*models.Exchange, error) {
	if !validStatus(newStatus) {
		return nil, fmt.Errorf("%w: invalid status %q", common.ErrInvalidArgument, newStatus)
	}
	e, err := s.participantExchange(ctx, exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if terminal(e.Status) {
		return nil, fmt.Errorf("%w: exchange is already %s", common.ErrInvalidState, strings.ToLower(e.Status))
	}
	ok, err := s.store.SetStatus(ctx, e.ID, e.Status, newStatus)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: exchange status changed concurrently", common.ErrInvalidState)
	}
	e.Status = newStatus

	cost := TotalCost(e.HourlyRate, e.DurationHours)
	switch newStatus {
	case StatusCompleted:
		if err := s.settleCompletion(ctx, e, cost); err != nil {
			return nil, err
		}
	case StatusCancelled:
		if err := s.refundCancellation(ctx, e, cost); err != nil {
			return nil, err
		}
	}

	other := s.otherParticipant(e, actorID)
	s.notifier.Notify(ctx, other, notify.TypeStatusChange,
		"Exchange Status Update",
		fmt.Sprintf("Your exchange for %s is now %s", e.Skill, newStatus),
		map[string]any{"exchangeId": e.ID, "status": newStatus})
	s.notifier.ExchangeEvent(e.ID, "status_changed", e)
	return e, nil
}

// settleCompletion debits the requester if the accept-time Payment never
// happened, then always credits the provider the full cost.
func (s *Service) settleCompletion(ctx context.Context, e *models.Exchange, cost int64) error {
	payment, err := s.ledger.FindExchangeTransaction(ctx, e.ID, ledger.TypePayment)
	if err != nil {
		return err
	}
	if payment == nil {
		desc := fmt.Sprintf("Payment for completed exchange: %s", e.Skill)
		if _, err := s.ledger.Debit(ctx, e.RequesterID, cost, ledger.TypePayment, desc, &e.ID); err != nil {
			return err
		}
		s.notifier.Notify(ctx, e.RequesterID, notify.TypePointsDeducted,
			"Points Deducted",
			fmt.Sprintf("%d points deducted for %s", cost, desc),
			map[string]any{"amount": cost, "reason": desc, "exchangeId": e.ID})
	}

	desc := fmt.Sprintf("Completed exchange: %s", e.Skill)
	if _, err := s.ledger.Credit(ctx, e.ProviderID, cost, ledger.TypeAward, desc, &e.ID); err != nil {
		return err
	}
	s.notifier.Notify(ctx, e.ProviderID, notify.TypePointsAwarded,
		"Points Awarded!",
		fmt.Sprintf("You earned %d points for %s", cost, desc),
		map[string]any{"amount": cost, "reason": desc, "exchangeId": e.ID})
	return nil
}

// refundCancellation returns the cost to the requester, but only when a prior
// Payment transaction exists for this exchange. A never-debited exchange gets
// no refund; refunding unconditionally would mint points.
func (s *Service) refundCancellation(ctx context.Context, e *models.Exchange, cost int64) error {
	payment, err := s.ledger.FindExchangeTransaction(ctx, e.ID, ledger.TypePayment)
	if err != nil {
		return err
	}
	if payment == nil {
		return nil
	}
	desc := fmt.Sprintf("Refund for cancelled exchange: %s", e.Skill)
	if _, err := s.ledger.Credit(ctx, e.RequesterID, cost, ledger.TypeAward, desc, &e.ID); err != nil {
		return err
	}
	s.notifier.Notify(ctx, e.RequesterID, notify.TypePointsAwarded,
		"Points Refunded",
		fmt.Sprintf("You were refunded %d points for %s", cost, desc),
		map[string]any{"amount": cost, "reason": desc, "exchangeId": e.ID})
	return nil
}

// Rate records the requester's rating of the provider on a completed exchange
// and refreshes the provider's average.
func (s *Service) Rate(ctx context.Context, exchangeID, raterID, ratedUserID int64, score int, reviewText string) (*models.Rating, error) {
	e, err := s.store.Get(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if e.RequesterID != raterID {
		return nil, fmt.Errorf("%w: only the student can rate the teacher", common.ErrForbidden)
	}
	if e.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: can only rate completed exchanges", common.ErrInvalidState)
	}
	if ratedUserID != e.ProviderID {
		return nil, fmt.Errorf("%w: invalid rating target", common.ErrInvalidArgument)
	}
	if score < 1 || score > 5 {
		return nil, fmt.Errorf("%w: score must be between 1 and 5", common.ErrInvalidArgument)
	}

	r := &models.Rating{
		ExchangeID:  exchangeID,
		RaterID:     raterID,
		RatedUserID: ratedUserID,
		Score:       score,
		ReviewText:  reviewText,
	}
	if err := s.ratings.Upsert(ctx, r); err != nil {
		return nil, err
	}
	if _, err := s.ratings.Recompute(ctx, ratedUserID); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, ratedUserID, notify.TypeNewRating,
		"New Rating Received",
		fmt.Sprintf("You were rated %d/5 stars for %s", score, e.Skill),
		map[string]any{"exchangeId": exchangeID, "score": score, "skill": e.Skill})
	return r, nil
}

// SendMessage appends a chat message to the exchange and broadcasts it to the
// exchange room. Messaging is allowed on any status, terminal included, so
// history views keep working after completion.
func (s *Service) SendMessage(ctx context.Context, exchangeID, senderID int64, content, messageType string) (*models.Message, error) {
	e, err := s.participantExchange(ctx, exchangeID, senderID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is required", common.ErrInvalidArgument)
	}
	if messageType == "" {
		messageType = "text"
	}

	m := &models.Message{
		ExchangeID:  e.ID,
		SenderID:    senderID,
		Content:     content,
		MessageType: messageType,
	}
	if err := s.store.AddMessage(ctx, m); err != nil {
		return nil, err
	}
	if sender, err := s.users.Get(ctx, senderID); err == nil {
		m.SenderName = &sender.Name
		m.SenderPicture = sender.ProfilePicture
	}

	s.notifier.ExchangeEvent(e.ID, "receive_message", m)
	return m, nil
}

// Detail is an exchange with its conversation and ratings.
type Detail struct {
	models.Exchange
	Messages []models.Message `json:"messages"`
	Ratings  []models.Rating  `json:"ratings"`
}

// Get returns the full exchange view for one of its participants.
func (s *Service) Get(ctx context.Context, exchangeID, actorID int64) (*Detail, error) {
	e, err := s.participantExchange(ctx, exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.Messages(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	rs, err := s.store.Ratings(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Exchange: *e, Messages: msgs, Ratings: rs}, nil
}

// ListForUser returns every exchange where the user is requester or provider.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]models.Exchange, error) {
	return s.store.ListForUser(ctx, userID)
}

func (s *Service) participantExchange(ctx context.Context, exchangeID, actorID int64) (*models.Exchange, error) {
	e, err := s.store.Get(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if e.RequesterID != actorID && e.ProviderID != actorID {
		return nil, fmt.Errorf("%w: only participants in this exchange can act on it", common.ErrForbidden)
	}
	return e, nil
}

func (s *Service) otherParticipant(e *models.Exchange, actorID int64) int64 {
	if e.RequesterID == actorID {
		return e.ProviderID
	}
	return e.RequesterID
}
