package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skillswap/internal/common"
	"skillswap/internal/ledger"
	"skillswap/internal/models"
	"skillswap/internal/notify"
)

// In-memory doubles for the engine's dependencies. The fake ledger mirrors the
// real store's contract: every balance mutation appends a transaction, and the
// two always move together.

type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	exchanges map[int64]*models.Exchange
	messages  map[int64][]models.Message
	ratings   map[int64][]models.Rating
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exchanges: map[int64]*models.Exchange{},
		messages:  map[int64][]models.Message{},
		ratings:   map[int64][]models.Rating{},
	}
}

func (s *fakeStore) Create(_ context.Context, e *models.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	cp := *e
	s.exchanges[e.ID] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, id int64) (*models.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exchanges[id]
	if !ok {
		return nil, fmt.Errorf("exchange %d: %w", id, common.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) SetStatus(_ context.Context, id int64, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exchanges[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	return true, nil
}

func (s *fakeStore) ListForUser(_ context.Context, userID int64) ([]models.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Exchange{}
	for _, e := range s.exchanges {
		if e.RequesterID == userID || e.ProviderID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) AddMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	s.messages[m.ExchangeID] = append(s.messages[m.ExchangeID], *m)
	return nil
}

func (s *fakeStore) Messages(_ context.Context, exchangeID int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message{}, s.messages[exchangeID]...), nil
}

func (s *fakeStore) Ratings(_ context.Context, exchangeID int64) ([]models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Rating{}, s.ratings[exchangeID]...), nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func (u *fakeUsers) Get(_ context.Context, id int64) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	cp := *usr
	return &cp, nil
}

func (u *fakeUsers) setBalance(id, balance int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[id].PointsBalance = balance
}

type fakeLedger struct {
	mu    sync.Mutex
	users *fakeUsers
	txs   []models.Transaction
}

func (l *fakeLedger) move(userID, amount int64, txType, description string, exchangeID *int64) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users.mu.Lock()
	defer l.users.mu.Unlock()
	usr, ok := l.users.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, common.ErrNotFound)
	}
	usr.PointsBalance += amount
	rec := models.Transaction{
		ID:          int64(len(l.txs) + 1),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		ExchangeID:  exchangeID,
	}
	l.txs = append(l.txs, rec)
	return &rec, nil
}

func (l *fakeLedger) Debit(_ context.Context, userID, amount int64, txType, description string, exchangeID *int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", common.ErrInvalidArgument)
	}
	return l.move(userID, -amount, txType, description, exchangeID)
}

func (l *fakeLedger) Credit(_ context.Context, userID, amount int64, txType, description string, exchangeID *int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", common.ErrInvalidArgument)
	}
	return l.move(userID, amount, txType, description, exchangeID)
}

func (l *fakeLedger) FindExchangeTransaction(_ context.Context, exchangeID int64, txType string) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.txs {
		t := l.txs[i]
		if t.Type == txType && t.ExchangeID != nil && *t.ExchangeID == exchangeID {
			return &t, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) forExchange(exchangeID int64) []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.Transaction{}
	for _, t := range l.txs {
		if t.ExchangeID != nil && *t.ExchangeID == exchangeID {
			out = append(out, t)
		}
	}
	return out
}

// sum returns the signed transaction total for one user.
func (l *fakeLedger) sum(userID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, t := range l.txs {
		if t.UserID == userID {
			total += t.Amount
		}
	}
	return total
}

type fakeAggregator struct {
	mu     sync.Mutex
	users  *fakeUsers
	byExch map[int64]models.Rating
}

func (a *fakeAggregator) Upsert(_ context.Context, r *models.Rating) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r.ID = int64(len(a.byExch) + 1)
	a.byExch[r.ExchangeID] = *r
	return nil
}

func (a *fakeAggregator) Recompute(_ context.Context, userID int64) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var sum, n int
	for _, r := range a.byExch {
		if r.RatedUserID == userID {
			sum += r.Score
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = float64(sum) / float64(n)
	}
	a.users.mu.Lock()
	if u, ok := a.users.users[userID]; ok {
		u.AverageRating = avg
	}
	a.users.mu.Unlock()
	return avg, nil
}

type sentNotification struct {
	UserID int64
	Type   string
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentNotification
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, ntype, _, _ string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: ntype})
}

func (n *fakeNotifier) ExchangeEvent(_ int64, event string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) received(userID int64, ntype string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.sent {
		if s.UserID == userID && s.Type == ntype {
			return true
		}
	}
	return false
}

type testEnv struct {
	svc      *Service
	store    *fakeStore
	users    *fakeUsers
	ledger   *fakeLedger
	ratings  *fakeAggregator
	notifier *fakeNotifier
}

// newTestEnv wires the engine with two funded users. Each starting balance is
// backed by an opening Award transaction so the ledger invariant holds from
// the first assertion.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := &fakeUsers{users: map[int64]*models.User{
		1: {ID: 1, Name: "Asha", PointsBalance: 0},
		2: {ID: 2, Name: "Ben", PointsBalance: 0},
	}}
	lg := &fakeLedger{users: users}
	for id := int64(1); id <= 2; id++ {
		_, err := lg.Credit(context.Background(), id, 100, ledger.TypeAward, "Welcome bonus", nil)
		require.NoError(t, err)
	}
	env := &testEnv{
		store:    newFakeStore(),
		users:    users,
		ledger:   lg,
		ratings:  &fakeAggregator{users: users, byExch: map[int64]models.Rating{}},
		notifier: &fakeNotifier{},
	}
	env.svc = NewService(env.store, env.users, env.ledger, env.ratings, env.notifier, zap.NewNop())
	return env
}

func (env *testEnv) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	u, err := env.users.Get(context.Background(), userID)
	require.NoError(t, err)
	return u.PointsBalance
}

// requireInvariant asserts balance == sum of transaction amounts for a user.
func (env *testEnv) requireInvariant(t *testing.T, userID int64) {
	t.Helper()
	require.Equal(t, env.ledger.sum(userID), env.balance(t, userID),
		"balance must equal the signed sum of the user's transactions")
}

func (env *testEnv) createPending(t *testing.T, rate int64, hours float64) *models.Exchange {
	t.Helper()
	e, err := env.svc.Create(context.Background(), 1, CreateParams{
		CounterpartyID: 2,
		SkillID:        7,
		Skill:          "Guitar",
		HourlyRate:     rate,
		DurationHours:  hours,
	})
	require.NoError(t, err)
	return e
}

func TestTotalCostTruncatesFractions(t *testing.T) {
	require.Equal(t, int64(137), TotalCost(55, 2.5))
	require.Equal(t, int64(60), TotalCost(30, 2))
	require.Equal(t, int64(0), TotalCost(0, 3))
}

func TestCreateRejectsSelfExchange(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Create(context.Background(), 1, CreateParams{
		CounterpartyID: 1, SkillID: 7, Skill: "Guitar",
	})
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestCreateRejectsInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Create(context.Background(), 1, CreateParams{
		CounterpartyID: 2, SkillID: 7, Skill: "Guitar",
		HourlyRate: 200, DurationHours: 1,
	})
	require.ErrorIs(t, err, common.ErrInsufficientFunds)
}

func TestCreateRejectsUnknownCounterparty(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Create(context.Background(), 1, CreateParams{
		CounterpartyID: 99, SkillID: 7, Skill: "Guitar",
	})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateAppliesDefaultsAndSkipsLedger(t *testing.T) {
	env := newTestEnv(t)
	e, err := env.svc.Create(context.Background(), 1, CreateParams{
		CounterpartyID: 2, SkillID: 7, Skill: "Guitar", HourlyRate: 30,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, e.Status)
	require.Equal(t, "Beginner", e.SkillLevel)
	require.Equal(t, "Exchange", e.SessionType)
	require.Equal(t, 1.0, e.DurationHours)

	// Points are checked at creation, never moved.
	require.Equal(t, int64(100), env.balance(t, 1))
	require.Empty(t, env.ledger.forExchange(e.ID))
	require.True(t, env.notifier.received(2, notify.TypeExchangeRequest))
}

func TestAcceptDebitsRequester(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)

	accepted, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, accepted.Status)
	require.Equal(t, int64(40), env.balance(t, 1))

	txs := env.ledger.forExchange(e.ID)
	require.Len(t, txs, 1)
	require.Equal(t, ledger.TypePayment, txs[0].Type)
	require.Equal(t, int64(-60), txs[0].Amount)
	require.Equal(t, int64(1), txs[0].UserID)

	require.True(t, env.notifier.received(1, notify.TypePointsDeducted))
	require.True(t, env.notifier.received(1, notify.TypeExchangeAccepted))
	env.requireInvariant(t, 1)
	env.requireInvariant(t, 2)
}

func TestAcceptRechecksBalance(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)

	// Balance drained between creation and acceptance.
	env.users.setBalance(1, 10)

	_, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.ErrorIs(t, err, common.ErrInsufficientFunds)

	got, err := env.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
	require.Empty(t, env.ledger.forExchange(e.ID))
}

func TestAcceptRequiresPending(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)
	_, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.NoError(t, err)

	_, err = env.svc.Accept(context.Background(), e.ID, 2)
	require.ErrorIs(t, err, common.ErrInvalidState)

	// Still exactly one payment.
	require.Len(t, env.ledger.forExchange(e.ID), 1)
}

func TestAcceptForbiddenForOutsiders(t *testing.T) {
	env := newTestEnv(t)
	env.users.users[3] = &models.User{ID: 3, Name: "Cam", PointsBalance: 100}
	e := env.createPending(t, 30, 2)

	_, err := env.svc.Accept(context.Background(), e.ID, 3)
	require.ErrorIs(t, err, common.ErrForbidden)
}

func TestCompletionCreditsProviderWithoutSecondDebit(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)
	_, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.NoError(t, err)

	done, err := env.svc.UpdateStatus(context.Background(), e.ID, 2, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)

	require.Equal(t, int64(40), env.balance(t, 1))
	require.Equal(t, int64(160), env.balance(t, 2))

	payments := 0
	for _, tx := range env.ledger.forExchange(e.ID) {
		if tx.Type == ledger.TypePayment {
			payments++
		}
	}
	require.Equal(t, 1, payments, "the accept-time debit must not repeat at completion")
	require.True(t, env.notifier.received(2, notify.TypePointsAwarded))
	env.requireInvariant(t, 1)
	env.requireInvariant(t, 2)
}

func TestCompletionDebitsWhenAcceptNeverPaid(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)

	// Straight to In Progress without accept: no payment exists yet, so
	// completion must collect it before paying the provider.
	_, err := env.svc.UpdateStatus(context.Background(), e.ID, 1, StatusInProgress)
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(context.Background(), e.ID, 1, StatusCompleted)
	require.NoError(t, err)

	require.Equal(t, int64(40), env.balance(t, 1))
	require.Equal(t, int64(160), env.balance(t, 2))
	env.requireInvariant(t, 1)
	env.requireInvariant(t, 2)
}

func TestDeclineLeavesNoTransactions(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)

	declined, err := env.svc.Decline(context.Background(), e.ID, 2)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, declined.Status)

	require.Equal(t, int64(100), env.balance(t, 1))
	require.Empty(t, env.ledger.forExchange(e.ID))
	require.True(t, env.notifier.received(1, notify.TypeExchangeDeclined))
}

func TestCancelAfterAcceptRefundsRequester(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)
	_, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.NoError(t, err)
	require.Equal(t, int64(40), env.balance(t, 1))

	_, err = env.svc.UpdateStatus(context.Background(), e.ID, 1, StatusCancelled)
	require.NoError(t, err)

	// Net balance restored, but as a debit plus a refund credit, never by
	// erasing the original entry.
	require.Equal(t, int64(100), env.balance(t, 1))
	txs := env.ledger.forExchange(e.ID)
	require.Len(t, txs, 2)
	require.Equal(t, ledger.TypePayment, txs[0].Type)
	require.Equal(t, ledger.TypeAward, txs[1].Type)
	require.Equal(t, int64(60), txs[1].Amount)
	env.requireInvariant(t, 1)
}

func TestCancelWithoutPaymentMintsNothing(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)

	_, err := env.svc.UpdateStatus(context.Background(), e.ID, 1, StatusCancelled)
	require.NoError(t, err)

	require.Equal(t, int64(100), env.balance(t, 1))
	require.Empty(t, env.ledger.forExchange(e.ID))
}

func TestTerminalStatesAreClosed(t *testing.T) {
	env := newTestEnv(t)

	for _, final := range []string{StatusCompleted, StatusCancelled} {
		e := env.createPending(t, 30, 2)
		_, err := env.svc.Accept(context.Background(), e.ID, 2)
		require.NoError(t, err)
		_, err = env.svc.UpdateStatus(context.Background(), e.ID, 1, final)
		require.NoError(t, err)

		for _, next := range []string{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled} {
			_, err := env.svc.UpdateStatus(context.Background(), e.ID, 1, next)
			require.ErrorIs(t, err, common.ErrInvalidState, "no transition may leave %s", final)
		}
		_, err = env.svc.Accept(context.Background(), e.ID, 2)
		require.ErrorIs(t, err, common.ErrInvalidState)
		_, err = env.svc.Decline(context.Background(), e.ID, 2)
		require.ErrorIs(t, err, common.ErrInvalidState)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)
	_, err := env.svc.UpdateStatus(context.Background(), e.ID, 1, "Paused")
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestRevokeIsRequesterOnly(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)

	_, err := env.svc.Revoke(context.Background(), e.ID, 2)
	require.ErrorIs(t, err, common.ErrForbidden)

	revoked, err := env.svc.Revoke(context.Background(), e.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, revoked.Status)
	require.Empty(t, env.ledger.forExchange(e.ID))
}

func TestRevokeOnlyWhilePending(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)
	_, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.NoError(t, err)

	_, err = env.svc.Revoke(context.Background(), e.ID, 1)
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func completeExchange(t *testing.T, env *testEnv, rate int64, hours float64) *models.Exchange {
	t.Helper()
	e := env.createPending(t, rate, hours)
	_, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(context.Background(), e.ID, 2, StatusCompleted)
	require.NoError(t, err)
	return e
}

func TestRateDirectionality(t *testing.T) {
	env := newTestEnv(t)
	e := completeExchange(t, env, 10, 1)

	_, err := env.svc.Rate(context.Background(), e.ID, 2, 1, 5, "")
	require.ErrorIs(t, err, common.ErrForbidden, "the provider cannot rate")

	_, err = env.svc.Rate(context.Background(), e.ID, 1, 1, 5, "")
	require.ErrorIs(t, err, common.ErrInvalidArgument, "only the provider can be rated")

	_, err = env.svc.Rate(context.Background(), e.ID, 1, 2, 0, "")
	require.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = env.svc.Rate(context.Background(), e.ID, 1, 2, 6, "")
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	r, err := env.svc.Rate(context.Background(), e.ID, 1, 2, 5, "great teacher")
	require.NoError(t, err)
	require.Equal(t, 5, r.Score)
	require.True(t, env.notifier.received(2, notify.TypeNewRating))
}

func TestRateRequiresCompletion(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 10, 1)
	_, err := env.svc.Rate(context.Background(), e.ID, 1, 2, 4, "")
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func TestRatingAggregationAcrossExchanges(t *testing.T) {
	env := newTestEnv(t)
	e1 := completeExchange(t, env, 10, 1)
	e2 := completeExchange(t, env, 10, 1)

	_, err := env.svc.Rate(context.Background(), e1.ID, 1, 2, 3, "")
	require.NoError(t, err)
	_, err = env.svc.Rate(context.Background(), e2.ID, 1, 2, 5, "")
	require.NoError(t, err)

	provider, err := env.users.Get(context.Background(), 2)
	require.NoError(t, err)
	require.InDelta(t, 4.0, provider.AverageRating, 1e-9)
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	env.users.users[3] = &models.User{ID: 3, Name: "Cam", PointsBalance: 100}
	e := env.createPending(t, 10, 1)

	_, err := env.svc.SendMessage(context.Background(), e.ID, 3, "hi", "")
	require.ErrorIs(t, err, common.ErrForbidden)

	_, err = env.svc.SendMessage(context.Background(), e.ID, 1, "   ", "")
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	m, err := env.svc.SendMessage(context.Background(), e.ID, 1, "see you at 5", "")
	require.NoError(t, err)
	require.Equal(t, "text", m.MessageType)
	require.NotNil(t, m.SenderName)
	require.Equal(t, "Asha", *m.SenderName)
}

func TestMessagingSurvivesTerminalStates(t *testing.T) {
	env := newTestEnv(t)
	e := completeExchange(t, env, 10, 1)

	_, err := env.svc.SendMessage(context.Background(), e.ID, 2, "thanks again", "")
	require.NoError(t, err)

	detail, err := env.svc.Get(context.Background(), e.ID, 1)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 1)
}

func TestGetIsParticipantOnly(t *testing.T) {
	env := newTestEnv(t)
	env.users.users[3] = &models.User{ID: 3, Name: "Cam", PointsBalance: 100}
	e := env.createPending(t, 10, 1)

	_, err := env.svc.Get(context.Background(), e.ID, 3)
	require.ErrorIs(t, err, common.ErrForbidden)

	_, err = env.svc.Get(context.Background(), 999, 1)
	require.ErrorIs(t, err, common.ErrNotFound)
}

// The ledger invariant holds across an arbitrary mixed run of lifecycle
// operations.
func TestLedgerInvariantAcrossLifecycles(t *testing.T) {
	env := newTestEnv(t)

	// Completed exchange.
	completeExchange(t, env, 15, 2)

	// Accepted then cancelled.
	e := env.createPending(t, 20, 1)
	_, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(context.Background(), e.ID, 2, StatusCancelled)
	require.NoError(t, err)

	// Declined while pending.
	e = env.createPending(t, 40, 1)
	_, err = env.svc.Decline(context.Background(), e.ID, 2)
	require.NoError(t, err)

	for id := int64(1); id <= 2; id++ {
		env.requireInvariant(t, id)
	}
	require.Equal(t, int64(70), env.balance(t, 1))
	require.Equal(t, int64(130), env.balance(t, 2))
}

func TestAcceptRevertsStatusWhenDebitFails(t *testing.T) {
	env := newTestEnv(t)
	e := env.createPending(t, 30, 2)

	failing := &failingLedger{fakeLedger: env.ledger}
	env.svc = NewService(env.store, env.users, failing, env.ratings, env.notifier, zap.NewNop())

	_, err := env.svc.Accept(context.Background(), e.ID, 2)
	require.Error(t, err)

	got, err := env.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status, "a failed debit must not leave the exchange accepted")
}

type failingLedger struct {
	*fakeLedger
}

func (l *failingLedger) Debit(context.Context, int64, int64, string, string, *int64) (*models.Transaction, error) {
	return nil, errors.New("ledger unavailable")
}
