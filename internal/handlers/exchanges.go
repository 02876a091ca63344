package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skillswap/internal/exchange"
	"skillswap/internal/httputil"
	"skillswap/internal/middleware"
)

// ExchangeHandler exposes the exchange engine over HTTP. Handlers stay thin:
// decode, delegate, encode. All business rules live in exchange.Service.
type ExchangeHandler struct {
	svc    *exchange.Service
	logger *zap.Logger
}

func NewExchangeHandler(svc *exchange.Service, logger *zap.Logger) *ExchangeHandler {
	return &ExchangeHandler{svc: svc, logger: logger}
}

type createExchangeRequest struct {
	ProviderID       int64      `json:"providerID"`
	StudentID        int64      `json:"studentID"`
	SkillID          int64      `json:"skillID"`
	Skill            string     `json:"skill"`
	SkillLevel       string     `json:"skillLevel"`
	Description      string     `json:"description"`
	SessionType      string     `json:"sessionType"`
	HourlyRate       int64      `json:"hourlyRate"`
	ScheduledDate    *time.Time `json:"scheduledDate"`
	DurationHours    float64    `json:"durationHours"`
	IsMutualExchange bool       `json:"isMutualExchange"`
}

func (req createExchangeRequest) params(counterpartyID int64) exchange.CreateParams {
	return exchange.CreateParams{
		CounterpartyID:   counterpartyID,
		SkillID:          req.SkillID,
		Skill:            req.Skill,
		SkillLevel:       req.SkillLevel,
		Description:      req.Description,
		SessionType:      req.SessionType,
		HourlyRate:       req.HourlyRate,
		ScheduledDate:    req.ScheduledDate,
		DurationHours:    req.DurationHours,
		IsMutualExchange: req.IsMutualExchange,
	}
}

// Create opens a learner-initiated exchange: the caller pays, providerID
// teaches.
func (h *ExchangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	e, err := h.svc.Create(r.Context(), middleware.UserID(r), req.params(req.ProviderID))
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.Created(w, "Exchange request created successfully", e)
}

// CreateTeacherRequest opens a teacher-initiated exchange. The caller still
// takes the paying requester role; studentID becomes the provider.
func (h *ExchangeHandler) CreateTeacherRequest(w http.ResponseWriter, r *http.Request) {
	var req createExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	e, err := h.svc.Create(r.Context(), middleware.UserID(r), req.params(req.StudentID))
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.Created(w, "Exchange request created successfully", e)
}

func (h *ExchangeHandler) MyExchanges(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListForUser(r.Context(), middleware.UserID(r))
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "", out)
}

func (h *ExchangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeID(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.Get(r.Context(), id, middleware.UserID(r))
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "", detail)
}

func (h *ExchangeHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Accept(r.Context(), id, middleware.UserID(r))
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "Exchange accepted successfully", e)
}

func (h *ExchangeHandler) Decline(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Decline(r.Context(), id, middleware.UserID(r))
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "Exchange declined", e)
}

func (h *ExchangeHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Revoke(r.Context(), id, middleware.UserID(r))
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "Exchange request revoked", e)
}

func (h *ExchangeHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	e, err := h.svc.UpdateStatus(r.Context(), id, middleware.UserID(r), req.Status)
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "Exchange status updated", e)
}

func (h *ExchangeHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeID(w, r)
	if !ok {
		return
	}
	var req struct {
		Content     string `json:"content"`
		MessageType string `json:"messageType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	m, err := h.svc.SendMessage(r.Context(), id, middleware.UserID(r), req.Content, req.MessageType)
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.Created(w, "Message sent", m)
}

func (h *ExchangeHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeID(w, r)
	if !ok {
		return
	}
	var req struct {
		RatedUserID int64  `json:"ratedUserID"`
		Score       int    `json:"score"`
		ReviewText  string `json:"reviewText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	rating, err := h.svc.Rate(r.Context(), id, middleware.UserID(r), req.RatedUserID, req.Score, req.ReviewText)
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.Created(w, "Rating submitted successfully", rating)
}

func exchangeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Fail(w, http.StatusBadRequest, "invalid exchange id")
		return 0, false
	}
	return id, true
}
