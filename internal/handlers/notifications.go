package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skillswap/internal/httputil"
	"skillswap/internal/middleware"
	"skillswap/internal/notify"
)

type NotificationHandler struct {
	svc    *notify.Service
	logger *zap.Logger
}

func NewNotificationHandler(svc *notify.Service, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	out, err := h.svc.List(r.Context(), middleware.UserID(r), limit)
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "", out)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), middleware.UserID(r))
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "", map[string]int{"count": n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Fail(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.svc.MarkRead(r.Context(), id, middleware.UserID(r)); err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "Notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkAllRead(r.Context(), middleware.UserID(r)); err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	httputil.OK(w, "All notifications marked as read", nil)
}
