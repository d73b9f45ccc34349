package http

import (
	"net/http"
	"strconv"

	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"github.com/go-chi/chi/v5"
)

type NotificationHandler struct {
	notifications repository.NotificationRepository
	log           logger.Logger
}

func NewNotificationHandler(notifications repository.NotificationRepository, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log}
}

func (h *NotificationHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	notifications, total, err := h.notifications.ListByUser(r.Context(), repository.ListNotificationsParams{
		UserID:     callerID(r),
		UnreadOnly: q.Get("unread") == "true",
		Page:       page,
		PageSize:   limit,
	})
	if err != nil {
		h.log.Errorf("Failed to list notifications for user %s: %v", callerID(r), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         total,
	})
}

func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "id")

	if err := h.notifications.MarkRead(r.Context(), notificationID, callerID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "notification marked as read"})
}
