package handler

import (
	"net/http"

	"talad/internal/notify"
	httputil "talad/pkg/http"
	"talad/pkg/logger"
	"talad/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// NotificationHandler serves the durable inbox the notifier writes.
type NotificationHandler struct {
	store     notify.Store
	jwtSecret []byte
	log       *logger.Logger
}

func NewNotificationHandler(store notify.Store, jwtSecret []byte, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		store:     store,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	notifications, err := h.store.FindByUser(r.Context(), userID, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	unread, err := h.store.CountUnread(r.Context(), userID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{
		"notifications": notifications,
		"unread":        unread,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.store.MarkRead(r.Context(), userID, id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "MarkRead", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications", middleware.Authenticate(h.jwtSecret, h.List))
	router.POST("/api/v1/notifications/id/:id/read", middleware.Authenticate(h.jwtSecret, h.MarkRead))
}
