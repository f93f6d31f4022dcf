package handler

import (
	"net/http"

	"talad/internal/rental/service"
	httputil "talad/pkg/http"
	"talad/pkg/logger"
	"talad/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type QueueHandler struct {
	service   service.QueueService
	jwtSecret []byte
	log       *logger.Logger
}

func NewQueueHandler(service service.QueueService, jwtSecret []byte, log *logger.Logger) *QueueHandler {
	return &QueueHandler{
		service:   service,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lockID := ps.ByName("lockId")

	userID := middleware.UserIDFromContext(r.Context())
	position, err := h.service.Join(r.Context(), userID, lockID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Join", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, position); err != nil {
		h.log.Error("failed to write created response", "handler", "Join", "operation", "WriteCreated", "error", err)
	}
}

func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lockID := ps.ByName("lockId")

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Leave(r.Context(), userID, lockID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Leave", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *QueueHandler) MyPositions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserIDFromContext(r.Context())
	positions, err := h.service.PositionsForUser(r.Context(), userID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "MyPositions", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, positions); err != nil {
		h.log.Error("failed to write success response", "handler", "MyPositions", "operation", "WriteSuccess", "error", err)
	}
}

func (h *QueueHandler) EntriesForLock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lockID := ps.ByName("lockId")

	entries, err := h.service.EntriesForLock(r.Context(), lockID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "EntriesForLock", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "EntriesForLock", "operation", "WriteSuccess", "error", err)
	}
}

func (h *QueueHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/locks/:lockId/queue", middleware.Authenticate(h.jwtSecret, h.Join))
	router.DELETE("/api/v1/locks/:lockId/queue", middleware.Authenticate(h.jwtSecret, h.Leave))
	router.GET("/api/v1/queues/mine", middleware.Authenticate(h.jwtSecret, h.MyPositions))
	router.GET("/api/v1/admin/locks/:lockId/queue", middleware.RequireAdmin(h.jwtSecret, h.EntriesForLock))
}
