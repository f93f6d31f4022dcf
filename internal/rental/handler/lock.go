package handler

import (
	"encoding/json"
	"net/http"

	"talad/internal/rental/repository"
	"talad/internal/rental/service"
	httputil "talad/pkg/http"
	"talad/pkg/logger"
	"talad/pkg/middleware"
	"talad/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type LockHandler struct {
	service   service.LockService
	jwtSecret []byte
	log       *logger.Logger
}

func NewLockHandler(service service.LockService, jwtSecret []byte, log *logger.Logger) *LockHandler {
	return &LockHandler{
		service:   service,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

func (h *LockHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	query := r.URL.Query()
	filter := repository.LockFilter{
		ZoneID:   query.Get("zone_id"),
		Status:   query.Get("status"),
		OnlyFree: query.Get("free") == "true",
	}

	locks, total, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, locks, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *LockHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("lockId")

	lock, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, lock); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LockHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var lock model.Lock
	if err := json.NewDecoder(r.Body).Decode(&lock); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	adminID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Create(r.Context(), adminID, &lock); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, lock); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *LockHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("lockId")

	var lock model.Lock
	if err := json.NewDecoder(r.Body).Decode(&lock); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	adminID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Update(r.Context(), adminID, id, &lock); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LockHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("lockId")

	adminID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), adminID, id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Deactivate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LockHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/locks", h.GetAll)
	router.GET("/api/v1/locks/:lockId", h.GetByID)
	router.POST("/api/v1/admin/locks", middleware.RequireAdmin(h.jwtSecret, h.Create))
	router.PATCH("/api/v1/admin/locks/:lockId", middleware.RequireAdmin(h.jwtSecret, h.Update))
	router.DELETE("/api/v1/admin/locks/:lockId", middleware.RequireAdmin(h.jwtSecret, h.Deactivate))
}
