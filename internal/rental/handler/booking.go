package handler

import (
	"encoding/json"
	"net/http"

	"talad/internal/rental/service"
	"talad/internal/rental/validator"
	apperrors "talad/pkg/errors"
	httputil "talad/pkg/http"
	"talad/pkg/logger"
	"talad/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service   service.BookingService
	jwtSecret []byte
	log       *logger.Logger
}

func NewBookingHandler(service service.BookingService, jwtSecret []byte, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:   service,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// Create books a lock or, when someone else holds it, queues the
// caller. Both outcomes are successes: 201 with the booking, or 202
// with the queue position.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req validator.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	result, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if result.Queued {
		if err := httputil.WriteAccepted(w, result); err != nil {
			h.log.Error("failed to write accepted response", "handler", "Create", "operation", "WriteAccepted", "error", err)
		}
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if booking.UserID != middleware.UserIDFromContext(r.Context()) &&
		middleware.RoleFromContext(r.Context()) != middleware.RoleAdmin {
		if writeErr := httputil.WriteError(w, apperrors.Forbidden("Booking belongs to another user")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	bookings, total, err := h.service.GetAllByUser(r.Context(), userID, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetMine", "operation", "WritePaginated", "error", err)
	}
}

// GetByStatus is the admin view of the verification queue and friends.
func (h *BookingHandler) GetByStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := r.URL.Query().Get("status")
	if status == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'status' query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, total, err := h.service.GetAllByStatus(r.Context(), status, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetByStatus", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Cancel(r.Context(), userID, id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", middleware.Authenticate(h.jwtSecret, h.Create))
	router.GET("/api/v1/bookings", middleware.Authenticate(h.jwtSecret, h.GetMine))
	router.GET("/api/v1/bookings/id/:id", middleware.Authenticate(h.jwtSecret, h.GetByID))
	router.DELETE("/api/v1/bookings/id/:id", middleware.Authenticate(h.jwtSecret, h.Cancel))
	router.GET("/api/v1/admin/bookings", middleware.RequireAdmin(h.jwtSecret, h.GetByStatus))
}
