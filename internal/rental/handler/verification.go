package handler

import (
	"encoding/json"
	"net/http"

	"talad/internal/rental/service"
	httputil "talad/pkg/http"
	"talad/pkg/logger"
	"talad/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type slipRequest struct {
	SlipURL string `json:"slip_url"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type VerificationHandler struct {
	service   service.VerificationService
	jwtSecret []byte
	log       *logger.Logger
}

func NewVerificationHandler(service service.VerificationService, jwtSecret []byte, log *logger.Logger) *VerificationHandler {
	return &VerificationHandler{
		service:   service,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

func (h *VerificationHandler) UploadSlip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req slipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UploadSlip", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.UploadSlip(r.Context(), userID, id, req.SlipURL); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UploadSlip", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *VerificationHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	adminID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Approve(r.Context(), adminID, id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Approve", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *VerificationHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Reject", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	adminID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Reject(r.Context(), adminID, id, req.Reason); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reject", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *VerificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/id/:id/slip", middleware.Authenticate(h.jwtSecret, h.UploadSlip))
	router.POST("/api/v1/admin/bookings/id/:id/approve", middleware.RequireAdmin(h.jwtSecret, h.Approve))
	router.POST("/api/v1/admin/bookings/id/:id/reject", middleware.RequireAdmin(h.jwtSecret, h.Reject))
}
