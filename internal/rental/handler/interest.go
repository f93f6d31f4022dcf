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

type interestRequest struct {
	ZoneID string `json:"zone_id"`
}

type InterestHandler struct {
	service   service.InterestService
	jwtSecret []byte
	log       *logger.Logger
}

func NewInterestHandler(service service.InterestService, jwtSecret []byte, log *logger.Logger) *InterestHandler {
	return &InterestHandler{
		service:   service,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

func (h *InterestHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req interestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Register", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Register(r.Context(), userID, req.ZoneID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Register", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *InterestHandler) Remove(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserIDFromContext(r.Context())
	zoneID := r.URL.Query().Get("zone_id")

	if err := h.service.Remove(r.Context(), userID, zoneID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Remove", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *InterestHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserIDFromContext(r.Context())
	entries, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InterestHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/interest", middleware.Authenticate(h.jwtSecret, h.Register))
	router.DELETE("/api/v1/interest", middleware.Authenticate(h.jwtSecret, h.Remove))
	router.GET("/api/v1/interest", middleware.Authenticate(h.jwtSecret, h.List))
}
