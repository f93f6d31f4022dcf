package handler

import (
	"net/http"

	"talad/internal/rental/service"
	httputil "talad/pkg/http"
	"talad/pkg/logger"
	"talad/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// SweepHandler exposes the deadline sweeps to the external scheduler.
// Each endpoint runs one pass and reports what it touched; the sweeps
// are idempotent so an over-eager cron does no harm.
type SweepHandler struct {
	service    service.SweeperService
	cronSecret string
	log        *logger.Logger
}

func NewSweepHandler(service service.SweeperService, cronSecret string, log *logger.Logger) *SweepHandler {
	return &SweepHandler{
		service:    service,
		cronSecret: cronSecret,
		log:        log,
	}
}

func (h *SweepHandler) run(name string, sweep func(r *http.Request) (*service.SweepReport, error)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		report, err := sweep(r)
		if err != nil {
			if writeErr := httputil.WriteError(w, err); writeErr != nil {
				h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
			}
			return
		}

		if err := httputil.WriteSuccess(w, report); err != nil {
			h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
		}
	}
}

func (h *SweepHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/cron/sweep/payments", middleware.CronAuth(h.cronSecret,
		h.run("SweepExpiredPayments", func(r *http.Request) (*service.SweepReport, error) {
			return h.service.SweepExpiredPayments(r.Context())
		})))
	router.POST("/api/v1/cron/sweep/reservations", middleware.CronAuth(h.cronSecret,
		h.run("SweepLapsedReservations", func(r *http.Request) (*service.SweepReport, error) {
			return h.service.SweepLapsedReservations(r.Context())
		})))
	router.POST("/api/v1/cron/sweep/rentals", middleware.CronAuth(h.cronSecret,
		h.run("SweepEndedRentals", func(r *http.Request) (*service.SweepReport, error) {
			return h.service.SweepEndedRentals(r.Context())
		})))
	router.POST("/api/v1/cron/sweep/renewals", middleware.CronAuth(h.cronSecret,
		h.run("SweepRenewalNotices", func(r *http.Request) (*service.SweepReport, error) {
			return h.service.SweepRenewalNotices(r.Context())
		})))
}
