package jobshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type Handler struct {
	Jobs  *jobs.Service
	Perms middleware.PermissionStore
	Log   logrus.FieldLogger
}

func NewHandler(service *jobs.Service, perms middleware.PermissionStore, log logrus.FieldLogger) *Handler {
	return &Handler{Jobs: service, Perms: perms, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/jobs/{jobID}", h.handleGet)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	run, err := h.Jobs.Get(r.Context(), user.CompanyID, chi.URLParam(r, "jobID"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}
