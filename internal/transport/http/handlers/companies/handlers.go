package companyhandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/company"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type Handler struct {
	Service *company.Service
	Perms   middleware.PermissionStore
	Log     logrus.FieldLogger
}

func NewHandler(service *company.Service, perms middleware.PermissionStore, log logrus.FieldLogger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/companies", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCompaniesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermCompaniesWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermCompaniesRead, h.Perms)).Get("/{companyID}", h.handleGet)
	})
}

// handleList returns every company to admins and only the caller's own
// company to everyone else.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParseDefaultPagination(r)

	if user.RoleName != auth.RoleAdmin {
		c, err := h.Service.Get(r.Context(), user.CompanyID)
		if err != nil {
			shared.WriteError(w, r, h.Log, err)
			return
		}
		w.Header().Set("X-Total-Count", "1")
		api.Success(w, api.NewPage([]company.Company{c}, 1, page.Limit, 0), requestID)
		return
	}

	result, err := h.Service.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, api.NewPage(result.Items, result.Total, page.Limit, page.Offset), requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	companyID := chi.URLParam(r, "companyID")
	if user.RoleName != auth.RoleAdmin && companyID != user.CompanyID {
		shared.WriteError(w, r, h.Log, company.ErrNotFound)
		return
	}
	c, err := h.Service.Get(r.Context(), companyID)
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, c, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload company.Company
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestID) {
		return
	}
	created, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Created(w, created, requestID)
}
