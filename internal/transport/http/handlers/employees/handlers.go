package employeehandler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/employee"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type Handler struct {
	Service *employee.Service
	Perms   middleware.PermissionStore
	Log     logrus.FieldLogger
}

func NewHandler(service *employee.Service, perms middleware.PermissionStore, log logrus.FieldLogger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log}
}

type employeeRequest struct {
	FirstName      string          `json:"firstName" validate:"required,max=100"`
	LastName       string          `json:"lastName" validate:"required,max=100"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Position       string          `json:"position" validate:"max=120"`
	HireDate       string          `json:"hireDate"`
	BaseSalary     payroll.Amount  `json:"baseSalary"`
	TaxShares      payroll.Amount  `json:"taxShares"`
	DefaultBonuses payroll.Bonuses `json:"defaultBonuses"`
	BankAccount    string          `json:"bankAccount" validate:"max=64"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreate)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/", h.handleUpdate)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Delete("/", h.handleDelete)
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/payslip-defaults", h.handleDefaults)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	page := shared.ParseDefaultPagination(r)
	result, err := h.Service.List(r.Context(), user.CompanyID, employee.ListFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, api.NewPage(result.Items, result.Total, page.Limit, page.Offset), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	e, err := h.Service.Get(r.Context(), user.CompanyID, chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, e, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	e, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	created, err := h.Service.Create(r.Context(), user.CompanyID, e)
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	e, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.Update(r.Context(), user.CompanyID, chi.URLParam(r, "employeeID"), e)
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), user.CompanyID, chi.URLParam(r, "employeeID")); err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDefaults(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	in, err := h.Service.PayslipDefaults(r.Context(), user.CompanyID, chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, in, middleware.GetRequestID(r.Context()))
}

func (h *Handler) decodeEmployee(w http.ResponseWriter, r *http.Request) (employee.Employee, bool) {
	requestID := middleware.GetRequestID(r.Context())
	var payload employeeRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return employee.Employee{}, false
	}

	v := shared.NewValidator()
	v.Struct(payload)
	var hireDate *time.Time
	if strings.TrimSpace(payload.HireDate) != "" {
		if parsed, ok := v.Date("hireDate", payload.HireDate); ok {
			hireDate = &parsed
		}
	}
	if v.Reject(w, requestID) {
		return employee.Employee{}, false
	}

	return employee.Employee{
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Email:          payload.Email,
		Position:       payload.Position,
		HireDate:       hireDate,
		BaseSalary:     payload.BaseSalary,
		TaxShares:      payload.TaxShares,
		DefaultBonuses: payload.DefaultBonuses,
		BankAccount:    payload.BankAccount,
	}, true
}
