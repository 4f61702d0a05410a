package payslipshandler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/domain/payslip"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type Handler struct {
	Service     *payslip.Service
	Perms       middleware.PermissionStore
	Idempotency *middleware.IdempotencyStore
	Log         logrus.FieldLogger
}

func NewHandler(service *payslip.Service, perms middleware.PermissionStore, idem *middleware.IdempotencyStore, log logrus.FieldLogger) *Handler {
	return &Handler{Service: service, Perms: perms, Idempotency: idem, Log: log}
}

type createRequest struct {
	EmployeeID string         `json:"employeeId" validate:"required"`
	Period     payslip.Period `json:"period"`
	Input      *payroll.Input `json:"input"`
}

type updateRequest struct {
	Period *payslip.Period `json:"period"`
	Input  *payroll.Input  `json:"input"`
}

type transitionRequest struct {
	Action string `json:"action" validate:"required"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	idem := middleware.Idempotency(h.Idempotency, h.Log)
	read := middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)
	write := middleware.RequirePermission(auth.PermPayslipsWrite, h.Perms)

	r.Route("/payslips", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write, idem).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermPayslipsExport, h.Perms)).Get("/export", h.handleExport)
		r.With(middleware.RequirePermission(auth.PermJobsRun, h.Perms), idem).Post("/recompute", h.handleRecompute)
		r.Route("/{payslipID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGet)
			r.With(write).Put("/", h.handleUpdate)
			r.With(write).Delete("/", h.handleDelete)
			r.With(middleware.RequirePermission(auth.PermPayslipsTransition, h.Perms), idem).Post("/transitions", h.handleTransition)
			r.With(read).Get("/history", h.handleHistory)
			r.With(read).Get("/verify", h.handleVerify)
			r.With(write, idem).Post("/document", h.handleRenderDocument)
			r.With(read).Get("/document", h.handleDownloadDocument)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()
	page := shared.ParseDefaultPagination(r)

	filter := payslip.ListFilter{
		EmployeeID: strings.TrimSpace(query.Get("employeeId")),
		Status:     strings.TrimSpace(query.Get("status")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	v := shared.NewValidator()
	filter.From = optionalDate(v, "from", query.Get("from"))
	filter.To = optionalDate(v, "to", query.Get("to"))
	if v.Reject(w, requestID) {
		return
	}

	result, err := h.Service.List(r.Context(), user.CompanyID, filter)
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, api.NewPage(result.Items, result.Total, page.Limit, page.Offset), requestID)
}

func optionalDate(v *shared.Validator, field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parsed, ok := v.Date(field, raw)
	if !ok {
		return nil
	}
	return &parsed
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload createRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestID) {
		return
	}

	created, err := h.Service.Create(r.Context(), user.CompanyID, payslip.CreateRequest{
		EmployeeID: payload.EmployeeID,
		Period:     payload.Period,
		Input:      payload.Input,
		ActorID:    user.UserID,
	})
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.Get(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload updateRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	updated, err := h.Service.Update(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID"), payslip.UpdateRequest{
		Period: payload.Period,
		Input:  payload.Input,
	})
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID")); err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload transitionRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestID) {
		return
	}

	p, err := h.Service.Transition(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID"), payslip.TransitionRequest{
		Action:        strings.ToLower(strings.TrimSpace(payload.Action)),
		ActorID:       user.UserID,
		CorrelationID: requestID,
	})
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, p, requestID)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	entries, err := h.Service.History(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	result, err := h.Service.Verify(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRenderDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.RenderDocument(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Created(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	doc, err := h.Service.Document(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.File(w, doc.ContentType, doc.FileName, doc.Data)
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	runID, err := h.Service.StartRecompute(r.Context(), user.CompanyID)
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Accepted(w, map[string]string{"runId": runID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.RequireUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	v := shared.NewValidator()
	start, _ := v.Date("start", query.Get("start"))
	end, _ := v.Date("end", query.Get("end"))
	v.DateOrder("start", start, "end", end)
	if v.Reject(w, requestID) {
		return
	}

	export, err := h.Service.ExportRegister(r.Context(), user.CompanyID, payslip.Period{StartDate: start, EndDate: end}, query.Get("format"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.File(w, export.ContentType, export.FileName, export.Data)
}
