package payrollhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/domain/payslip"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

// Handler exposes the calculator without persistence.
type Handler struct {
	Payslips *payslip.Service
	Perms    middleware.PermissionStore
	Log      logrus.FieldLogger
}

func NewHandler(payslips *payslip.Service, perms middleware.PermissionStore, log logrus.FieldLogger) *Handler {
	return &Handler{Payslips: payslips, Perms: perms, Log: log}
}

type computeResponse struct {
	Result payroll.Result `json:"result"`
	Cached bool           `json:"cached"`
}

type bracketView struct {
	LowerBound decimal.Decimal `json:"lowerBound"`
	Rate       decimal.Decimal `json:"rate"`
	Allowance  decimal.Decimal `json:"allowance"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollCompute, h.Perms)).Post("/compute", h.handleCompute)
		r.With(middleware.RequirePermission(auth.PermPayrollCompute, h.Perms)).Get("/brackets", h.handleBrackets)
	})
}

// handleCompute accepts amounts as numbers or user-entered strings; fields
// that cannot be read count as zero.
func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var in payroll.Input
	if !shared.DecodeJSON(w, r, &in, requestID) {
		return
	}
	res, cached, err := h.Payslips.Preview(r.Context(), in)
	if err != nil {
		shared.WriteError(w, r, h.Log, err)
		return
	}
	api.Success(w, computeResponse{Result: res, Cached: cached}, requestID)
}

func (h *Handler) handleBrackets(w http.ResponseWriter, r *http.Request) {
	brackets := payroll.Brackets()
	out := make([]bracketView, 0, len(brackets))
	for _, b := range brackets {
		out = append(out, bracketView{LowerBound: b.LowerBound, Rate: b.Rate, Allowance: b.Allowance})
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}
