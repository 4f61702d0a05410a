package shared

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/company"
	"hrpay/internal/domain/employee"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/domain/payslip"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
)

type errorMapping struct {
	status int
	code   string
}

var domainErrors = []struct {
	err error
	errorMapping
}{
	{payslip.ErrNotFound, errorMapping{http.StatusNotFound, "not_found"}},
	{employee.ErrNotFound, errorMapping{http.StatusNotFound, "not_found"}},
	{company.ErrNotFound, errorMapping{http.StatusNotFound, "not_found"}},
	{jobs.ErrNotFound, errorMapping{http.StatusNotFound, "not_found"}},
	{payslip.ErrNoDocument, errorMapping{http.StatusNotFound, "not_found"}},
	{payslip.ErrNotEditable, errorMapping{http.StatusConflict, "invalid_state"}},
	{payroll.ErrInvalidTransition, errorMapping{http.StatusConflict, "invalid_state"}},
	{employee.ErrHasPayslips, errorMapping{http.StatusConflict, "invalid_state"}},
	{payslip.ErrConflict, errorMapping{http.StatusConflict, "conflict"}},
	{company.ErrDuplicateName, errorMapping{http.StatusConflict, "conflict"}},
	{payslip.ErrInvalidPeriod, errorMapping{http.StatusBadRequest, "validation_error"}},
	{payslip.ErrUnsupportedFormat, errorMapping{http.StatusBadRequest, "validation_error"}},
	{payroll.ErrUnknownAction, errorMapping{http.StatusBadRequest, "validation_error"}},
	{payroll.ErrUnknownStatus, errorMapping{http.StatusBadRequest, "validation_error"}},
	{employee.ErrInvalidInput, errorMapping{http.StatusBadRequest, "validation_error"}},
	{auth.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, "unauthorized"}},
	{jobs.ErrQueueFull, errorMapping{http.StatusServiceUnavailable, "busy"}},
}

// WriteError maps domain sentinels to their envelope code. Anything else is
// logged and reported as an internal error without details.
func WriteError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	requestID := middleware.GetRequestID(r.Context())
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			api.Fail(w, m.status, m.code, err.Error(), requestID)
			return
		}
	}
	log.WithFields(logrus.Fields{
		"method":    r.Method,
		"path":      r.URL.Path,
		"requestId": requestID,
	}).WithError(err).Error("request failed")
	api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
}

// RequireUser returns the authenticated caller or writes 401.
func RequireUser(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user.CompanyID == "" {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return auth.UserContext{}, false
	}
	return user, true
}
