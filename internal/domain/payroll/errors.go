package payroll

import "errors"

var (
	ErrUnknownStatus     = errors.New("unknown payslip status")
	ErrUnknownAction     = errors.New("unknown payslip action")
	ErrInvalidTransition = errors.New("payslip status transition not allowed")
)
