package payslip

import "errors"

var (
	ErrNotFound          = errors.New("payslip not found")
	ErrNotEditable       = errors.New("payslip is no longer a draft")
	ErrInvalidPeriod     = errors.New("invalid payslip period")
	ErrConflict          = errors.New("payslip was modified concurrently")
	ErrNoDocument        = errors.New("payslip document not generated")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
