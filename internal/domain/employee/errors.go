package employee

import "errors"

var (
	ErrNotFound     = errors.New("employee not found")
	ErrHasPayslips  = errors.New("employee has payslips")
	ErrInvalidInput = errors.New("invalid employee")
)
