package company

import "errors"

var (
	ErrNotFound      = errors.New("company not found")
	ErrDuplicateName = errors.New("company name already exists")
)
