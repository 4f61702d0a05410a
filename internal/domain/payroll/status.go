package payroll

type transitionKey struct {
	from   string
	action string
}

var transitions = map[transitionKey]string{
	{StatusDraft, ActionValidate}:       StatusValidated,
	{StatusValidated, ActionPay}:        StatusPaid,
	{StatusValidated, ActionPayPartial}: StatusPartiallyPaid,
	{StatusValidated, ActionCancel}:     StatusDraft,
	{StatusPartiallyPaid, ActionPay}:    StatusPaid,
	{StatusPartiallyPaid, ActionCancel}: StatusValidated,
	{StatusPaid, ActionCancel}:          StatusValidated,
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusValidated, StatusPaid, StatusPartiallyPaid:
		return true
	default:
		return false
	}
}

func IsValidAction(action string) bool {
	switch action {
	case ActionValidate, ActionPay, ActionPayPartial, ActionCancel:
		return true
	default:
		return false
	}
}

// NextStatus returns the status reached by applying action to current.
func NextStatus(current, action string) (string, error) {
	if !IsValidStatus(current) {
		return "", ErrUnknownStatus
	}
	if !IsValidAction(action) {
		return "", ErrUnknownAction
	}
	next, ok := transitions[transitionKey{from: current, action: action}]
	if !ok {
		return "", ErrInvalidTransition
	}
	return next, nil
}

// IsEditable reports whether a payslip in status may still change its input.
func IsEditable(status string) bool {
	return status == StatusDraft
}
