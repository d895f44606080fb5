package scheduling

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrPastDate         = errors.New("start is in the past")
	ErrForbidden        = errors.New("resource belongs to another organization")
	ErrScheduleConflict = errors.New("interval overlaps an existing block")
	ErrOutsideWorkHours = errors.New("interval is outside the employee's work hours")

	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrBlockNotFound       = errors.New("block not found")

	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrAppointmentNotFound) ||
		errors.Is(err, ErrBlockNotFound)
}
