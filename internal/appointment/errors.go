package appointment

import "github.com/hackgods/clinic-scheduling/internal/apperr"

var (
	ErrPastDate          = apperr.New(apperr.CodeInvalidDate, "cannot book appointment in the past")
	ErrPastAppointment   = apperr.New(apperr.CodePastAppointment, "cannot cancel past appointments")
	ErrInvalidSlot       = apperr.New(apperr.CodeInvalidSlot, "selected slot is not available for this doctor on this day")
	ErrSlotOverlap       = apperr.New(apperr.CodeSlotOverlap, "overlapping slots")
	ErrInvalidTransition = apperr.New(apperr.CodeInvalidTransition, "invalid status transition")
	ErrAccessDenied      = apperr.New(apperr.CodeAccessDenied, "not authorized for this appointment")
	ErrStaffEmailExists  = apperr.New(apperr.CodeEmailExists, "staff member with this email already exists")
)
