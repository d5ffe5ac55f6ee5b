package appointment

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusInSession AppointmentStatus = "in_session"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

var AllStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusInSession,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

func (s AppointmentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Active reports whether the appointment still holds its slot.
func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled
}

func (s AppointmentStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// transitions is the single legality table for every caller.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusInSession, StatusNoShow, StatusCancelled},
	StatusInSession: {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
	StatusNoShow:    nil,
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to AppointmentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Role is the caller role asserted by the upstream authentication layer.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleStaff   Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleStaff:
		return true
	}
	return false
}

// roleTargets lists which target statuses each role may request through the
// general status update. Patients cancel through CancelByPatient only.
var roleTargets = map[Role]map[AppointmentStatus]bool{
	RoleStaff: {
		StatusConfirmed: true,
		StatusInSession: true,
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	},
	RoleDoctor: {
		StatusConfirmed: true,
		StatusInSession: true,
		StatusCompleted: true,
		StatusCancelled: true,
	},
}

// RoleMayRequest reports whether role may move an appointment into to.
func RoleMayRequest(role Role, to AppointmentStatus) bool {
	return roleTargets[role][to]
}
