package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Doctor struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Email          *string           `json:"email,omitempty"`
	Specialization string            `json:"specialization"`
	Availability   []DayAvailability `json:"availability"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type Staff struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctorId"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Appointment struct {
	ID               uuid.UUID         `json:"id"`
	PatientID        uuid.UUID         `json:"patientId"`
	DoctorID         uuid.UUID         `json:"doctorId"`
	Date             string            `json:"date"`
	Slot             string            `json:"slot"`
	Status           AppointmentStatus `json:"status"`
	SessionStartTime *time.Time        `json:"sessionStartTime,omitempty"`
	SessionEndTime   *time.Time        `json:"sessionEndTime,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// NewAppointment is the insert payload for a booking.
type NewAppointment struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      string
	Slot      string
	Notes     *string
}

// StatusChange is a compare-and-set status write.
type StatusChange struct {
	From             AppointmentStatus
	To               AppointmentStatus
	SessionStartTime *time.Time
	SessionEndTime   *time.Time
}

// Filter narrows appointment listings. Zero fields are ignored; dates are
// inclusive and compared as YYYY-MM-DD strings.
type Filter struct {
	DoctorID   *uuid.UUID
	PatientID  *uuid.UUID
	Date       string
	From       string
	To         string
	ActiveOnly bool
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Actor is an authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// BookingRequest is what a patient submits to reserve a slot.
type BookingRequest struct {
	DoctorID uuid.UUID
	Date     string
	Slot     string
	Notes    *string
}

// StatusUpdate is a doctor or staff request to move an appointment.
type StatusUpdate struct {
	Status           AppointmentStatus
	SessionStartTime *time.Time
	SessionEndTime   *time.Time
}

// AvailabilityResult is returned after availability is replaced.
// OrphanedAppointments are upcoming active bookings whose slot is no longer
// declared; they are kept as booked.
type AvailabilityResult struct {
	Availability         []DayAvailability `json:"availability"`
	OrphanedAppointments []Appointment     `json:"orphanedAppointments"`
}
