package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrPatientNotFound     = apperr.New(apperr.CodeNotFound, "patient not found")
	ErrDoctorNotFound      = apperr.New(apperr.CodeNotFound, "doctor not found")
	ErrStaffNotFound       = apperr.New(apperr.CodeNotFound, "staff member not found")
	ErrAppointmentNotFound = apperr.New(apperr.CodeNotFound, "appointment not found")

	// Returned by CreateAppointment when the storage uniqueness constraints reject the insert.
	ErrSlotTaken       = apperr.New(apperr.CodeSlotTaken, "this slot is already booked")
	ErrPatientConflict = apperr.New(apperr.CodePatientConflict, "you already have an appointment at this time")
)

// Repository contains all storage interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	ListStaffByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Staff, error)
	ListPatientsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Patient, error)

	// Staff writes are scoped to doctorID; a member of another doctor is
	// ErrStaffNotFound. A duplicate email within the doctor is ErrStaffEmailExists.
	CreateStaff(ctx context.Context, doctorID uuid.UUID, in StaffDraft) (*Staff, error)
	UpdateStaff(ctx context.Context, doctorID, id uuid.UUID, in StaffDraft) (*Staff, error)
	DeleteStaff(ctx context.Context, doctorID, id uuid.UUID) error

	// Replaces the doctor's availability wholesale.
	ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, availability []DayAvailability) (*Doctor, error)

	// Conflict pre-checks; the authoritative guard is CreateAppointment itself.
	FindActiveBySlot(ctx context.Context, doctorID uuid.UUID, date, slot string) (*Appointment, error)
	FindActiveForPatient(ctx context.Context, patientID uuid.UUID, date, slot string) (*Appointment, error)

	// CreateAppointment inserts a pending appointment. It must fail atomically
	// with ErrSlotTaken or ErrPatientConflict when an active appointment
	// already holds the same (doctor, date, slot) or (patient, date, slot).
	CreateAppointment(ctx context.Context, in NewAppointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateAppointmentStatus applies the change only while the stored status
	// still equals change.From; otherwise it returns ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*Appointment, error)
	ListAppointments(ctx context.Context, f Filter) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
