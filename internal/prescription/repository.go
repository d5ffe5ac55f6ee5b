package prescription

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrPrescriptionNotFound = apperr.New(apperr.CodeNotFound, "prescription not found")
	ErrPrescriptionExists   = apperr.New(apperr.CodePrescriptionExists, "prescription already exists for this appointment")
	ErrInvalidState         = apperr.New(apperr.CodeInvalidState, "prescriptions can only be issued during or after a session")
)

type Repository interface {
	// Create fails with ErrPrescriptionExists when the appointment already has one.
	Create(ctx context.Context, in NewPrescription) (*Prescription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error)
}
