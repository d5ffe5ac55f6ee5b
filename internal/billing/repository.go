package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrBillNotFound  = apperr.New(apperr.CodeNotFound, "bill not found")
	ErrBillExists    = apperr.New(apperr.CodeBillExists, "bill already exists for this appointment")
	ErrAlreadyPaid   = apperr.New(apperr.CodeAlreadyPaid, "bill is already paid")
	ErrInvalidState  = apperr.New(apperr.CodeInvalidState, "bill cannot be changed in its current state")
	ErrPaymentFailed = apperr.New(apperr.CodePaymentFailed, "online payment was declined")
)

type Repository interface {
	// Create fails with ErrBillExists when the appointment is already billed.
	Create(ctx context.Context, in NewBill) (*Bill, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Bill, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Bill, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Bill, error)
	// UpdatePayment writes to only while the stored state still matches from;
	// otherwise it returns ErrBillNotFound.
	UpdatePayment(ctx context.Context, id uuid.UUID, from, to PaymentState) (*Bill, error)
}
