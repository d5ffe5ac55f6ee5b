package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

const (
	EventBillCreated        = "BILL_CREATED"
	EventBillPaymentUpdated = "BILL_PAYMENT_UPDATED"
)

var tracer = otel.Tracer("clinic.internal.billing")

type Appointments interface {
	GetAppointment(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error)
	DoctorScope(ctx context.Context, actor appointment.Actor) (uuid.UUID, error)
}

// Prescriptions finds the prescription to link to a new bill.
type Prescriptions interface {
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*prescription.Prescription, error)
}

type EventWriter interface {
	InsertEvent(ctx context.Context, ev appointment.EventLog) error
}

// Gateway charges a bill online. A returned error marks the payment failed.
type Gateway interface {
	Charge(ctx context.Context, b *Bill) error
}

// ApproveAll is the simulated gateway: every charge succeeds.
type ApproveAll struct{}

func (ApproveAll) Charge(context.Context, *Bill) error { return nil }

type Options struct {
	// DefaultTaxBasisPoints applies when a draft carries no taxPercent.
	DefaultTaxBasisPoints int64
	Gateway               Gateway
	Clock                 appointment.Clock
	Logger                zerolog.Logger
	Metrics               *metrics.ClinicMetrics
}

type Service struct {
	repo          Repository
	appts         Appointments
	prescriptions Prescriptions
	events        EventWriter
	gateway       Gateway
	defaultTaxBP  int64
	clock         appointment.Clock
	logger        zerolog.Logger
	metrics       *metrics.ClinicMetrics
}

func NewService(repo Repository, appts Appointments, prescriptions Prescriptions, events EventWriter, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = appointment.SystemClock{}
	}
	if opts.Gateway == nil {
		opts.Gateway = ApproveAll{}
	}
	return &Service{
		repo:          repo,
		appts:         appts,
		prescriptions: prescriptions,
		events:        events,
		gateway:       opts.Gateway,
		defaultTaxBP:  opts.DefaultTaxBasisPoints,
		clock:         opts.Clock,
		logger:        opts.Logger.With().Str("component", "billing").Logger(),
		metrics:       opts.Metrics,
	}
}

// Create issues the bill for a completed appointment of the staff member's doctor.
func (s *Service) Create(ctx context.Context, staffID, appointmentID uuid.UUID, draft Draft) (bill *Bill, err error) {
	ctx, span := tracer.Start(ctx, "billing.create")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", appointmentID.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		s.metrics.ObserveBilling("create", outcome(err))
	}()

	if err := apperr.FromValidation(draft.Validate()); err != nil {
		return nil, err
	}
	taxBP := s.defaultTaxBP
	if draft.TaxPercent != nil {
		if taxBP, err = ParseTaxPercent(*draft.TaxPercent); err != nil {
			return nil, err
		}
	}
	totals, err := ComputeTotals(draft.Items, taxBP)
	if err != nil {
		return nil, err
	}

	appt, err := s.appts.GetAppointment(ctx, appointment.Actor{ID: staffID, Role: appointment.RoleStaff}, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != appointment.StatusCompleted {
		return nil, ErrInvalidState.Withf("cannot bill a %s appointment", appt.Status)
	}

	if _, err := s.repo.GetByAppointment(ctx, appointmentID); err == nil {
		return nil, ErrBillExists
	} else if !errors.Is(err, ErrBillNotFound) {
		return nil, fmt.Errorf("check existing bill: %w", err)
	}

	var prescriptionID *uuid.UUID
	p, err := s.prescriptions.GetByAppointment(ctx, appointmentID)
	switch {
	case err == nil:
		prescriptionID = &p.ID
	case !errors.Is(err, prescription.ErrPrescriptionNotFound):
		return nil, fmt.Errorf("load prescription: %w", err)
	}

	bill, err = s.repo.Create(ctx, NewBill{
		AppointmentID:  appointmentID,
		PrescriptionID: prescriptionID,
		DoctorID:       appt.DoctorID,
		PatientID:      appt.PatientID,
		Items:          draft.Items,
		Totals:         totals,
		TaxBasisPoints: taxBP,
		State:          Unbilled(),
		IssuedAt:       s.clock.Now(),
	})
	if err != nil {
		if errors.Is(err, ErrBillExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create bill: %w", err)
	}

	s.logEvent(ctx, appointmentID, EventBillCreated, map[string]any{
		"bill_id":  bill.ID.String(),
		"staff_id": staffID.String(),
		"total":    bill.Total,
	})
	return bill, nil
}

// UpdatePayment records the payment channel chosen at the desk. Cash settles
// immediately; online waits for the patient to pay.
func (s *Service) UpdatePayment(ctx context.Context, staffID, billID uuid.UUID, method PaymentMethod) (bill *Bill, err error) {
	defer func() { s.metrics.ObserveBilling("update_payment", outcome(err)) }()

	if method != MethodCash && method != MethodOnline {
		return nil, apperr.Validation(apperr.FieldError{Field: "paymentMethod", Message: "must be cash or online"})
	}

	current, err := s.loadForStaff(ctx, staffID, billID)
	if err != nil {
		return nil, err
	}
	if err := payable(current); err != nil {
		return nil, err
	}

	next := AwaitingOnline()
	if method == MethodCash {
		next = SettledCash(s.clock.Now())
	}
	return s.applyPayment(ctx, current, next, string(appointment.RoleStaff))
}

// Pay charges the bill online on behalf of the billed patient. A declined
// charge leaves the bill unpaid with a failed settlement, and it may be retried.
func (s *Service) Pay(ctx context.Context, patientID, billID uuid.UUID) (bill *Bill, err error) {
	ctx, span := tracer.Start(ctx, "billing.pay")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.bill_id", billID.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		s.metrics.ObserveBilling("pay", outcome(err))
	}()

	current, err := s.load(ctx, billID)
	if err != nil {
		return nil, err
	}
	if current.PatientID != patientID {
		return nil, appointment.ErrAccessDenied
	}
	if err := payable(current); err != nil {
		return nil, err
	}

	if chargeErr := s.gateway.Charge(ctx, current); chargeErr != nil {
		s.logger.Warn().Err(chargeErr).Str("bill_id", current.ID.String()).Msg("online payment declined")
		if _, err := s.applyPayment(ctx, current, FailedOnline(), string(appointment.RolePatient)); err != nil {
			return nil, err
		}
		return nil, ErrPaymentFailed.Withf("online payment was declined: %v", chargeErr)
	}
	return s.applyPayment(ctx, current, SettledOnline(s.clock.Now()), string(appointment.RolePatient))
}

// Void cancels an unpaid bill.
func (s *Service) Void(ctx context.Context, staffID, billID uuid.UUID) (bill *Bill, err error) {
	defer func() { s.metrics.ObserveBilling("void", outcome(err)) }()

	current, err := s.loadForStaff(ctx, staffID, billID)
	if err != nil {
		return nil, err
	}
	if err := payable(current); err != nil {
		return nil, err
	}

	next, err := current.PaymentState.Voided()
	if err != nil {
		return nil, ErrInvalidState.Withf("bill cannot be voided: %v", err)
	}
	return s.applyPayment(ctx, current, next, string(appointment.RoleStaff))
}

func payable(b *Bill) error {
	switch {
	case b.IsPaid():
		return ErrAlreadyPaid
	case b.IsVoid():
		return ErrInvalidState.Withf("bill is void")
	}
	return nil
}

func (s *Service) applyPayment(ctx context.Context, current *Bill, next PaymentState, by string) (*Bill, error) {
	updated, err := s.repo.UpdatePayment(ctx, current.ID, current.PaymentState, next)
	if err != nil {
		if !errors.Is(err, ErrBillNotFound) {
			return nil, fmt.Errorf("update bill payment: %w", err)
		}
		// another writer got there first
		fresh, reloadErr := s.load(ctx, current.ID)
		if reloadErr != nil {
			return nil, reloadErr
		}
		if perr := payable(fresh); perr != nil {
			return nil, perr
		}
		return nil, ErrInvalidState.Withf("bill payment changed concurrently")
	}

	s.logEvent(ctx, updated.AppointmentID, EventBillPaymentUpdated, map[string]any{
		"bill_id":        updated.ID.String(),
		"by":             by,
		"payment_method": string(updated.Method),
		"payment_status": string(updated.Settlement),
		"status":         string(updated.Ledger),
	})
	return updated, nil
}

// Get returns a bill visible to actor.
func (s *Service) Get(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*Bill, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == appointment.RolePatient {
		if b.PatientID != actor.ID {
			return nil, appointment.ErrAccessDenied
		}
		return b, nil
	}
	doctorID, err := s.appts.DoctorScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if b.DoctorID != doctorID {
		return nil, appointment.ErrAccessDenied
	}
	return b, nil
}

func (s *Service) ListForDoctor(ctx context.Context, actor appointment.Actor) ([]Bill, error) {
	doctorID, err := s.appts.DoctorScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	bills, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list bills by doctor: %w", err)
	}
	return bills, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Bill, error) {
	bills, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list bills by patient: %w", err)
	}
	return bills, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBillNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load bill: %w", err)
	}
	return b, nil
}

func (s *Service) loadForStaff(ctx context.Context, staffID, id uuid.UUID) (*Bill, error) {
	return s.Get(ctx, appointment.Actor{ID: staffID, Role: appointment.RoleStaff}, id)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}
	if err := s.events.InsertEvent(ctx, appointment.EventLog{
		EventType:     eventType,
		AppointmentID: &appointmentID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperr.CodeOf(err)))
}
