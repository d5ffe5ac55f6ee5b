package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
)

var tracer = otel.Tracer("clinic.internal.appointment")

type Options struct {
	Clock    Clock
	Location *time.Location
	Logger   zerolog.Logger
	Metrics  *metrics.ClinicMetrics
}

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	clock   Clock
	loc     *time.Location
	logger  zerolog.Logger
	metrics *metrics.ClinicMetrics
}

func NewService(repo Repository, locker redisclient.Locker, opts Options) *Service {
	if locker == nil {
		locker = redisclient.NopLocker{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		clock:   opts.Clock,
		loc:     opts.Location,
		logger:  opts.Logger.With().Str("component", "appointment").Logger(),
		metrics: opts.Metrics,
	}
}

// Today is the current date in the clinic's time zone.
func (s *Service) Today() string {
	return Today(s.clock, s.loc)
}

// SetAvailability replaces the doctor's weekly availability. Existing
// bookings are kept; upcoming ones that no longer match a declared slot are
// reported back as orphaned.
func (s *Service) SetAvailability(ctx context.Context, doctorID uuid.UUID, entries []DayAvailability) (*AvailabilityResult, error) {
	if err := ValidateAvailability(entries); err != nil {
		return nil, err
	}

	doctor, err := s.repo.ReplaceAvailability(ctx, doctorID, entries)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("replace availability: %w", err)
	}

	upcoming, err := s.repo.ListAppointments(ctx, Filter{DoctorID: &doctorID, From: s.Today(), ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}

	orphaned := []Appointment{}
	for _, appt := range upcoming {
		if appt.Status.Terminal() {
			continue
		}
		day, err := WeekdayOf(appt.Date)
		if err != nil {
			continue
		}
		declared, ok := SlotsFor(doctor.Availability, day)
		if !ok || !declared.Has(appt.Slot) {
			orphaned = append(orphaned, appt)
		}
	}

	if len(orphaned) > 0 {
		s.logger.Warn().
			Str("doctor_id", doctorID.String()).
			Int("orphaned", len(orphaned)).
			Msg("availability no longer covers upcoming bookings")
	}
	s.logger.Info().Str("doctor_id", doctorID.String()).Int("days", len(entries)).Msg("availability updated")

	return &AvailabilityResult{Availability: doctor.Availability, OrphanedAppointments: orphaned}, nil
}

func (s *Service) GetAvailability(ctx context.Context, doctorID uuid.UUID) ([]DayAvailability, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Availability == nil {
		return []DayAvailability{}, nil
	}
	return doctor.Availability, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// Book validates a booking request and reserves the slot for the patient.
//
// The pre-checks give precise errors; the repository's uniqueness guarantee
// is what actually prevents double booking. The Redis lock only serializes
// concurrent requests for the same slot so losers see SLOT_TAKEN from the
// pre-check rather than from the constraint.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req BookingRequest) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID.String()),
		attribute.String("clinic.date", req.Date),
		attribute.String("clinic.slot", req.Slot),
	)

	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		s.metrics.ObserveBooking(outcome(err), time.Since(start).Seconds())
	}()

	if err := validateBookingShape(req); err != nil {
		return nil, err
	}

	// 1. no bookings for past dates
	if req.Date < s.Today() {
		return nil, ErrPastDate
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	// 2. slot must be declared verbatim for that weekday
	day, err := WeekdayOf(req.Date)
	if err != nil {
		return nil, apperr.Validation(apperr.FieldError{Field: "date", Message: err.Error()})
	}
	declared, ok := SlotsFor(doctor.Availability, day)
	if !ok || !declared.Has(req.Slot) {
		return nil, ErrInvalidSlot
	}

	// 3-5 run under the slot lock
	key := fmt.Sprintf("slot:%s:%s:%s", req.DoctorID, req.Date, req.Slot)
	entered := false
	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		entered = true
		created, err := s.reserve(lockCtx, patientID, req)
		appt = created
		return err
	})
	if err != nil && !entered {
		// lock unavailable; the insert constraint still decides
		s.metrics.ObserveLockFallback()
		s.logger.Warn().Err(err).Str("lock_key", key).Msg("booking without slot lock")
		appt, err = s.reserve(ctx, patientID, req)
	}
	if err != nil {
		return nil, err
	}

	return appt, nil
}

func validateBookingShape(req BookingRequest) error {
	var fields []apperr.FieldError
	if req.DoctorID == uuid.Nil {
		fields = append(fields, apperr.FieldError{Field: "doctorId", Message: "valid doctor ID is required"})
	}
	if _, err := ParseDate(req.Date); err != nil {
		fields = append(fields, apperr.FieldError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
	}
	if !slotPattern.MatchString(req.Slot) {
		fields = append(fields, apperr.FieldError{Field: "slot", Message: "slot must be in HH:MM-HH:MM format"})
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

func (s *Service) reserve(ctx context.Context, patientID uuid.UUID, req BookingRequest) (*Appointment, error) {
	// 3. doctor slot conflict
	existing, err := s.repo.FindActiveBySlot(ctx, req.DoctorID, req.Date, req.Slot)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("check slot conflict: %w", err)
	}
	if existing != nil {
		return nil, ErrSlotTaken
	}

	// 4. patient self conflict with any doctor
	own, err := s.repo.FindActiveForPatient(ctx, patientID, req.Date, req.Slot)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("check patient conflict: %w", err)
	}
	if own != nil {
		return nil, ErrPatientConflict
	}

	// 5. constrained insert
	appt, err := s.repo.CreateAppointment(ctx, NewAppointment{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Slot:      req.Slot,
		Notes:     req.Notes,
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrPatientConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"patient_id": patientID.String(),
		"doctor_id":  req.DoctorID.String(),
		"date":       req.Date,
		"slot":       req.Slot,
	})

	return appt, nil
}

// CancelByPatient cancels the patient's own pending or confirmed appointment
// for today or a future date.
func (s *Service) CancelByPatient(ctx context.Context, patientID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.PatientID != patientID {
		return nil, ErrAppointmentNotFound
	}

	if appt.Status != StatusPending && appt.Status != StatusConfirmed {
		return nil, ErrInvalidTransition.Withf("cannot cancel appointment with status %s", appt.Status)
	}
	if appt.Date < s.Today() {
		return nil, ErrPastAppointment
	}

	updated, err := s.applyChange(ctx, appt, StatusChange{From: appt.Status, To: StatusCancelled})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"by":   string(RolePatient),
		"from": string(appt.Status),
	})
	return updated, nil
}

// UpdateStatus moves an appointment through the transition table on behalf
// of a doctor or staff member.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, upd StatusUpdate) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.appointment_id", id.String()),
		attribute.String("clinic.status", string(upd.Status)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		s.metrics.ObserveTransition(string(upd.Status), outcome(err))
	}()

	if !upd.Status.Valid() {
		return nil, apperr.Validation(apperr.FieldError{Field: "status", Message: "invalid status"})
	}

	current, err := s.loadForActor(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	// Terminal states and moves outside the table are rejected for every role.
	if !CanTransition(current.Status, upd.Status) {
		return nil, ErrInvalidTransition.Withf("cannot change status from %s to %s", current.Status, upd.Status)
	}
	if !RoleMayRequest(actor.Role, upd.Status) {
		return nil, ErrAccessDenied.Withf("%s may not set status %s", actor.Role, upd.Status)
	}

	change := StatusChange{From: current.Status, To: upd.Status}
	now := s.clock.Now()
	switch upd.Status {
	case StatusInSession:
		change.SessionStartTime = upd.SessionStartTime
		if change.SessionStartTime == nil {
			change.SessionStartTime = &now
		}
	case StatusCompleted:
		change.SessionEndTime = upd.SessionEndTime
		if change.SessionEndTime == nil {
			change.SessionEndTime = &now
		}
		if current.SessionStartTime != nil && change.SessionEndTime.Before(*current.SessionStartTime) {
			return nil, apperr.Validation(apperr.FieldError{Field: "sessionEndTime", Message: "session cannot end before it started"})
		}
	}

	updated, err := s.applyChange(ctx, current, change)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventAppointmentStatusChanged, map[string]any{
		"by":       string(actor.Role),
		"actor_id": actor.ID.String(),
		"from":     string(change.From),
		"to":       string(change.To),
	})
	return updated, nil
}

// applyChange writes a compare-and-set transition. Losing a race against
// another writer is reported as an invalid transition from the new status.
func (s *Service) applyChange(ctx context.Context, appt *Appointment, change StatusChange) (*Appointment, error) {
	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, change)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	fresh, reloadErr := s.repo.GetAppointmentByID(ctx, appt.ID)
	if reloadErr != nil {
		if errors.Is(reloadErr, ErrAppointmentNotFound) {
			return nil, reloadErr
		}
		return nil, fmt.Errorf("reload appointment: %w", reloadErr)
	}
	return nil, ErrInvalidTransition.Withf("cannot change status from %s to %s", fresh.Status, change.To)
}

// GetAppointment returns an appointment visible to actor.
func (s *Service) GetAppointment(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.loadForActor(ctx, actor, id)
}

func (s *Service) loadForActor(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if actor.Role == RolePatient {
		if appt.PatientID != actor.ID {
			return nil, ErrAccessDenied
		}
		return appt, nil
	}

	doctorID, err := s.DoctorScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, ErrAccessDenied
	}
	return appt, nil
}

// DoctorScope resolves the doctor whose records actor may manage: a doctor
// manages their own, staff manage their assigned doctor's.
func (s *Service) DoctorScope(ctx context.Context, actor Actor) (uuid.UUID, error) {
	switch actor.Role {
	case RoleDoctor:
		return actor.ID, nil
	case RoleStaff:
		staff, err := s.repo.GetStaffByID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, ErrStaffNotFound) {
				return uuid.Nil, ErrAccessDenied.Withf("unknown staff member")
			}
			return uuid.Nil, fmt.Errorf("load staff: %w", err)
		}
		return staff.DoctorID, nil
	default:
		return uuid.Nil, ErrAccessDenied.Withf("%s has no doctor scope", actor.Role)
	}
}

// ListForPatient lists a patient's appointments, optionally within [from, to].
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, from, to string) ([]Appointment, error) {
	if err := validateOptionalDates(dateParam{"from", from}, dateParam{"to", to}); err != nil {
		return nil, err
	}
	appts, err := s.repo.ListAppointments(ctx, Filter{PatientID: &patientID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

// ListForDoctor lists the appointments of the actor's doctor, optionally for one date.
func (s *Service) ListForDoctor(ctx context.Context, actor Actor, date string) ([]Appointment, error) {
	if err := validateOptionalDates(dateParam{"date", date}); err != nil {
		return nil, err
	}
	doctorID, err := s.DoctorScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	appts, err := s.repo.ListAppointments(ctx, Filter{DoctorID: &doctorID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appts, nil
}

func (s *Service) ListPatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Patient, error) {
	patients, err := s.repo.ListPatientsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list patients by doctor: %w", err)
	}
	return patients, nil
}

func (s *Service) ListStaff(ctx context.Context, doctorID uuid.UUID) ([]Staff, error) {
	staff, err := s.repo.ListStaffByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

type dateParam struct {
	field string
	value string
}

// validateOptionalDates reports malformed dates in argument order; empty values are skipped.
func validateOptionalDates(dates ...dateParam) error {
	var fields []apperr.FieldError
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		if _, err := ParseDate(d.value); err != nil {
			fields = append(fields, apperr.FieldError{Field: d.field, Message: "date must be in YYYY-MM-DD format"})
		}
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
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
