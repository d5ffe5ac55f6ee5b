package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

const EventPrescriptionIssued = "PRESCRIPTION_ISSUED"

// Appointments is the slice of the appointment service prescriptions depend
// on for ownership checks.
type Appointments interface {
	GetAppointment(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error)
	DoctorScope(ctx context.Context, actor appointment.Actor) (uuid.UUID, error)
}

type EventWriter interface {
	InsertEvent(ctx context.Context, ev appointment.EventLog) error
}

type Service struct {
	repo   Repository
	appts  Appointments
	events EventWriter
	logger zerolog.Logger
}

func NewService(repo Repository, appts Appointments, events EventWriter, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		appts:  appts,
		events: events,
		logger: logger.With().Str("component", "prescription").Logger(),
	}
}

// Create issues the single prescription of an appointment owned by doctorID.
func (s *Service) Create(ctx context.Context, doctorID, appointmentID uuid.UUID, draft Draft) (*Prescription, error) {
	if err := apperr.FromValidation(draft.Validate()); err != nil {
		return nil, err
	}

	appt, err := s.appts.GetAppointment(ctx, appointment.Actor{ID: doctorID, Role: appointment.RoleDoctor}, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != appointment.StatusInSession && appt.Status != appointment.StatusCompleted {
		return nil, ErrInvalidState.Withf("cannot issue a prescription for a %s appointment", appt.Status)
	}

	if _, err := s.repo.GetByAppointment(ctx, appointmentID); err == nil {
		return nil, ErrPrescriptionExists
	} else if !errors.Is(err, ErrPrescriptionNotFound) {
		return nil, fmt.Errorf("check existing prescription: %w", err)
	}

	p, err := s.repo.Create(ctx, NewPrescription{
		AppointmentID: appointmentID,
		DoctorID:      doctorID,
		PatientID:     appt.PatientID,
		Medicines:     draft.Medicines,
		Notes:         draft.Notes,
	})
	if err != nil {
		if errors.Is(err, ErrPrescriptionExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create prescription: %w", err)
	}

	s.logEvent(ctx, appointmentID, map[string]any{
		"prescription_id": p.ID.String(),
		"doctor_id":       doctorID.String(),
		"medicines":       len(p.Medicines),
	})
	return p, nil
}

func (s *Service) Get(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load prescription: %w", err)
	}
	if err := s.authorize(ctx, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetByAppointment(ctx context.Context, actor appointment.Actor, appointmentID uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load prescription: %w", err)
	}
	if err := s.authorize(ctx, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListForDoctor lists prescriptions of the actor's doctor (doctor or staff).
func (s *Service) ListForDoctor(ctx context.Context, actor appointment.Actor) ([]Prescription, error) {
	doctorID, err := s.appts.DoctorScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	ps, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions by doctor: %w", err)
	}
	return ps, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error) {
	ps, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions by patient: %w", err)
	}
	return ps, nil
}

func (s *Service) authorize(ctx context.Context, actor appointment.Actor, p *Prescription) error {
	if actor.Role == appointment.RolePatient {
		if p.PatientID != actor.ID {
			return appointment.ErrAccessDenied
		}
		return nil
	}
	doctorID, err := s.appts.DoctorScope(ctx, actor)
	if err != nil {
		return err
	}
	if p.DoctorID != doctorID {
		return appointment.ErrAccessDenied
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal event payload")
		data = nil
	}
	if err := s.events.InsertEvent(ctx, appointment.EventLog{
		EventType:     EventPrescriptionIssued,
		AppointmentID: &appointmentID,
		Payload:       data,
	}); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", appointmentID.String()).Msg("failed to insert event log")
	}
}
