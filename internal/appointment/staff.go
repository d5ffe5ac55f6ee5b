package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

const (
	EventStaffAdded   = "STAFF_ADDED"
	EventStaffUpdated = "STAFF_UPDATED"
	EventStaffRemoved = "STAFF_REMOVED"

	DefaultStaffRole = "nurse"
)

var StaffRoles = []any{"nurse", "receptionist", "technician", "assistant", "other"}

// StaffDraft is a doctor's request to add or edit a staff member.
type StaffDraft struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

func (d StaffDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required.Error("name is required"), validation.Length(0, 200)),
		validation.Field(&d.Email, validation.Required.Error("valid email is required"), is.EmailFormat),
		validation.Field(&d.Role, validation.In(StaffRoles...).Error("must be one of nurse, receptionist, technician, assistant, other")),
	)
}

// normalized trims the draft, lower-cases the email and fills the default role.
func (d StaffDraft) normalized() StaffDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Role = strings.TrimSpace(d.Role)
	if d.Role == "" {
		d.Role = DefaultStaffRole
	}
	return d
}

func (s *Service) AddStaff(ctx context.Context, doctorID uuid.UUID, draft StaffDraft) (*Staff, error) {
	draft = draft.normalized()
	if err := apperr.FromValidation(draft.Validate()); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	staff, err := s.repo.CreateStaff(ctx, doctorID, draft)
	if err != nil {
		if errors.Is(err, ErrStaffEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create staff: %w", err)
	}

	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("staff_id", staff.ID.String()).
		Str("event_type", EventStaffAdded).
		Msg("staff member added")
	return staff, nil
}

// UpdateStaff replaces the editable fields of one of the doctor's staff members.
func (s *Service) UpdateStaff(ctx context.Context, doctorID, staffID uuid.UUID, draft StaffDraft) (*Staff, error) {
	draft = draft.normalized()
	if err := apperr.FromValidation(draft.Validate()); err != nil {
		return nil, err
	}

	staff, err := s.repo.UpdateStaff(ctx, doctorID, staffID, draft)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) || errors.Is(err, ErrStaffEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("update staff: %w", err)
	}

	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("staff_id", staffID.String()).
		Str("event_type", EventStaffUpdated).
		Msg("staff member updated")
	return staff, nil
}

// RemoveStaff deletes a staff member. Their access ends with the next request.
func (s *Service) RemoveStaff(ctx context.Context, doctorID, staffID uuid.UUID) error {
	if err := s.repo.DeleteStaff(ctx, doctorID, staffID); err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return err
		}
		return fmt.Errorf("delete staff: %w", err)
	}

	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("staff_id", staffID.String()).
		Str("event_type", EventStaffRemoved).
		Msg("staff member removed")
	return nil
}
