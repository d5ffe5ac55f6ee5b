package prescription

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"durationDays"`
	Notes        string `json:"notes,omitempty"`
}

var notBlank = validation.By(func(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_not_blank", "cannot be blank")
	}
	return nil
})

func (m Medicine) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, notBlank, validation.Length(0, 200)),
		validation.Field(&m.Dosage, notBlank, validation.Length(0, 100)),
		validation.Field(&m.Frequency, notBlank, validation.Length(0, 100)),
		// Min skips zero values, so Required catches the zero day case
		validation.Field(&m.DurationDays,
			validation.Required.Error("must be at least 1 day"),
			validation.Min(1).Error("must be at least 1 day"),
		),
		validation.Field(&m.Notes, validation.Length(0, 500)),
	)
}

type Prescription struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointmentId"`
	DoctorID      uuid.UUID  `json:"doctorId"`
	PatientID     uuid.UUID  `json:"patientId"`
	Medicines     []Medicine `json:"medicines"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Draft is what a doctor submits for an appointment.
type Draft struct {
	Medicines []Medicine `json:"medicines"`
	Notes     *string    `json:"notes,omitempty"`
}

func (d Draft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Medicines, validation.Required.Error("at least one medicine is required")),
	)
}

type NewPrescription struct {
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	Medicines     []Medicine
	Notes         *string
}
