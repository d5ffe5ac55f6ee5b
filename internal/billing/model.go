package billing

import (
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type Bill struct {
	ID             uuid.UUID  `json:"id"`
	AppointmentID  uuid.UUID  `json:"appointmentId"`
	PrescriptionID *uuid.UUID `json:"prescriptionId,omitempty"`
	DoctorID       uuid.UUID  `json:"doctorId"`
	PatientID      uuid.UUID  `json:"patientId"`
	Items          []LineItem `json:"items"`
	Totals
	TaxBasisPoints int64 `json:"taxBasisPoints"`
	PaymentState
	IssuedAt  time.Time `json:"issuedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalJSON adds taxPercent, the applied rate as a decimal string.
func (b Bill) MarshalJSON() ([]byte, error) {
	type plain Bill
	return json.Marshal(struct {
		plain
		TaxPercent string `json:"taxPercent"`
	}{plain(b), FormatTaxPercent(b.TaxBasisPoints)})
}

// Draft is what staff submit to issue a bill. TaxPercent is a decimal string;
// when nil the configured default applies.
type Draft struct {
	Items      []LineItem `json:"items"`
	TaxPercent *string    `json:"taxPercent,omitempty"`
}

func (d Draft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Items, validation.Required.Error("at least one item is required")),
	)
}

type NewBill struct {
	AppointmentID  uuid.UUID
	PrescriptionID *uuid.UUID
	DoctorID       uuid.UUID
	PatientID      uuid.UUID
	Items          []LineItem
	Totals         Totals
	TaxBasisPoints int64
	State          PaymentState
	IssuedAt       time.Time
}
