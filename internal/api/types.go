package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

var (
	slotRegex = regexp.MustCompile(`^\d{2}:\d{2}-\d{2}:\d{2}$`)
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

type BookAppointmentRequest struct {
	DoctorID string  `json:"doctorId"`
	Date     string  `json:"date"`
	Slot     string  `json:"slot"`
	Notes    *string `json:"notes,omitempty"`
}

func (r BookAppointmentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DoctorID, validation.Required.Error("valid doctor ID is required"), is.UUID),
		validation.Field(&r.Date, validation.Required, validation.Match(dateRegex).Error("date must be in YYYY-MM-DD format")),
		validation.Field(&r.Slot, validation.Required, validation.Match(slotRegex).Error("slot must be in HH:MM-HH:MM format")),
		validation.Field(&r.Notes, validation.NilOrNotEmpty, validation.Length(0, 500)),
	)
}

func (r BookAppointmentRequest) toDomain() appointment.BookingRequest {
	return appointment.BookingRequest{
		DoctorID: uuid.MustParse(r.DoctorID),
		Date:     r.Date,
		Slot:     r.Slot,
		Notes:    r.Notes,
	}
}

type SetAvailabilityRequest struct {
	Availability []appointment.DayAvailability `json:"availability"`
}

type UpdateStatusRequest struct {
	Status           string     `json:"status"`
	SessionStartTime *time.Time `json:"sessionStartTime,omitempty"`
	SessionEndTime   *time.Time `json:"sessionEndTime,omitempty"`
}

func (r UpdateStatusRequest) Validate() error {
	statuses := make([]any, len(appointment.AllStatuses))
	for i, s := range appointment.AllStatuses {
		statuses[i] = string(s)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(statuses...).Error("invalid status")),
	)
}

type CreatePrescriptionRequest struct {
	Medicines []prescription.Medicine `json:"medicines"`
	Notes     *string                 `json:"notes,omitempty"`
}

type CreateBillRequest struct {
	Items      []billing.LineItem `json:"items"`
	TaxPercent *json.Number       `json:"taxPercent,omitempty"`
}

func (r CreateBillRequest) toDraft() billing.Draft {
	d := billing.Draft{Items: r.Items}
	if r.TaxPercent != nil {
		s := r.TaxPercent.String()
		d.TaxPercent = &s
	}
	return d
}

type UpdatePaymentRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (r UpdatePaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PaymentMethod, validation.Required,
			validation.In(string(billing.MethodCash), string(billing.MethodOnline)).Error("must be cash or online")),
	)
}

var errInvalidBody = apperr.Validation(apperr.FieldError{Field: "body", Message: "request body must be valid JSON"})

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(apperr.FieldError{Field: "body", Message: "request body is required"})
		}
		return errInvalidBody
	}
	return nil
}

// decodeAndValidate decodes the body into v and runs its ozzo rules.
func decodeAndValidate(r *http.Request, v validation.Validatable) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	return apperr.FromValidation(v.Validate())
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation(apperr.FieldError{Field: name, Message: "must be a valid UUID"})
	}
	return id, nil
}
