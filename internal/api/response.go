package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeValidation:         http.StatusUnprocessableEntity,
	apperr.CodeInvalidDate:        http.StatusUnprocessableEntity,
	apperr.CodePastAppointment:    http.StatusUnprocessableEntity,
	apperr.CodeInvalidSlot:        http.StatusUnprocessableEntity,
	apperr.CodeSlotOverlap:        http.StatusUnprocessableEntity,
	apperr.CodeInvalidTransition:  http.StatusUnprocessableEntity,
	apperr.CodeInvalidState:       http.StatusUnprocessableEntity,
	apperr.CodeSlotTaken:          http.StatusConflict,
	apperr.CodePatientConflict:    http.StatusConflict,
	apperr.CodePrescriptionExists: http.StatusConflict,
	apperr.CodeBillExists:         http.StatusConflict,
	apperr.CodeAlreadyPaid:        http.StatusConflict,
	apperr.CodePaymentFailed:      http.StatusPaymentRequired,
	apperr.CodeEmailExists:        http.StatusConflict,
	apperr.CodeNotFound:           http.StatusNotFound,
	apperr.CodeAccessDenied:       http.StatusForbidden,
	apperr.CodeUnauthenticated:    http.StatusUnauthorized,
	apperr.CodeServer:             http.StatusInternalServerError,
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code apperr.Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError renders err in the failure envelope. Anything that is not a
// domain error is logged and reported as SERVER_ERROR without its cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("unexpected error")
		ae = apperr.New(apperr.CodeServer, "internal server error")
	}

	writeJSON(w, HTTPStatus(ae.Code), envelope{
		Success: false,
		Error: &errorBody{
			Code:    ae.Code,
			Message: ae.Message,
			Details: ae.Details,
		},
	})
}
