package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

// Patient handlers

func listDoctorsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, doctors)
	}
}

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.Book(r.Context(), ActorFrom(r.Context()).ID, req.toDomain())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, appt)
	}
}

func listPatientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		appts, err := svc.ListForPatient(r.Context(), ActorFrom(r.Context()).ID, q.Get("from"), q.Get("to"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, appts)
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.CancelByPatient(r.Context(), ActorFrom(r.Context()).ID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, appt)
	}
}

func listPatientPrescriptionsHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.ListForPatient(r.Context(), ActorFrom(r.Context()).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, ps)
	}
}

func listPatientBillsHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bills, err := svc.ListForPatient(r.Context(), ActorFrom(r.Context()).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, bills)
	}
}

func payBillHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		bill, err := svc.Pay(r.Context(), ActorFrom(r.Context()).ID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, bill)
	}
}

// Shared by doctor and staff

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.GetAppointment(r.Context(), ActorFrom(r.Context()), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, appt)
	}
}

func listDoctorAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListForDoctor(r.Context(), ActorFrom(r.Context()), r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, appts)
	}
}

func updateStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req UpdateStatusRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), ActorFrom(r.Context()), id, appointment.StatusUpdate{
			Status:           appointment.AppointmentStatus(req.Status),
			SessionStartTime: req.SessionStartTime,
			SessionEndTime:   req.SessionEndTime,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, appt)
	}
}

func listDoctorPrescriptionsHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.ListForDoctor(r.Context(), ActorFrom(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, ps)
	}
}
