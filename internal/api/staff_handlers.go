package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

func getPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		p, err := svc.Get(r.Context(), ActorFrom(r.Context()), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, p)
	}
}

func getPrescriptionByAppointmentHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := pathID(r, "appointmentId")
		if err != nil {
			writeError(w, r, err)
			return
		}

		p, err := svc.GetByAppointment(r.Context(), ActorFrom(r.Context()), appointmentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, p)
	}
}

func listStaffBillsHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bills, err := svc.ListForDoctor(r.Context(), ActorFrom(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, bills)
	}
}

func createBillHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := pathID(r, "appointmentId")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req CreateBillRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		bill, err := svc.Create(r.Context(), ActorFrom(r.Context()).ID, appointmentID, req.toDraft())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, bill)
	}
}

func updatePaymentHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req UpdatePaymentRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		bill, err := svc.UpdatePayment(r.Context(), ActorFrom(r.Context()).ID, id, billing.PaymentMethod(req.PaymentMethod))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, bill)
	}
}

func voidBillHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		bill, err := svc.Void(r.Context(), ActorFrom(r.Context()).ID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, bill)
	}
}
