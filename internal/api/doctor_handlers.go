package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

func getAvailabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availability, err := svc.GetAvailability(r.Context(), ActorFrom(r.Context()).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, availability)
	}
}

func setAvailabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetAvailabilityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		result, err := svc.SetAvailability(r.Context(), ActorFrom(r.Context()).ID, req.Availability)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}

func listDoctorPatientsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := svc.ListPatientsForDoctor(r.Context(), ActorFrom(r.Context()).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, patients)
	}
}

func listDoctorStaffHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff, err := svc.ListStaff(r.Context(), ActorFrom(r.Context()).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, staff)
	}
}

func addStaffHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.StaffDraft
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		staff, err := svc.AddStaff(r.Context(), ActorFrom(r.Context()).ID, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, staff)
	}
}

func updateStaffHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req appointment.StaffDraft
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		staff, err := svc.UpdateStaff(r.Context(), ActorFrom(r.Context()).ID, staffID, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, staff)
	}
}

func removeStaffHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		if err := svc.RemoveStaff(r.Context(), ActorFrom(r.Context()).ID, staffID); err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"id": staffID.String()})
	}
}

func createPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := pathID(r, "appointmentId")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req CreatePrescriptionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		p, err := svc.Create(r.Context(), ActorFrom(r.Context()).ID, appointmentID, prescription.Draft{
			Medicines: req.Medicines,
			Notes:     req.Notes,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, p)
	}
}
