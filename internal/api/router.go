package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Prescriptions *prescription.Service
	Billing       *billing.Service
	PgPool        Pinger
	Redis         *redis.Client
	// Metrics serves /metrics when set, normally promhttp.Handler().
	Metrics http.Handler
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/patient", func(r chi.Router) {
		r.Use(RequireRole(appointment.RolePatient))

		r.Get("/doctors", listDoctorsHandler(cfg.Appointments))
		r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
		r.Get("/appointments", listPatientAppointmentsHandler(cfg.Appointments))
		r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Appointments))
		r.Get("/prescriptions", listPatientPrescriptionsHandler(cfg.Prescriptions))
		r.Get("/bills", listPatientBillsHandler(cfg.Billing))
		r.Post("/bills/{id}/pay", payBillHandler(cfg.Billing))
	})

	r.Route("/doctor", func(r chi.Router) {
		r.Use(RequireRole(appointment.RoleDoctor))

		r.Get("/availability", getAvailabilityHandler(cfg.Appointments))
		r.Put("/availability", setAvailabilityHandler(cfg.Appointments))
		r.Get("/appointments", listDoctorAppointmentsHandler(cfg.Appointments))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.Put("/appointments/{id}/status", updateStatusHandler(cfg.Appointments))
		r.Get("/patients", listDoctorPatientsHandler(cfg.Appointments))
		r.Get("/staff", listDoctorStaffHandler(cfg.Appointments))
		r.Post("/staff", addStaffHandler(cfg.Appointments))
		r.Put("/staff/{id}", updateStaffHandler(cfg.Appointments))
		r.Delete("/staff/{id}", removeStaffHandler(cfg.Appointments))
		r.Post("/prescriptions/{appointmentId}", createPrescriptionHandler(cfg.Prescriptions))
		r.Get("/prescriptions", listDoctorPrescriptionsHandler(cfg.Prescriptions))
	})

	r.Route("/staff", func(r chi.Router) {
		r.Use(RequireRole(appointment.RoleStaff))

		r.Get("/appointments", listDoctorAppointmentsHandler(cfg.Appointments))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.Put("/appointments/{id}/status", updateStatusHandler(cfg.Appointments))
		r.Get("/prescriptions", listDoctorPrescriptionsHandler(cfg.Prescriptions))
		r.Get("/prescriptions/appointment/{appointmentId}", getPrescriptionByAppointmentHandler(cfg.Prescriptions))
		r.Get("/prescriptions/{id}", getPrescriptionHandler(cfg.Prescriptions))
		r.Get("/bills", listStaffBillsHandler(cfg.Billing))
		r.Post("/bills/{appointmentId}", createBillHandler(cfg.Billing))
		r.Put("/bills/{id}/payment", updatePaymentHandler(cfg.Billing))
		r.Post("/bills/{id}/void", voidBillHandler(cfg.Billing))
	})

	return r
}
