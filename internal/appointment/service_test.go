package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

// Monday 2026-10-19, 10:00 UTC.
var testNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

const (
	nextMonday = "2026-10-26"
	yesterday  = "2026-10-18"
	today      = "2026-10-19"
	saturday   = "2026-10-24"
)

type fixture struct {
	repo     *MemoryRepository
	svc      *Service
	doctor   Doctor
	other    Doctor
	staff    Staff
	patients []Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, redisclient.NopLocker{})
}

func newFixtureWith(t *testing.T, locker redisclient.Locker) *fixture {
	t.Helper()

	repo := NewMemoryRepository()
	f := &fixture{repo: repo}

	availability := []DayAvailability{
		{Day: Mon, Slots: []string{"09:00-09:30", "09:30-10:00"}},
		{Day: Tue, Slots: []string{"14:00-14:30"}},
	}
	f.doctor = Doctor{ID: uuid.New(), Name: "Dr. Rao", Specialization: "Cardiology", Availability: availability}
	f.other = Doctor{ID: uuid.New(), Name: "Dr. Iyer", Specialization: "ENT", Availability: availability}
	repo.AddDoctor(f.doctor)
	repo.AddDoctor(f.other)

	f.staff = Staff{ID: uuid.New(), DoctorID: f.doctor.ID, Name: "Asha", Role: "nurse"}
	repo.AddStaff(f.staff)

	for i := 0; i < 30; i++ {
		p := Patient{ID: uuid.New(), Name: "patient"}
		repo.AddPatient(p)
		f.patients = append(f.patients, p)
	}

	f.svc = NewService(repo, locker, Options{
		Clock:    FixedClock{T: testNow},
		Location: time.UTC,
		Logger:   zerolog.Nop(),
	})
	return f
}

func (f *fixture) book(t *testing.T, patient int, doctorID uuid.UUID, date, slot string) *Appointment {
	t.Helper()
	appt, err := f.svc.Book(context.Background(), f.patients[patient].ID, BookingRequest{DoctorID: doctorID, Date: date, Slot: slot})
	require.NoError(t, err)
	return appt
}

func (f *fixture) doctorActor() Actor { return Actor{ID: f.doctor.ID, Role: RoleDoctor} }
func (f *fixture) staffActor() Actor  { return Actor{ID: f.staff.ID, Role: RoleStaff} }

func TestBook_Success(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, f.patients[0].ID, appt.PatientID)
	assert.Equal(t, f.doctor.ID, appt.DoctorID)

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventAppointmentBooked, events[0].EventType)
	assert.Equal(t, appt.ID, *events[0].AppointmentID)
}

func TestBook_TodayIsAllowed(t *testing.T) {
	f := newFixture(t)

	// same-day bookings are not checked against the slot's time of day
	appt := f.book(t, 0, f.doctor.ID, today, "09:00-09:30")
	assert.Equal(t, today, appt.Date)
}

func TestBook_PastDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.patients[0].ID, BookingRequest{
		DoctorID: f.doctor.ID,
		Date:     yesterday,
		Slot:     "23:00-23:30",
	})
	assert.ErrorIs(t, err, ErrPastDate)
	assert.Equal(t, apperr.CodeInvalidDate, apperr.CodeOf(err))
}

func TestBook_PastDateUsesClinicTimezone(t *testing.T) {
	repo := NewMemoryRepository()
	doctor := Doctor{ID: uuid.New(), Availability: []DayAvailability{{Day: Mon, Slots: []string{"09:00-09:30"}}}}
	patient := Patient{ID: uuid.New()}
	repo.AddDoctor(doctor)
	repo.AddPatient(patient)

	// 2026-10-19 20:00 UTC is already Tuesday 2026-10-20 in Kolkata
	loc := time.FixedZone("IST", 5*3600+1800)
	svc := NewService(repo, nil, Options{
		Clock:    FixedClock{T: time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)},
		Location: loc,
		Logger:   zerolog.Nop(),
	})

	_, err := svc.Book(context.Background(), patient.ID, BookingRequest{DoctorID: doctor.ID, Date: today, Slot: "09:00-09:30"})
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestBook_InvalidSlot(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		date string
		slot string
	}{
		{name: "not declared", date: nextMonday, slot: "11:00-11:30"},
		{name: "contained but not verbatim", date: nextMonday, slot: "09:00-09:15"},
		{name: "no entry for weekday", date: saturday, slot: "09:00-09:30"},
		{name: "declared on another weekday", date: nextMonday, slot: "14:00-14:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(context.Background(), f.patients[0].ID, BookingRequest{
				DoctorID: f.doctor.ID, Date: tt.date, Slot: tt.slot,
			})
			assert.ErrorIs(t, err, ErrInvalidSlot)
		})
	}
}

func TestBook_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.patients[0].ID, BookingRequest{
		DoctorID: f.doctor.ID, Date: "26-10-2026", Slot: "9:00-9:30",
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	ae, _ := apperr.As(err)
	fields := ae.Details.([]apperr.FieldError)
	assert.Len(t, fields, 2)
}

func TestBook_UnknownDoctorAndPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.patients[0].ID, BookingRequest{
		DoctorID: uuid.New(), Date: nextMonday, Slot: "09:00-09:30",
	})
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = f.svc.Book(context.Background(), uuid.New(), BookingRequest{
		DoctorID: f.doctor.ID, Date: nextMonday, Slot: "09:00-09:30",
	})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestBook_SlotTaken(t *testing.T) {
	f := newFixture(t)
	f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")

	_, err := f.svc.Book(context.Background(), f.patients[1].ID, BookingRequest{
		DoctorID: f.doctor.ID, Date: nextMonday, Slot: "09:00-09:30",
	})
	assert.ErrorIs(t, err, ErrSlotTaken)

	// other slots and other doctors are unaffected
	f.book(t, 1, f.doctor.ID, nextMonday, "09:30-10:00")
	f.book(t, 2, f.other.ID, nextMonday, "09:00-09:30")
}

func TestBook_PatientConflict(t *testing.T) {
	f := newFixture(t)
	f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")

	_, err := f.svc.Book(context.Background(), f.patients[0].ID, BookingRequest{
		DoctorID: f.other.ID, Date: nextMonday, Slot: "09:00-09:30",
	})
	assert.ErrorIs(t, err, ErrPatientConflict)
}

func TestBook_ConcurrentRequestsExactlyOneWins(t *testing.T) {
	f := newFixture(t)

	const contenders = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		taken   int
		unknown []error
		start   = make(chan struct{})
	)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.svc.Book(context.Background(), f.patients[i].ID, BookingRequest{
				DoctorID: f.doctor.ID, Date: nextMonday, Slot: "09:00-09:30",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSlotTaken):
				taken++
			default:
				unknown = append(unknown, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, taken)

	active, err := f.repo.ListAppointments(context.Background(), Filter{DoctorID: &f.doctor.ID, Date: nextMonday, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

// blindRepository hides existing bookings from the pre-checks so only the
// insert constraint can reject a conflict.
type blindRepository struct {
	*MemoryRepository
}

func (blindRepository) FindActiveBySlot(context.Context, uuid.UUID, string, string) (*Appointment, error) {
	return nil, ErrAppointmentNotFound
}

func (blindRepository) FindActiveForPatient(context.Context, uuid.UUID, string, string) (*Appointment, error) {
	return nil, ErrAppointmentNotFound
}

func TestBook_InsertConstraintIsAuthoritative(t *testing.T) {
	f := newFixture(t)
	svc := NewService(blindRepository{f.repo}, nil, Options{Clock: FixedClock{T: testNow}, Logger: zerolog.Nop()})

	_, err := svc.Book(context.Background(), f.patients[0].ID, BookingRequest{DoctorID: f.doctor.ID, Date: nextMonday, Slot: "09:00-09:30"})
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), f.patients[1].ID, BookingRequest{DoctorID: f.doctor.ID, Date: nextMonday, Slot: "09:00-09:30"})
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, err = svc.Book(context.Background(), f.patients[0].ID, BookingRequest{DoctorID: f.other.ID, Date: nextMonday, Slot: "09:00-09:30"})
	assert.ErrorIs(t, err, ErrPatientConflict)
}

type failingLocker struct{ calls int }

func (l *failingLocker) WithLock(context.Context, string, func(context.Context) error) error {
	l.calls++
	return redisclient.ErrLockNotAcquired
}

func TestBook_LockUnavailableFallsBackToConstraint(t *testing.T) {
	locker := &failingLocker{}
	f := newFixtureWith(t, locker)

	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, 1, locker.calls)

	_, err := f.svc.Book(context.Background(), f.patients[1].ID, BookingRequest{DoctorID: f.doctor.ID, Date: nextMonday, Slot: "09:00-09:30"})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCancel_FreesSlot(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")

	cancelled, err := f.svc.CancelByPatient(context.Background(), f.patients[0].ID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	rebooked := f.book(t, 1, f.doctor.ID, nextMonday, "09:00-09:30")
	assert.NotEqual(t, appt.ID, rebooked.ID)

	events := f.repo.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventAppointmentCancelled, events[1].EventType)
}

func TestCancel_Rules(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")

	_, err := f.svc.CancelByPatient(context.Background(), f.patients[1].ID, appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound, "other patients cannot see the appointment")

	_, err = f.svc.UpdateStatus(context.Background(), f.doctorActor(), appt.ID, StatusUpdate{Status: StatusConfirmed})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), f.doctorActor(), appt.ID, StatusUpdate{Status: StatusInSession})
	require.NoError(t, err)

	_, err = f.svc.CancelByPatient(context.Background(), f.patients[0].ID, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_PastAppointment(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")

	later := NewService(f.repo, nil, Options{Clock: FixedClock{T: testNow.AddDate(0, 0, 8)}, Logger: zerolog.Nop()})
	_, err := later.CancelByPatient(context.Background(), f.patients[0].ID, appt.ID)
	assert.ErrorIs(t, err, ErrPastAppointment)
}

func TestUpdateStatus_FullSessionFlow(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	ctx := context.Background()

	updated, err := f.svc.UpdateStatus(ctx, f.staffActor(), appt.ID, StatusUpdate{Status: StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)

	started := testNow.Add(-30 * time.Minute)
	updated, err = f.svc.UpdateStatus(ctx, f.doctorActor(), appt.ID, StatusUpdate{Status: StatusInSession, SessionStartTime: &started})
	require.NoError(t, err)
	require.NotNil(t, updated.SessionStartTime)
	assert.True(t, started.Equal(*updated.SessionStartTime))

	updated, err = f.svc.UpdateStatus(ctx, f.doctorActor(), appt.ID, StatusUpdate{Status: StatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, updated.SessionEndTime)
	assert.True(t, testNow.Equal(*updated.SessionEndTime), "end defaults to the clock")

	for _, s := range AllStatuses {
		_, err = f.svc.UpdateStatus(ctx, f.staffActor(), appt.ID, StatusUpdate{Status: s})
		assert.ErrorIs(t, err, ErrInvalidTransition, "completed -> %s", s)
	}
}

func TestUpdateStatus_TransitionTableCheckedBeforeRole(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.staffActor(), appt.ID, StatusUpdate{Status: StatusPending})
	assert.ErrorIs(t, err, ErrInvalidTransition, "staff pending -> pending")

	for _, s := range []AppointmentStatus{StatusConfirmed, StatusInSession, StatusCompleted} {
		_, err = f.svc.UpdateStatus(ctx, f.doctorActor(), appt.ID, StatusUpdate{Status: s})
		require.NoError(t, err)
	}

	for _, s := range AllStatuses {
		_, err = f.svc.UpdateStatus(ctx, f.doctorActor(), appt.ID, StatusUpdate{Status: s})
		assert.ErrorIs(t, err, ErrInvalidTransition, "doctor completed -> %s", s)
		assert.False(t, errors.Is(err, ErrAccessDenied), "doctor completed -> %s", s)
	}
}

func TestUpdateStatus_SkippingStatesRejected(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")

	_, err := f.svc.UpdateStatus(context.Background(), f.doctorActor(), appt.ID, StatusUpdate{Status: StatusInSession})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current, err := f.repo.GetAppointmentByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, current.Status)
}

func TestUpdateStatus_RolePolicy(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.doctorActor(), appt.ID, StatusUpdate{Status: StatusConfirmed})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.doctorActor(), appt.ID, StatusUpdate{Status: StatusNoShow})
	assert.ErrorIs(t, err, ErrAccessDenied, "only staff may mark no-show")

	_, err = f.svc.UpdateStatus(ctx, Actor{ID: f.patients[0].ID, Role: RolePatient}, appt.ID, StatusUpdate{Status: StatusCancelled})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.svc.UpdateStatus(ctx, Actor{ID: f.other.ID, Role: RoleDoctor}, appt.ID, StatusUpdate{Status: StatusCancelled})
	assert.ErrorIs(t, err, ErrAccessDenied)

	updated, err := f.svc.UpdateStatus(ctx, f.staffActor(), appt.ID, StatusUpdate{Status: StatusNoShow})
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, updated.Status)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")

	_, err := f.svc.UpdateStatus(context.Background(), f.doctorActor(), appt.ID, StatusUpdate{Status: "archived"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApplyChange_LostRaceReportsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	ctx := context.Background()

	stale := *appt
	_, err := f.svc.CancelByPatient(ctx, f.patients[0].ID, appt.ID)
	require.NoError(t, err)

	_, err = f.svc.applyChange(ctx, &stale, StatusChange{From: StatusPending, To: StatusConfirmed})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current, err := f.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, current.Status)
}

func TestSetAvailability_GrandfathersOrphanedBookings(t *testing.T) {
	f := newFixture(t)
	f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	orphan := f.book(t, 1, f.doctor.ID, nextMonday, "09:30-10:00")

	result, err := f.svc.SetAvailability(context.Background(), f.doctor.ID, []DayAvailability{
		{Day: Mon, Slots: []string{"09:00-09:30"}},
	})
	require.NoError(t, err)

	require.Len(t, result.OrphanedAppointments, 1)
	assert.Equal(t, orphan.ID, result.OrphanedAppointments[0].ID)

	still, err := f.repo.GetAppointmentByID(context.Background(), orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, still.Status)

	avail, err := f.svc.GetAvailability(context.Background(), f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, []DayAvailability{{Day: Mon, Slots: []string{"09:00-09:30"}}}, avail)

	_, err = f.svc.Book(context.Background(), f.patients[2].ID, BookingRequest{DoctorID: f.doctor.ID, Date: nextMonday, Slot: "09:30-10:00"})
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestSetAvailability_RejectsOverlapAndKeepsPrevious(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetAvailability(context.Background(), f.doctor.ID, []DayAvailability{
		{Day: Mon, Slots: []string{"09:00-09:30", "09:15-09:45"}},
	})
	assert.ErrorIs(t, err, ErrSlotOverlap)

	avail, err := f.svc.GetAvailability(context.Background(), f.doctor.ID)
	require.NoError(t, err)
	assert.Len(t, avail, 2)
}

func TestListForDoctor_Scopes(t *testing.T) {
	f := newFixture(t)
	f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	f.book(t, 1, f.other.ID, nextMonday, "09:00-09:30")
	ctx := context.Background()

	mine, err := f.svc.ListForDoctor(ctx, f.doctorActor(), "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	viaStaff, err := f.svc.ListForDoctor(ctx, f.staffActor(), nextMonday)
	require.NoError(t, err)
	assert.Equal(t, mine, viaStaff)

	_, err = f.svc.ListForDoctor(ctx, Actor{ID: f.patients[0].ID, Role: RolePatient}, "")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.svc.ListForDoctor(ctx, f.doctorActor(), "next monday")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListForPatient_DateRange(t *testing.T) {
	f := newFixture(t)
	f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	f.book(t, 0, f.doctor.ID, "2026-10-27", "14:00-14:30")

	all, err := f.svc.ListForPatient(context.Background(), f.patients[0].ID, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	first, err := f.svc.ListForPatient(context.Background(), f.patients[0].ID, nextMonday, nextMonday)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, nextMonday, first[0].Date)
}

func TestListForPatient_BadDatesReportedInOrder(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 20; i++ {
		_, err := f.svc.ListForPatient(context.Background(), f.patients[0].ID, "19-10-2026", "tomorrow")
		appErr, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, []apperr.FieldError{
			{Field: "from", Message: "date must be in YYYY-MM-DD format"},
			{Field: "to", Message: "date must be in YYYY-MM-DD format"},
		}, appErr.Details)
	}
}

func TestGetAppointment_Access(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	ctx := context.Background()

	_, err := f.svc.GetAppointment(ctx, Actor{ID: f.patients[0].ID, Role: RolePatient}, appt.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetAppointment(ctx, f.staffActor(), appt.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetAppointment(ctx, Actor{ID: f.patients[1].ID, Role: RolePatient}, appt.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.svc.GetAppointment(ctx, Actor{ID: uuid.New(), Role: RoleStaff}, appt.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.svc.GetAppointment(ctx, f.doctorActor(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDoctorViews(t *testing.T) {
	f := newFixture(t)
	f.book(t, 0, f.doctor.ID, nextMonday, "09:00-09:30")
	f.book(t, 0, f.doctor.ID, "2026-10-27", "14:00-14:30")
	ctx := context.Background()

	patients, err := f.svc.ListPatientsForDoctor(ctx, f.doctor.ID)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, f.patients[0].ID, patients[0].ID)

	staff, err := f.svc.ListStaff(ctx, f.doctor.ID)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, f.staff.ID, staff[0].ID)

	doctors, err := f.svc.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 2)
}
