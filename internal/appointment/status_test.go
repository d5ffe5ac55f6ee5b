package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusInSession, StatusNoShow, StatusCancelled},
		StatusInSession: {StatusCompleted, StatusCancelled},
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusNoShow.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInSession.Terminal())
}

func TestActiveStatuses(t *testing.T) {
	for _, s := range AllStatuses {
		assert.Equal(t, s != StatusCancelled, s.Active(), s)
	}
}

func TestRoleMayRequest(t *testing.T) {
	assert.True(t, RoleMayRequest(RoleStaff, StatusNoShow))
	assert.False(t, RoleMayRequest(RoleDoctor, StatusNoShow))
	assert.True(t, RoleMayRequest(RoleDoctor, StatusInSession))
	assert.True(t, RoleMayRequest(RoleDoctor, StatusCompleted))

	for _, s := range AllStatuses {
		assert.False(t, RoleMayRequest(RolePatient, s), "patient -> %s", s)
	}
}
