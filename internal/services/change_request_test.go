package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admissionscheduling/internal/domain"
)

// changeFixture sets up a booked appointment plus one free slot to move to.
type changeFixture struct {
	*fixture
	booking domain.BookingService
	svc     domain.ChangeRequestService
	event   *domain.Event
	oldSlot *domain.Slot
	newSlot *domain.Slot
	appt    *domain.Appointment
}

func newChangeFixture(t *testing.T) *changeFixture {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)

	f := newFixture()
	booking := NewBookingService(f.events, f.windows, f.slots, f.appts, f.tx, f.notifier, noopAuditLog{}, f.logger)
	changes := NewChangeRequestService(f.appts, f.changes, f.windows, f.slots, f.tx, f.notifier, noopAuditLog{}, f.logger)

	event := f.addEvent(domain.CapacitySingle, nil)
	window := f.addWindow(event.ID, start, start.Add(time.Hour), 30)
	oldSlot := f.addSlot(window.ID, start, 30)
	newSlot := f.addSlot(window.ID, start.Add(30*time.Minute), 30)

	appt, err := booking.Assign(ctx, applicant, event.ID, oldSlot.ID, applicant.ID, "")
	require.NoError(t, err)

	return &changeFixture{
		fixture: f,
		booking: booking,
		svc:     changes,
		event:   event,
		oldSlot: oldSlot,
		newSlot: newSlot,
		appt:    appt,
	}
}

func TestChangeRequestService_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("applicant requests a move", func(t *testing.T) {
		cf := newChangeFixture(t)
		req, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "afternoon works better", "any slot after 14:00")
		require.NoError(t, err)
		assert.Equal(t, domain.ChangeRequestPending, req.Status)
		assert.Equal(t, applicant.ID, req.RequestedBy)
		assert.Equal(t, cf.appt.ID, req.AppointmentID)
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		cf := newChangeFixture(t)
		stranger := domain.Actor{ID: "user-9", Role: domain.RoleApplicant}
		_, err := cf.svc.Request(ctx, stranger, cf.appt.ID, "x", "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("cancelled appointment refuses requests", func(t *testing.T) {
		cf := newChangeFixture(t)
		require.NoError(t, cf.booking.Cancel(ctx, applicant, cf.appt.ID, "sick"))
		_, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "x", "")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		cf := newChangeFixture(t)
		_, err := cf.svc.Request(ctx, applicant, "appt-missing", "x", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestChangeRequestService_Decide(t *testing.T) {
	ctx := context.Background()

	t.Run("accept moves the appointment atomically", func(t *testing.T) {
		cf := newChangeFixture(t)
		req, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "afternoon", "")
		require.NoError(t, err)

		decided, err := cf.svc.Decide(ctx, coordinator, req.ID, domain.ChangeRequestAccepted, &cf.newSlot.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ChangeRequestAccepted, decided.Status)
		require.NotNil(t, decided.DecidedBy)
		assert.Equal(t, coordinator.ID, *decided.DecidedBy)

		oldSlot, err := cf.slots.GetByID(ctx, cf.oldSlot.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SlotFree, oldSlot.Status)

		newSlot, err := cf.slots.GetByID(ctx, cf.newSlot.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SlotBooked, newSlot.Status)
		require.NotNil(t, newSlot.HeldBy)
		assert.Equal(t, applicant.ID, *newSlot.HeldBy)

		appt, err := cf.appts.GetByID(ctx, cf.appt.ID)
		require.NoError(t, err)
		assert.Equal(t, cf.newSlot.ID, appt.SlotID)
		assert.Equal(t, domain.AppointmentScheduled, appt.Status)
	})

	t.Run("accept on a taken slot leaves everything untouched", func(t *testing.T) {
		cf := newChangeFixture(t)
		req, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "afternoon", "")
		require.NoError(t, err)

		// Someone else grabs the target slot first.
		_, err = cf.booking.Assign(ctx, coordinator, cf.event.ID, cf.newSlot.ID, "user-2", "")
		require.NoError(t, err)

		_, err = cf.svc.Decide(ctx, coordinator, req.ID, domain.ChangeRequestAccepted, &cf.newSlot.ID)
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

		oldSlot, err := cf.slots.GetByID(ctx, cf.oldSlot.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SlotBooked, oldSlot.Status)

		appt, err := cf.appts.GetByID(ctx, cf.appt.ID)
		require.NoError(t, err)
		assert.Equal(t, cf.oldSlot.ID, appt.SlotID)

		pending, err := cf.svc.ListForAppointment(ctx, cf.appt.ID)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, domain.ChangeRequestPending, pending[0].Status)
	})

	t.Run("reject leaves the appointment in place", func(t *testing.T) {
		cf := newChangeFixture(t)
		req, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "afternoon", "")
		require.NoError(t, err)

		decided, err := cf.svc.Decide(ctx, coordinator, req.ID, domain.ChangeRequestRejected, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.ChangeRequestRejected, decided.Status)

		appt, err := cf.appts.GetByID(ctx, cf.appt.ID)
		require.NoError(t, err)
		assert.Equal(t, cf.oldSlot.ID, appt.SlotID)
	})

	t.Run("deciding twice is rejected", func(t *testing.T) {
		cf := newChangeFixture(t)
		req, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "afternoon", "")
		require.NoError(t, err)

		_, err = cf.svc.Decide(ctx, coordinator, req.ID, domain.ChangeRequestRejected, nil)
		require.NoError(t, err)
		_, err = cf.svc.Decide(ctx, coordinator, req.ID, domain.ChangeRequestAccepted, &cf.newSlot.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("accept without a new slot", func(t *testing.T) {
		cf := newChangeFixture(t)
		req, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "afternoon", "")
		require.NoError(t, err)

		_, err = cf.svc.Decide(ctx, coordinator, req.ID, domain.ChangeRequestAccepted, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("bad status value", func(t *testing.T) {
		cf := newChangeFixture(t)
		req, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "afternoon", "")
		require.NoError(t, err)

		_, err = cf.svc.Decide(ctx, coordinator, req.ID, domain.ChangeRequestStatus("approved"), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("applicant cannot decide", func(t *testing.T) {
		cf := newChangeFixture(t)
		req, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "afternoon", "")
		require.NoError(t, err)

		_, err = cf.svc.Decide(ctx, applicant, req.ID, domain.ChangeRequestRejected, nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestChangeRequestService_ListForAppointment(t *testing.T) {
	ctx := context.Background()

	cf := newChangeFixture(t)
	_, err := cf.svc.Request(ctx, applicant, cf.appt.ID, "first ask", "")
	require.NoError(t, err)

	reqs, err := cf.svc.ListForAppointment(ctx, cf.appt.ID)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	_, err = cf.svc.ListForAppointment(ctx, "appt-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
