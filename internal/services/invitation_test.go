package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admissionscheduling/internal/domain"
)

func newInvitationFixture(t *testing.T, directory domain.ProgramDirectory) (*fixture, domain.InvitationService) {
	t.Helper()
	f := newFixture()
	if directory == nil {
		directory = &staticDirectory{}
	}
	svc := NewInvitationService(f.events, f.attendances, f.invitations, directory, f.tx, f.notifier, noopAuditLog{}, f.logger)
	return f, svc
}

func TestInvitationService_Invite(t *testing.T) {
	ctx := context.Background()

	t.Run("batch reports per-user outcomes", func(t *testing.T) {
		directory := &staticDirectory{enrollments: map[string][]string{
			"prog-cs": {"user-1", "user-2", "user-3"},
		}}
		f, svc := newInvitationFixture(t, directory)
		programID := "prog-cs"
		event := &domain.Event{
			Title: "welcome workshop", ProgramID: &programID,
			CapacityModel: domain.CapacityMultiple, MaxCapacity: intPtr(10),
			Status: domain.EventPublished, CreatedBy: coordinator.ID,
		}
		require.NoError(t, f.events.Create(ctx, event))

		// user-2 is already registered, user-3 already invited, user-4 is
		// enrolled in a different program.
		require.NoError(t, f.attendances.Create(ctx, &domain.EventAttendance{
			EventID: event.ID, UserID: "user-2", Status: domain.AttendanceRegistered,
		}))
		require.NoError(t, f.invitations.Create(ctx, &domain.EventInvitation{
			EventID: event.ID, UserID: "user-3", InvitedBy: coordinator.ID, Status: domain.InvitationPending,
		}))

		results, err := svc.Invite(ctx, coordinator, event.ID, []string{"user-1", "user-2", "user-3", "user-4"}, "please join")
		require.NoError(t, err)
		require.Len(t, results, 4)
		assert.Equal(t, domain.InviteOutcomeInvited, results[0].Outcome)
		assert.Equal(t, domain.InviteOutcomeAlreadyRegistered, results[1].Outcome)
		assert.Equal(t, domain.InviteOutcomeAlreadyInvited, results[2].Outcome)
		assert.Equal(t, domain.InviteOutcomeWrongProgram, results[3].Outcome)

		inv, err := f.invitations.GetByEventAndUser(ctx, event.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationPending, inv.Status)

		// Only the fresh invitation produced a notification.
		require.Len(t, f.notifier.sent, 1)
		assert.Equal(t, domain.TemplateEventInvitation, f.notifier.sent[0].TemplateKey)
		assert.Equal(t, "user-1", f.notifier.sent[0].UserID)
	})

	t.Run("global event skips the program check", func(t *testing.T) {
		f, svc := newInvitationFixture(t, &staticDirectory{})
		event := f.addEvent(domain.CapacityUnlimited, nil)

		results, err := svc.Invite(ctx, coordinator, event.ID, []string{"user-1"}, "")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, domain.InviteOutcomeInvited, results[0].Outcome)
	})

	t.Run("interview events cannot be invited to", func(t *testing.T) {
		f, svc := newInvitationFixture(t, nil)
		event := f.addEvent(domain.CapacitySingle, nil)

		_, err := svc.Invite(ctx, coordinator, event.ID, []string{"user-1"}, "")
		assert.ErrorIs(t, err, domain.ErrWrongCapacityModel)
	})

	t.Run("applicants cannot invite", func(t *testing.T) {
		f, svc := newInvitationFixture(t, nil)
		event := f.addEvent(domain.CapacityUnlimited, nil)

		_, err := svc.Invite(ctx, applicant, event.ID, []string{"user-1"}, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestInvitationService_Respond(t *testing.T) {
	ctx := context.Background()

	invite := func(t *testing.T, f *fixture, svc domain.InvitationService, eventID, userID string) *domain.EventInvitation {
		t.Helper()
		results, err := svc.Invite(ctx, coordinator, eventID, []string{userID}, "")
		require.NoError(t, err)
		require.Equal(t, domain.InviteOutcomeInvited, results[0].Outcome)
		inv, err := f.invitations.GetByEventAndUser(ctx, eventID, userID)
		require.NoError(t, err)
		return inv
	}

	t.Run("accept registers the user", func(t *testing.T) {
		f, svc := newInvitationFixture(t, nil)
		event := f.addEvent(domain.CapacityMultiple, intPtr(5))
		inv := invite(t, f, svc, event.ID, applicant.ID)

		resolved, err := svc.Respond(ctx, applicant, inv.ID, true)
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationAccepted, resolved.Status)
		assert.NotNil(t, resolved.RespondedAt)

		att, err := f.attendances.GetByEventAndUser(ctx, event.ID, applicant.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AttendanceRegistered, att.Status)
	})

	t.Run("reject leaves no registration", func(t *testing.T) {
		f, svc := newInvitationFixture(t, nil)
		event := f.addEvent(domain.CapacityMultiple, intPtr(5))
		inv := invite(t, f, svc, event.ID, applicant.ID)

		resolved, err := svc.Respond(ctx, applicant, inv.ID, false)
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationRejected, resolved.Status)

		_, err = f.attendances.GetByEventAndUser(ctx, event.ID, applicant.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("accept on a full event settles the invitation rejected", func(t *testing.T) {
		f, svc := newInvitationFixture(t, nil)
		event := f.addEvent(domain.CapacityMultiple, intPtr(1))
		inv := invite(t, f, svc, event.ID, applicant.ID)

		// The last seat goes to someone else before the response arrives.
		require.NoError(t, f.attendances.Create(ctx, &domain.EventAttendance{
			EventID: event.ID, UserID: "user-2", Status: domain.AttendanceRegistered,
		}))

		_, err := svc.Respond(ctx, applicant, inv.ID, true)
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

		settled, err := f.invitations.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationRejected, settled.Status)

		_, err = f.attendances.GetByEventAndUser(ctx, event.ID, applicant.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("only the invited user may respond", func(t *testing.T) {
		f, svc := newInvitationFixture(t, nil)
		event := f.addEvent(domain.CapacityUnlimited, nil)
		inv := invite(t, f, svc, event.ID, applicant.ID)

		stranger := domain.Actor{ID: "user-9", Role: domain.RoleApplicant}
		_, err := svc.Respond(ctx, stranger, inv.ID, true)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("responding twice is rejected", func(t *testing.T) {
		f, svc := newInvitationFixture(t, nil)
		event := f.addEvent(domain.CapacityUnlimited, nil)
		inv := invite(t, f, svc, event.ID, applicant.ID)

		_, err := svc.Respond(ctx, applicant, inv.ID, false)
		require.NoError(t, err)
		_, err = svc.Respond(ctx, applicant, inv.ID, true)
		assert.ErrorIs(t, err, domain.ErrAlreadyResponded)
	})

	t.Run("unknown invitation", func(t *testing.T) {
		_, svc := newInvitationFixture(t, nil)
		_, err := svc.Respond(ctx, applicant, "inv-missing", true)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("a stale pending read cannot overturn a settled invitation", func(t *testing.T) {
		f, svc := newInvitationFixture(t, nil)
		event := f.addEvent(domain.CapacityMultiple, intPtr(5))
		inv := invite(t, f, svc, event.ID, applicant.ID)

		// First response wins: invitation accepted, attendance created.
		_, err := svc.Respond(ctx, applicant, inv.ID, true)
		require.NoError(t, err)

		// A second response that read the invitation before the winner
		// committed still sees it pending.
		stale := *inv
		lagged := NewInvitationService(f.events, f.attendances,
			&staleInvitationRepo{InvitationRepository: f.invitations, stale: &stale},
			&staticDirectory{}, f.tx, f.notifier, noopAuditLog{}, f.logger)

		_, err = lagged.Respond(ctx, applicant, inv.ID, true)
		assert.ErrorIs(t, err, domain.ErrAlreadyResponded)

		// The winning outcome stands: invitation accepted, registration kept.
		settled, err := f.invitations.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationAccepted, settled.Status)
		att, err := f.attendances.GetByEventAndUser(ctx, event.ID, applicant.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AttendanceRegistered, att.Status)
	})
}

// staleInvitationRepo serves one invitation from a snapshot taken before a
// concurrent response committed, emulating a read that raced the winner.
type staleInvitationRepo struct {
	domain.InvitationRepository
	stale *domain.EventInvitation
}

func (r *staleInvitationRepo) GetByID(ctx context.Context, id string) (*domain.EventInvitation, error) {
	if r.stale != nil && r.stale.ID == id {
		cp := *r.stale
		return &cp, nil
	}
	return r.InvitationRepository.GetByID(ctx, id)
}

func TestInvitationService_ListInvitations(t *testing.T) {
	ctx := context.Background()
	f, svc := newInvitationFixture(t, nil)
	event := f.addEvent(domain.CapacityUnlimited, nil)

	_, err := svc.Invite(ctx, coordinator, event.ID, []string{"user-1", "user-2"}, "")
	require.NoError(t, err)

	invs, err := svc.ListInvitations(ctx, coordinator, event.ID)
	require.NoError(t, err)
	assert.Len(t, invs, 2)

	_, err = svc.ListInvitations(ctx, applicant, event.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
