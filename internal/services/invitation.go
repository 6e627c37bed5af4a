package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"admissionscheduling/internal/domain"
)

type invitationService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	invitationRepo domain.InvitationRepository
	directory      domain.ProgramDirectory
	tx             domain.TxManager
	notifier       domain.Notifier
	audit          domain.AuditLog
	logger         *slog.Logger
}

// NewInvitationService creates the broker for targeted open-enrollment
// invitations.
func NewInvitationService(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	invitationRepo domain.InvitationRepository,
	directory domain.ProgramDirectory,
	tx domain.TxManager,
	notifier domain.Notifier,
	audit domain.AuditLog,
	logger *slog.Logger,
) domain.InvitationService {
	return &invitationService{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		invitationRepo: invitationRepo,
		directory:      directory,
		tx:             tx,
		notifier:       notifier,
		audit:          audit,
		logger:         logger,
	}
}

func (s *invitationService) Invite(ctx context.Context, actor domain.Actor, eventID string, userIDs []string, notes string) ([]domain.InviteResult, error) {
	if !actor.CanManage() {
		return nil, domain.ErrForbidden
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.CapacityModel.UsesSlots() {
		return nil, domain.ErrWrongCapacityModel
	}

	results := make([]domain.InviteResult, 0, len(userIDs))
	for _, userID := range userIDs {
		outcome, err := s.inviteOne(ctx, actor, event, userID, notes)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.InviteResult{UserID: userID, Outcome: outcome})
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "invite", Entity: "event", EntityID: eventID,
		Detail: fmt.Sprintf("users=%d", len(userIDs)),
	})
	return results, nil
}

// inviteOne categorizes skips instead of failing the batch; only storage
// faults abort the whole call.
func (s *invitationService) inviteOne(ctx context.Context, actor domain.Actor, event *domain.Event, userID, notes string) (domain.InviteOutcome, error) {
	if event.ProgramID != nil {
		enrolled, err := s.directory.IsEnrolled(ctx, userID, *event.ProgramID)
		if err != nil {
			return "", fmt.Errorf("check program enrollment: %w", err)
		}
		if !enrolled {
			return domain.InviteOutcomeWrongProgram, nil
		}
	}

	if _, err := s.attendanceRepo.GetByEventAndUser(ctx, event.ID, userID); err == nil {
		return domain.InviteOutcomeAlreadyRegistered, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("get attendance: %w", err)
	}

	if _, err := s.invitationRepo.GetByEventAndUser(ctx, event.ID, userID); err == nil {
		return domain.InviteOutcomeAlreadyInvited, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("get invitation: %w", err)
	}

	now := time.Now()
	inv := &domain.EventInvitation{
		EventID:   event.ID,
		UserID:    userID,
		InvitedBy: actor.ID,
		Status:    domain.InvitationPending,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrAlreadyInvited) {
			return domain.InviteOutcomeAlreadyInvited, nil
		}
		return "", fmt.Errorf("create invitation: %w", err)
	}

	n := &domain.Notification{UserID: userID, TemplateKey: domain.TemplateEventInvitation, Data: map[string]any{
		"event_id":      event.ID,
		"event_title":   event.Title,
		"invitation_id": inv.ID,
	}}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "template", n.TemplateKey, "user_id", userID, "err", err)
	}
	return domain.InviteOutcomeInvited, nil
}

func (s *invitationService) Respond(ctx context.Context, actor domain.Actor, invitationID string, accept bool) (*domain.EventInvitation, error) {
	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	// Only the invited user may respond.
	if inv.UserID != actor.ID {
		return nil, domain.ErrForbidden
	}
	if inv.Status != domain.InvitationPending {
		return nil, domain.ErrAlreadyResponded
	}

	now := time.Now()

	if !accept {
		if err := s.invitationRepo.SetStatus(ctx, invitationID, domain.InvitationRejected, now); err != nil {
			if errors.Is(err, domain.ErrAlreadyResponded) {
				return nil, domain.ErrAlreadyResponded
			}
			return nil, fmt.Errorf("reject invitation: %w", err)
		}
		inv.Status = domain.InvitationRejected
		inv.RespondedAt = &now
		return inv, nil
	}

	// Acceptance and registration commit together; an accepted invitation
	// without a matching attendance row must never be observable. The
	// conditional SetStatus re-checks pending inside the transaction, so a
	// response that raced past the read above still loses here.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := registerAttendance(ctx, s.eventRepo, s.attendanceRepo, inv.EventID, inv.UserID, inv.Notes); err != nil {
			return err
		}
		if err := s.invitationRepo.SetStatus(ctx, invitationID, domain.InvitationAccepted, now); err != nil {
			return fmt.Errorf("accept invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyResponded) {
			return nil, domain.ErrAlreadyResponded
		}
		// Registration lost (capacity just filled, or a parallel direct
		// registration). The acceptance was rolled back; settle the
		// invitation as rejected instead of leaving it claimable.
		if errors.Is(err, domain.ErrCapacityExceeded) || errors.Is(err, domain.ErrAlreadyRegistered) {
			if rerr := s.invitationRepo.SetStatus(ctx, invitationID, domain.InvitationRejected, now); rerr != nil {
				if errors.Is(rerr, domain.ErrAlreadyResponded) {
					// Another response settled the invitation first; its
					// outcome stands.
					return nil, domain.ErrAlreadyResponded
				}
				s.logger.ErrorContext(ctx, "failed to settle invitation after lost registration", "invitation_id", invitationID, "err", rerr)
			}
		}
		return nil, err
	}

	inv.Status = domain.InvitationAccepted
	inv.RespondedAt = &now
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "respond_invitation", Entity: "event_invitation", EntityID: invitationID,
		Detail: "accepted",
	})
	return inv, nil
}

func (s *invitationService) ListInvitations(ctx context.Context, actor domain.Actor, eventID string) ([]*domain.EventInvitation, error) {
	if !actor.CanManage() {
		return nil, domain.ErrForbidden
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	invs, err := s.invitationRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}
