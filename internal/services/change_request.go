package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"admissionscheduling/internal/domain"
)

type changeRequestService struct {
	appointmentRepo domain.AppointmentRepository
	changeRepo      domain.ChangeRequestRepository
	windowRepo      domain.WindowRepository
	slotRepo        domain.SlotRepository
	tx              domain.TxManager
	notifier        domain.Notifier
	audit           domain.AuditLog
	logger          *slog.Logger
}

// NewChangeRequestService creates the negotiator for moving existing
// appointments to a different slot.
func NewChangeRequestService(
	appointmentRepo domain.AppointmentRepository,
	changeRepo domain.ChangeRequestRepository,
	windowRepo domain.WindowRepository,
	slotRepo domain.SlotRepository,
	tx domain.TxManager,
	notifier domain.Notifier,
	audit domain.AuditLog,
	logger *slog.Logger,
) domain.ChangeRequestService {
	return &changeRequestService{
		appointmentRepo: appointmentRepo,
		changeRepo:      changeRepo,
		windowRepo:      windowRepo,
		slotRepo:        slotRepo,
		tx:              tx,
		notifier:        notifier,
		audit:           audit,
		logger:          logger,
	}
}

func (s *changeRequestService) Request(ctx context.Context, actor domain.Actor, appointmentID, reason, suggestions string) (*domain.ChangeRequest, error) {
	appt, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	// Only the applicant holding the appointment or a coordinator may ask.
	if !actor.CanManage() && appt.ApplicantID != actor.ID {
		return nil, domain.ErrForbidden
	}
	if appt.Status != domain.AppointmentScheduled {
		return nil, domain.ErrInvalidState
	}

	now := time.Now()
	req := &domain.ChangeRequest{
		AppointmentID: appointmentID,
		RequestedBy:   actor.ID,
		Reason:        reason,
		Suggestions:   suggestions,
		Status:        domain.ChangeRequestPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.changeRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create change request: %w", err)
	}
	return req, nil
}

func (s *changeRequestService) Decide(ctx context.Context, actor domain.Actor, requestID string, status domain.ChangeRequestStatus, newSlotID *string) (*domain.ChangeRequest, error) {
	if !actor.CanManage() {
		return nil, domain.ErrForbidden
	}
	switch status {
	case domain.ChangeRequestAccepted, domain.ChangeRequestRejected, domain.ChangeRequestCancelled:
	default:
		return nil, domain.ErrInvalidInput
	}

	req, err := s.changeRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get change request: %w", err)
	}
	if req.Status != domain.ChangeRequestPending {
		return nil, domain.ErrInvalidState
	}

	now := time.Now()

	if status != domain.ChangeRequestAccepted {
		if err := s.changeRepo.Decide(ctx, requestID, status, actor.ID, now); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Lost a race with another decider.
				return nil, domain.ErrInvalidState
			}
			return nil, fmt.Errorf("decide change request: %w", err)
		}
		req.Status = status
		req.DecidedBy = &actor.ID
		req.DecidedAt = &now
		return req, nil
	}

	if newSlotID == nil || *newSlotID == "" {
		return nil, domain.ErrInvalidInput
	}

	var applicantID string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointmentRepo.GetByID(ctx, req.AppointmentID)
		if err != nil {
			return fmt.Errorf("get appointment: %w", err)
		}
		applicantID = appt.ApplicantID

		newSlot, err := s.slotRepo.LockForUpdate(ctx, *newSlotID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock new slot: %w", err)
		}
		window, err := s.windowRepo.GetByID(ctx, newSlot.WindowID)
		if err != nil {
			return fmt.Errorf("get window: %w", err)
		}
		if window.EventID != appt.EventID {
			return domain.ErrInvalidReference
		}
		if newSlot.Status != domain.SlotFree {
			return domain.ErrSlotUnavailable
		}

		oldSlot, err := s.slotRepo.LockForUpdate(ctx, appt.SlotID)
		if err != nil {
			return fmt.Errorf("lock old slot: %w", err)
		}

		// The move is atomic: free-old, book-new and repoint either all
		// commit or all roll back; no state with both slots booked (or
		// both free) for this appointment is ever observable.
		if oldSlot.Status == domain.SlotBooked {
			if err := s.slotRepo.MarkFree(ctx, oldSlot.ID); err != nil {
				return fmt.Errorf("free old slot: %w", err)
			}
		}
		if err := s.slotRepo.MarkBooked(ctx, newSlot.ID, appt.ApplicantID); err != nil {
			return fmt.Errorf("book new slot: %w", err)
		}
		if err := s.appointmentRepo.Repoint(ctx, appt.ID, newSlot.ID); err != nil {
			return fmt.Errorf("repoint appointment: %w", err)
		}
		if err := s.changeRepo.Decide(ctx, requestID, domain.ChangeRequestAccepted, actor.ID, now); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidState
			}
			return fmt.Errorf("decide change request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	req.Status = domain.ChangeRequestAccepted
	req.DecidedBy = &actor.ID
	req.DecidedAt = &now

	n := &domain.Notification{UserID: applicantID, TemplateKey: domain.TemplateAppointmentMoved, Data: map[string]any{
		"appointment_id": req.AppointmentID,
		"new_slot_id":    *newSlotID,
	}}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "template", n.TemplateKey, "user_id", applicantID, "err", err)
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "decide_change", Entity: "change_request", EntityID: requestID,
		Detail: string(status),
	})
	return req, nil
}

func (s *changeRequestService) ListForAppointment(ctx context.Context, appointmentID string) ([]*domain.ChangeRequest, error) {
	if _, err := s.appointmentRepo.GetByID(ctx, appointmentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	reqs, err := s.changeRepo.ListByAppointmentID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return reqs, nil
}
