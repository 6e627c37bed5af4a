package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"admissionscheduling/internal/domain"
)

type bookingService struct {
	eventRepo       domain.EventRepository
	windowRepo      domain.WindowRepository
	slotRepo        domain.SlotRepository
	appointmentRepo domain.AppointmentRepository
	tx              domain.TxManager
	notifier        domain.Notifier
	audit           domain.AuditLog
	logger          *slog.Logger
}

// NewBookingService creates the single-capacity booking service. It owns
// the slot locking protocol: every slot mutation happens under the slot's
// row lock inside one transaction.
func NewBookingService(
	eventRepo domain.EventRepository,
	windowRepo domain.WindowRepository,
	slotRepo domain.SlotRepository,
	appointmentRepo domain.AppointmentRepository,
	tx domain.TxManager,
	notifier domain.Notifier,
	audit domain.AuditLog,
	logger *slog.Logger,
) domain.BookingService {
	return &bookingService{
		eventRepo:       eventRepo,
		windowRepo:      windowRepo,
		slotRepo:        slotRepo,
		appointmentRepo: appointmentRepo,
		tx:              tx,
		notifier:        notifier,
		audit:           audit,
		logger:          logger,
	}
}

func (s *bookingService) Assign(ctx context.Context, actor domain.Actor, eventID, slotID, applicantID, notes string) (*domain.Appointment, error) {
	// Applicants book for themselves; coordinators may assign anyone.
	if !actor.CanManage() && applicantID != actor.ID {
		return nil, domain.ErrForbidden
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.CapacityModel.UsesSlots() {
		return nil, domain.ErrWrongCapacityModel
	}

	var (
		appt      *domain.Appointment
		slotStart time.Time
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The row lock serializes concurrent assigners on this slot; the
		// status check below sees the committed outcome of the winner.
		slot, err := s.slotRepo.LockForUpdate(ctx, slotID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock slot: %w", err)
		}

		window, err := s.windowRepo.GetByID(ctx, slot.WindowID)
		if err != nil {
			return fmt.Errorf("get window: %w", err)
		}
		if window.EventID != eventID {
			return domain.ErrInvalidReference
		}

		if slot.Status != domain.SlotFree {
			return domain.ErrSlotUnavailable
		}
		slotStart = slot.StartsAt

		if err := s.slotRepo.MarkBooked(ctx, slot.ID, applicantID); err != nil {
			return fmt.Errorf("book slot: %w", err)
		}

		now := time.Now()
		appt = &domain.Appointment{
			EventID:     eventID,
			SlotID:      slot.ID,
			ApplicantID: applicantID,
			AssignedBy:  actor.ID,
			Status:      domain.AppointmentScheduled,
			Notes:       notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		// ErrAlreadyBooked from a uniqueness violation rolls back the slot
		// flip together with the insert.
		if err := s.appointmentRepo.Create(ctx, appt); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, applicantID, domain.TemplateAppointmentBooked, map[string]any{
		"event_id":       eventID,
		"event_title":    event.Title,
		"appointment_id": appt.ID,
		"starts_at":      slotStart,
	})
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "assign", Entity: "appointment", EntityID: appt.ID,
	})
	return appt, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor domain.Actor, appointmentID, reason string) error {
	var applicantID string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointmentRepo.GetByID(ctx, appointmentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get appointment: %w", err)
		}
		if !actor.CanManage() && appt.ApplicantID != actor.ID {
			return domain.ErrForbidden
		}
		if appt.Status != domain.AppointmentScheduled {
			return domain.ErrInvalidState
		}
		applicantID = appt.ApplicantID

		slot, err := s.slotRepo.LockForUpdate(ctx, appt.SlotID)
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}
		// Always return the slot to the pool; no booked slot may outlive
		// its appointment's scheduled state.
		if slot.Status == domain.SlotBooked {
			if err := s.slotRepo.MarkFree(ctx, slot.ID); err != nil {
				return fmt.Errorf("free slot: %w", err)
			}
		}

		if err := s.appointmentRepo.Cancel(ctx, appointmentID, reason); err != nil {
			return fmt.Errorf("cancel appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, applicantID, domain.TemplateAppointmentCancelled, map[string]any{
		"appointment_id": appointmentID,
		"reason":         reason,
	})
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "cancel", Entity: "appointment", EntityID: appointmentID, Detail: reason,
	})
	return nil
}

func (s *bookingService) ListAppointments(ctx context.Context, eventID string, status *domain.AppointmentStatus, params domain.PaginationParams) ([]*domain.Appointment, int, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	appts, total, err := s.appointmentRepo.ListByEventID(ctx, eventID, status, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return appts, total, nil
}

// notify emits a fire-and-forget notification after the transaction has
// committed. Failures are logged, never propagated.
func (s *bookingService) notify(ctx context.Context, userID, template string, data map[string]any) {
	n := &domain.Notification{UserID: userID, TemplateKey: template, Data: data}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "template", template, "user_id", userID, "err", err)
	}
}
