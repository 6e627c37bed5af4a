package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"admissionscheduling/internal/domain"
)

type scheduleService struct {
	eventRepo       domain.EventRepository
	windowRepo      domain.WindowRepository
	slotRepo        domain.SlotRepository
	appointmentRepo domain.AppointmentRepository
	tx              domain.TxManager
	audit           domain.AuditLog
	logger          *slog.Logger
}

// NewScheduleService creates the window and slot management service for
// single-capacity events.
func NewScheduleService(
	eventRepo domain.EventRepository,
	windowRepo domain.WindowRepository,
	slotRepo domain.SlotRepository,
	appointmentRepo domain.AppointmentRepository,
	tx domain.TxManager,
	audit domain.AuditLog,
	logger *slog.Logger,
) domain.ScheduleService {
	return &scheduleService{
		eventRepo:       eventRepo,
		windowRepo:      windowRepo,
		slotRepo:        slotRepo,
		appointmentRepo: appointmentRepo,
		tx:              tx,
		audit:           audit,
		logger:          logger,
	}
}

func (s *scheduleService) AddWindow(ctx context.Context, actor domain.Actor, window *domain.Window) error {
	if !actor.CanManage() {
		return domain.ErrForbidden
	}
	event, err := s.eventRepo.GetByID(ctx, window.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if !event.CapacityModel.UsesSlots() {
		return domain.ErrWrongCapacityModel
	}
	if err := window.Validate(); err != nil {
		return err
	}

	now := time.Now()
	window.SlotsGenerated = false
	window.CreatedAt = now
	window.UpdatedAt = now
	if err := s.windowRepo.Create(ctx, window); err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "add_window", Entity: "window", EntityID: window.ID,
	})
	return nil
}

func (s *scheduleService) ListWindows(ctx context.Context, eventID string) ([]*domain.WindowWithCapacity, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	windows, err := s.windowRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}

	result := make([]*domain.WindowWithCapacity, 0, len(windows))
	for _, w := range windows {
		// Occupancy is derived from the slot table on every read rather
		// than kept as a counter callers must maintain.
		capacity, err := s.slotRepo.CountByWindowID(ctx, w.ID)
		if err != nil {
			return nil, fmt.Errorf("count slots: %w", err)
		}
		result = append(result, &domain.WindowWithCapacity{Window: w, Capacity: capacity})
	}
	return result, nil
}

// GenerateSlots tiles [window.starts_at, window.ends_at) into slots of
// window.slot_minutes, discarding any trailing remainder shorter than a
// full slot. Idempotent: existing booked slots are never touched, existing
// free slots are refreshed (end boundary) when overwriteFree is set, and
// both count as skipped.
func (s *scheduleService) GenerateSlots(ctx context.Context, actor domain.Actor, windowID string, overwriteFree bool) (*domain.GenerateResult, error) {
	if !actor.CanManage() {
		return nil, domain.ErrForbidden
	}

	result := &domain.GenerateResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		window, err := s.windowRepo.GetByID(ctx, windowID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get window: %w", err)
		}

		existing, err := s.slotRepo.ListByWindowID(ctx, windowID)
		if err != nil {
			return fmt.Errorf("list slots: %w", err)
		}
		byStart := make(map[int64]*domain.Slot, len(existing))
		for _, slot := range existing {
			byStart[slot.StartsAt.Unix()] = slot
		}

		duration := time.Duration(window.SlotMinutes) * time.Minute
		now := time.Now()
		for cursor := window.StartsAt; !cursor.Add(duration).After(window.EndsAt); cursor = cursor.Add(duration) {
			end := cursor.Add(duration)
			slot, ok := byStart[cursor.Unix()]
			if !ok {
				created := &domain.Slot{
					WindowID:  windowID,
					StartsAt:  cursor,
					EndsAt:    end,
					Status:    domain.SlotFree,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := s.slotRepo.Create(ctx, created); err != nil {
					return fmt.Errorf("create slot: %w", err)
				}
				result.Created++
				continue
			}
			// A free slot whose boundary drifted (slot duration edited
			// after generation) is realigned; booked slots are left alone.
			if slot.Status == domain.SlotFree && overwriteFree && !slot.EndsAt.Equal(end) {
				if err := s.slotRepo.UpdateEndsAt(ctx, slot.ID, end); err != nil {
					return fmt.Errorf("refresh slot: %w", err)
				}
			}
			result.Skipped++
		}

		// Marked even on a re-run.
		if err := s.windowRepo.MarkSlotsGenerated(ctx, windowID); err != nil {
			return fmt.Errorf("mark window generated: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "generate_slots", Entity: "window", EntityID: windowID,
		Detail: fmt.Sprintf("created=%d skipped=%d", result.Created, result.Skipped),
	})
	return result, nil
}

func (s *scheduleService) ListSlots(ctx context.Context, eventID string, status *domain.SlotStatus) ([]*domain.Slot, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	slots, err := s.slotRepo.ListByEventID(ctx, eventID, status)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (s *scheduleService) DeleteWindow(ctx context.Context, actor domain.Actor, windowID string, force bool) error {
	if !actor.CanManage() {
		return domain.ErrForbidden
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.windowRepo.GetByID(ctx, windowID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get window: %w", err)
		}

		// Snapshot taken in the same transaction as the delete, so an
		// in-flight booking on one of these slots either happened before
		// (and is reconciled) or fails after the slots are gone.
		appts, err := s.appointmentRepo.ListScheduledByWindowID(ctx, windowID)
		if err != nil {
			return fmt.Errorf("list scheduled appointments: %w", err)
		}
		if len(appts) > 0 && !force {
			return domain.ErrInvalidState
		}
		for _, appt := range appts {
			if err := s.appointmentRepo.Cancel(ctx, appt.ID, "window deleted"); err != nil {
				return fmt.Errorf("cancel appointment: %w", err)
			}
		}

		if err := s.slotRepo.DeleteByWindowID(ctx, windowID); err != nil {
			return fmt.Errorf("delete slots: %w", err)
		}
		if err := s.windowRepo.Delete(ctx, windowID); err != nil {
			return fmt.Errorf("delete window: %w", err)
		}
		s.audit.Record(ctx, domain.AuditEntry{
			ActorID: actor.ID, Action: "delete_window", Entity: "window", EntityID: windowID,
			Detail: fmt.Sprintf("force=%t cancelled=%d", force, len(appts)),
		})
		return nil
	})
}

func (s *scheduleService) DeleteSlot(ctx context.Context, actor domain.Actor, slotID string, force bool) error {
	if !actor.CanManage() {
		return domain.ErrForbidden
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.slotRepo.LockForUpdate(ctx, slotID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock slot: %w", err)
		}

		if slot.Status == domain.SlotBooked {
			appt, err := s.appointmentRepo.GetScheduledBySlotID(ctx, slotID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("get appointment: %w", err)
			}
			if appt != nil {
				if !force {
					return domain.ErrInvalidState
				}
				if err := s.appointmentRepo.Cancel(ctx, appt.ID, "slot deleted"); err != nil {
					return fmt.Errorf("cancel appointment: %w", err)
				}
			}
		}

		if err := s.slotRepo.Delete(ctx, slotID); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		s.audit.Record(ctx, domain.AuditEntry{
			ActorID: actor.ID, Action: "delete_slot", Entity: "slot", EntityID: slotID,
			Detail: fmt.Sprintf("force=%t", force),
		})
		return nil
	})
}
