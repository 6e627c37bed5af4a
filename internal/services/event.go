package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"admissionscheduling/internal/domain"
)

type eventService struct {
	eventRepo       domain.EventRepository
	windowRepo      domain.WindowRepository
	slotRepo        domain.SlotRepository
	appointmentRepo domain.AppointmentRepository
	attendanceRepo  domain.AttendanceRepository
	tx              domain.TxManager
	audit           domain.AuditLog
	logger          *slog.Logger
}

// NewEventService creates the event lifecycle service.
func NewEventService(
	eventRepo domain.EventRepository,
	windowRepo domain.WindowRepository,
	slotRepo domain.SlotRepository,
	appointmentRepo domain.AppointmentRepository,
	attendanceRepo domain.AttendanceRepository,
	tx domain.TxManager,
	audit domain.AuditLog,
	logger *slog.Logger,
) domain.EventService {
	return &eventService{
		eventRepo:       eventRepo,
		windowRepo:      windowRepo,
		slotRepo:        slotRepo,
		appointmentRepo: appointmentRepo,
		attendanceRepo:  attendanceRepo,
		tx:              tx,
		audit:           audit,
		logger:          logger,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, actor domain.Actor, event *domain.Event) error {
	if !actor.CanManage() {
		return domain.ErrForbidden
	}
	if !event.CapacityModel.IsValid() {
		return domain.ErrInvalidInput
	}
	// max_capacity is required iff the model is multiple.
	if event.CapacityModel == domain.CapacityMultiple {
		if event.MaxCapacity == nil || *event.MaxCapacity < 1 {
			return domain.ErrInvalidInput
		}
	} else if event.MaxCapacity != nil {
		return domain.ErrInvalidInput
	}
	if event.Title == "" {
		return domain.ErrInvalidInput
	}
	if event.Status == "" {
		event.Status = domain.EventDraft
	}

	now := time.Now()
	event.CreatedBy = actor.ID
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "create_event", Entity: "event", EntityID: event.ID,
	})
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, programID *string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	events, total, err := s.eventRepo.List(ctx, programID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, actor domain.Actor, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	if !actor.CanManage() {
		return nil, domain.ErrForbidden
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	// The capacity model is frozen once slots or registrations exist.
	if upd.CapacityModel != nil || upd.MaxCapacity != nil {
		if upd.CapacityModel != nil && !upd.CapacityModel.IsValid() {
			return nil, domain.ErrInvalidInput
		}
		active, err := s.eventRepo.HasSchedulingActivity(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("check scheduling activity: %w", err)
		}
		if active {
			return nil, domain.ErrInvalidState
		}
	}

	updated, err := s.eventRepo.Update(ctx, eventID, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "update_event", Entity: "event", EntityID: eventID,
	})
	return updated, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, actor domain.Actor, eventID string, force bool) error {
	if !actor.CanManage() {
		return domain.ErrForbidden
	}
	var cancelled int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}

		windows, err := s.windowRepo.ListByEventID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list windows: %w", err)
		}
		for _, w := range windows {
			appts, err := s.appointmentRepo.ListScheduledByWindowID(ctx, w.ID)
			if err != nil {
				return fmt.Errorf("list scheduled appointments: %w", err)
			}
			if len(appts) > 0 && !force {
				return domain.ErrInvalidState
			}
			for _, appt := range appts {
				if err := s.appointmentRepo.Cancel(ctx, appt.ID, "event deleted"); err != nil {
					return fmt.Errorf("cancel appointment: %w", err)
				}
				cancelled++
			}
			if err := s.slotRepo.DeleteByWindowID(ctx, w.ID); err != nil {
				return fmt.Errorf("delete slots: %w", err)
			}
			if err := s.windowRepo.Delete(ctx, w.ID); err != nil {
				return fmt.Errorf("delete window: %w", err)
			}
		}

		if err := s.attendanceRepo.DeleteByEventID(ctx, eventID); err != nil {
			return fmt.Errorf("delete attendances: %w", err)
		}
		// Invitations go with the event via ON DELETE CASCADE.
		if err := s.eventRepo.Delete(ctx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "delete_event", Entity: "event", EntityID: eventID,
		Detail: fmt.Sprintf("force=%t cancelled=%d", force, cancelled),
	})
	return nil
}
