package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"admissionscheduling/internal/domain"
)

type enrollmentService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	tx             domain.TxManager
	notifier       domain.Notifier
	audit          domain.AuditLog
	logger         *slog.Logger
}

// NewEnrollmentService creates the open-enrollment registry for multiple
// and unlimited capacity events.
func NewEnrollmentService(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	tx domain.TxManager,
	notifier domain.Notifier,
	audit domain.AuditLog,
	logger *slog.Logger,
) domain.EnrollmentService {
	return &enrollmentService{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		tx:             tx,
		notifier:       notifier,
		audit:          audit,
		logger:         logger,
	}
}

// registerAttendance performs the capacity-checked insert. Callers must run
// it inside a transaction: for bounded events the event row is locked so
// the count-then-insert cannot overshoot max_capacity under concurrency.
func registerAttendance(ctx context.Context, eventRepo domain.EventRepository, attendanceRepo domain.AttendanceRepository, eventID, userID, notes string) (*domain.EventAttendance, error) {
	event, err := eventRepo.LockForUpdate(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}
	if event.CapacityModel.UsesSlots() {
		return nil, domain.ErrWrongCapacityModel
	}

	if _, err := attendanceRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	if event.CapacityModel == domain.CapacityMultiple {
		count, err := attendanceRepo.CountRegistered(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if event.MaxCapacity == nil || count >= *event.MaxCapacity {
			return nil, domain.ErrCapacityExceeded
		}
	}

	now := time.Now()
	att := &domain.EventAttendance{
		EventID:      eventID,
		UserID:       userID,
		Status:       domain.AttendanceRegistered,
		Notes:        notes,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	if err := attendanceRepo.Create(ctx, att); err != nil {
		return nil, err
	}
	return att, nil
}

func (s *enrollmentService) Register(ctx context.Context, actor domain.Actor, eventID, userID, notes string) (*domain.EventAttendance, error) {
	if !actor.CanManage() && userID != actor.ID {
		return nil, domain.ErrForbidden
	}

	var att *domain.EventAttendance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		att, err = registerAttendance(ctx, s.eventRepo, s.attendanceRepo, eventID, userID, notes)
		return err
	})
	if err != nil {
		return nil, err
	}

	n := &domain.Notification{UserID: userID, TemplateKey: domain.TemplateRegistrationConfirmed, Data: map[string]any{
		"event_id": eventID,
	}}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "template", n.TemplateKey, "user_id", userID, "err", err)
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "register", Entity: "event_attendance", EntityID: att.ID,
	})
	return att, nil
}

func (s *enrollmentService) Unregister(ctx context.Context, actor domain.Actor, eventID, userID string) error {
	if !actor.CanManage() && userID != actor.ID {
		return domain.ErrForbidden
	}
	if err := s.attendanceRepo.Delete(ctx, eventID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete attendance: %w", err)
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID: actor.ID, Action: "unregister", Entity: "event_attendance", EntityID: eventID + ":" + userID,
	})
	return nil
}

func (s *enrollmentService) MarkAttendance(ctx context.Context, actor domain.Actor, eventID, userID string, attended bool, notes string, reset bool) (*domain.EventAttendance, error) {
	if !actor.CanManage() {
		return nil, domain.ErrForbidden
	}
	att, err := s.attendanceRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	var (
		status     domain.AttendanceStatus
		attendedAt *time.Time
	)
	switch {
	case reset:
		status = domain.AttendanceRegistered
	case attended:
		status = domain.AttendanceAttended
		now := time.Now()
		attendedAt = &now
	default:
		status = domain.AttendanceNoShow
	}

	if err := s.attendanceRepo.SetStatus(ctx, att.ID, status, attendedAt, notes); err != nil {
		return nil, fmt.Errorf("set attendance status: %w", err)
	}
	att.Status = status
	att.AttendedAt = attendedAt
	if notes != "" {
		att.Notes = notes
	}
	return att, nil
}

func (s *enrollmentService) ListAttendance(ctx context.Context, actor domain.Actor, eventID string, params domain.PaginationParams) ([]*domain.EventAttendance, int, error) {
	if !actor.CanManage() {
		return nil, 0, domain.ErrForbidden
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	atts, total, err := s.attendanceRepo.ListByEventID(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	return atts, total, nil
}
