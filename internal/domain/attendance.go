package domain

import (
	"context"
	"time"
)

// AttendanceStatus is the state of an open-enrollment registration.
type AttendanceStatus string

const (
	AttendanceRegistered AttendanceStatus = "registered"
	AttendanceAttended   AttendanceStatus = "attended"
	AttendanceNoShow     AttendanceStatus = "no_show"
)

// EventAttendance is the registration/attendance record for multiple and
// unlimited capacity events. At most one record per (event, user) pair.
// swagger:model EventAttendance
type EventAttendance struct {
	ID           string           `json:"id"`
	EventID      string           `json:"event_id"`
	UserID       string           `json:"user_id"`
	Status       AttendanceStatus `json:"status"`
	Notes        string           `json:"notes"`
	RegisteredAt time.Time        `json:"registered_at"`
	AttendedAt   *time.Time       `json:"attended_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// AttendanceRepository defines storage operations for attendance records.
type AttendanceRepository interface {
	// Create inserts the record. A uniqueness violation on (event, user) is
	// translated to ErrAlreadyRegistered.
	Create(ctx context.Context, att *EventAttendance) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*EventAttendance, error)
	ListByEventID(ctx context.Context, eventID string, params PaginationParams) ([]*EventAttendance, int, error)
	// CountRegistered counts rows in registered status for capacity checks.
	CountRegistered(ctx context.Context, eventID string) (int, error)
	// SetStatus updates the attendance status; attendedAt is stamped for
	// attended and cleared on reset.
	SetStatus(ctx context.Context, id string, status AttendanceStatus, attendedAt *time.Time, notes string) error
	Delete(ctx context.Context, eventID, userID string) error
	DeleteByEventID(ctx context.Context, eventID string) error
}

// EnrollmentService is the open-enrollment registry for multiple and
// unlimited capacity events. Single-capacity events refuse these
// operations with ErrWrongCapacityModel.
type EnrollmentService interface {
	Register(ctx context.Context, actor Actor, eventID, userID, notes string) (*EventAttendance, error)
	Unregister(ctx context.Context, actor Actor, eventID, userID string) error
	// MarkAttendance sets attended or no_show; reset=true returns the record
	// to registered and clears the attended timestamp.
	MarkAttendance(ctx context.Context, actor Actor, eventID, userID string, attended bool, notes string, reset bool) (*EventAttendance, error)
	ListAttendance(ctx context.Context, actor Actor, eventID string, params PaginationParams) ([]*EventAttendance, int, error)
}
