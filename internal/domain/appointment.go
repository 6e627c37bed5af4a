package domain

import (
	"context"
	"time"
)

// AppointmentStatus is the lifecycle status of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentDone      AppointmentStatus = "done"
	AppointmentNoShow    AppointmentStatus = "no_show"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment binds one applicant to one slot for a single-capacity event.
// At most one scheduled appointment may reference a slot (uniqueness
// constraint on slot_id for active rows).
// swagger:model Appointment
type Appointment struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	SlotID      string            `json:"slot_id"`
	ApplicantID string            `json:"applicant_id"`
	AssignedBy  string            `json:"assigned_by"`
	Status      AppointmentStatus `json:"status"`
	Notes       string            `json:"notes"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// AppointmentRepository defines storage operations for appointments.
type AppointmentRepository interface {
	// Create inserts the appointment. A uniqueness violation on the active
	// slot reference or the (event, applicant) pair is translated to
	// ErrAlreadyBooked.
	Create(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	// GetScheduledBySlotID returns the scheduled appointment bound to the
	// slot, or ErrNotFound.
	GetScheduledBySlotID(ctx context.Context, slotID string) (*Appointment, error)
	ListByEventID(ctx context.Context, eventID string, status *AppointmentStatus, params PaginationParams) ([]*Appointment, int, error)
	// ListScheduledByWindowID returns scheduled appointments bound to any
	// slot of the window.
	ListScheduledByWindowID(ctx context.Context, windowID string) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, id string, status AppointmentStatus) error
	// Cancel sets status cancelled and appends note to the notes trail
	// without overwriting prior notes.
	Cancel(ctx context.Context, id string, note string) error
	// Repoint moves the appointment to a different slot.
	Repoint(ctx context.Context, id, newSlotID string) error
}

// BookingService assigns and cancels single-capacity appointments. It owns
// the slot locking protocol: under concurrent Assign calls for the same
// slot exactly one succeeds, the rest observe ErrSlotUnavailable.
type BookingService interface {
	Assign(ctx context.Context, actor Actor, eventID, slotID, applicantID, notes string) (*Appointment, error)
	Cancel(ctx context.Context, actor Actor, appointmentID, reason string) error
	ListAppointments(ctx context.Context, eventID string, status *AppointmentStatus, params PaginationParams) ([]*Appointment, int, error)
}
