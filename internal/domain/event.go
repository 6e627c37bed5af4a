package domain

import (
	"context"
	"time"
)

// CapacityModel is the event-level policy governing whether booking uses
// slots (single) or direct registration (multiple/unlimited). It is fixed
// once any slot or registration exists for the event.
type CapacityModel string

const (
	CapacitySingle    CapacityModel = "single"
	CapacityMultiple  CapacityModel = "multiple"
	CapacityUnlimited CapacityModel = "unlimited"
)

// IsValid reports whether the capacity model is one of the closed set.
func (m CapacityModel) IsValid() bool {
	switch m {
	case CapacitySingle, CapacityMultiple, CapacityUnlimited:
		return true
	}
	return false
}

// UsesSlots reports whether booking for this model goes through slots.
func (m CapacityModel) UsesSlots() bool {
	return m == CapacitySingle
}

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Event is a bookable activity: an interview round, a workshop, an info
// session. ProgramID is nil for global (cross-program) events.
// swagger:model Event
type Event struct {
	ID                  string        `json:"id"`
	ProgramID           *string       `json:"program_id"`
	Category            string        `json:"category"`
	Title               string        `json:"title"`
	Description         string        `json:"description"`
	Location            string        `json:"location"`
	Visible             bool          `json:"visible"`
	CapacityModel       CapacityModel `json:"capacity_model"`
	MaxCapacity         *int          `json:"max_capacity"`
	RequireRegistration bool          `json:"require_registration"`
	TrackAttendance     bool          `json:"track_attendance"`
	Status              EventStatus   `json:"status"`
	StartsAt            *time.Time    `json:"starts_at"`
	EndsAt              *time.Time    `json:"ends_at"`
	CreatedBy           string        `json:"created_by"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// EventUpdate carries the mutable event fields for UpdateEvent. Nil fields
// are left unchanged. CapacityModel and MaxCapacity changes are rejected
// once the event has scheduling activity.
type EventUpdate struct {
	Title         *string
	Description   *string
	Location      *string
	Visible       *bool
	Status        *EventStatus
	CapacityModel *CapacityModel
	MaxCapacity   *int
	StartsAt      *time.Time
	EndsAt        *time.Time
}

// EventRepository defines storage operations for events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// LockForUpdate loads the event row under an exclusive row lock. Valid
	// only inside a transaction; used to serialize capacity counting.
	LockForUpdate(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, programID *string, params PaginationParams) ([]*Event, int, error)
	Update(ctx context.Context, id string, upd EventUpdate) (*Event, error)
	Delete(ctx context.Context, id string) error
	// HasSchedulingActivity reports whether any slot or attendance record
	// exists for the event. Guards capacity-model immutability.
	HasSchedulingActivity(ctx context.Context, id string) (bool, error)
}

// EventService defines event lifecycle operations.
type EventService interface {
	CreateEvent(ctx context.Context, actor Actor, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListEvents(ctx context.Context, programID *string, params PaginationParams) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, actor Actor, eventID string, upd EventUpdate) (*Event, error)
	// DeleteEvent removes the event and its windows, slots and registrations.
	// With force=false it refuses while scheduled appointments exist; with
	// force=true those appointments are cancelled in the same transaction.
	DeleteEvent(ctx context.Context, actor Actor, eventID string, force bool) error
}
