package domain

import (
	"context"
	"time"
)

// SlotStatus is the bookable-unit state: free or booked.
type SlotStatus string

const (
	SlotFree   SlotStatus = "free"
	SlotBooked SlotStatus = "booked"
)

// Slot is the atomic bookable unit: a [starts_at, ends_at) interval
// belonging to exactly one window. HeldBy records the applicant a booked
// slot is held for.
// swagger:model Slot
type Slot struct {
	ID        string     `json:"id"`
	WindowID  string     `json:"window_id"`
	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    time.Time  `json:"ends_at"`
	Status    SlotStatus `json:"status"`
	HeldBy    *string    `json:"held_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GenerateResult reports the outcome of a slot generation run, surfaced to
// the caller for confirmation UI.
type GenerateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// SlotRepository defines storage operations for slots. LockForUpdate is the
// engine's single serialization point: every slot-mutating path acquires it
// inside a transaction before reading the slot's status.
type SlotRepository interface {
	Create(ctx context.Context, slot *Slot) error
	GetByID(ctx context.Context, id string) (*Slot, error)
	// LockForUpdate loads the slot row under an exclusive row lock (SELECT
	// ... FOR UPDATE). Valid only inside a transaction.
	LockForUpdate(ctx context.Context, id string) (*Slot, error)
	ListByWindowID(ctx context.Context, windowID string) ([]*Slot, error)
	ListByEventID(ctx context.Context, eventID string, status *SlotStatus) ([]*Slot, error)
	// UpdateEndsAt refreshes a free slot's end boundary after a window's
	// slot duration was edited.
	UpdateEndsAt(ctx context.Context, id string, endsAt time.Time) error
	MarkBooked(ctx context.Context, id, heldBy string) error
	MarkFree(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteByWindowID(ctx context.Context, windowID string) error
	// CountByWindowID derives the window's occupancy from the slot table.
	CountByWindowID(ctx context.Context, windowID string) (WindowCapacity, error)
}

// ScheduleService defines window and slot management for single-capacity
// events: window setup, slot generation, and reconciliating deletion.
type ScheduleService interface {
	AddWindow(ctx context.Context, actor Actor, window *Window) error
	ListWindows(ctx context.Context, eventID string) ([]*WindowWithCapacity, error)
	// GenerateSlots tiles the window into fixed-length slots. Idempotent:
	// re-running never duplicates or destroys a booked slot. overwriteFree
	// refreshes the end boundary of existing free slots.
	GenerateSlots(ctx context.Context, actor Actor, windowID string, overwriteFree bool) (*GenerateResult, error)
	ListSlots(ctx context.Context, eventID string, status *SlotStatus) ([]*Slot, error)
	// DeleteWindow removes the window and its slots. With force=false it
	// refuses while scheduled appointments are bound to its slots; with
	// force=true those appointments are cancelled first, in the same
	// transaction.
	DeleteWindow(ctx context.Context, actor Actor, windowID string, force bool) error
	// DeleteSlot removes one slot, with the same force semantics.
	DeleteSlot(ctx context.Context, actor Actor, slotID string, force bool) error
}
