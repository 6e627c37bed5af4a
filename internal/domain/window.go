package domain

import (
	"context"
	"time"
)

// AllowedSlotMinutes is the closed set of slot durations a window may use.
var AllowedSlotMinutes = map[int]bool{15: true, 20: true, 30: true, 45: true, 60: true}

// Window is a coordinator-defined contiguous time range on one calendar
// date for one event, from which slots are generated.
// swagger:model Window
type Window struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	Date           time.Time `json:"date"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	SlotMinutes    int       `json:"slot_minutes"`
	Timezone       string    `json:"timezone"`
	SlotsGenerated bool      `json:"slots_generated"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the window invariants: start before end, an allowed
// slot duration, a valid IANA timezone, and the whole range lying on the
// window's calendar date.
func (w *Window) Validate() error {
	if !w.StartsAt.Before(w.EndsAt) {
		return ErrInvalidInput
	}
	if !AllowedSlotMinutes[w.SlotMinutes] {
		return ErrInvalidInput
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return ErrInvalidInput
	}
	// A window never spans midnight; ending exactly at midnight is allowed.
	day := w.Date.In(loc)
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	if w.StartsAt.Before(dayStart) || w.EndsAt.After(dayEnd) {
		return ErrInvalidInput
	}
	return nil
}

// WindowCapacity is the derived slot occupancy of a window, computed from
// the slot table on read rather than stored as a counter.
type WindowCapacity struct {
	Free   int `json:"free"`
	Booked int `json:"booked"`
}

// WindowWithCapacity bundles a window with its derived occupancy.
type WindowWithCapacity struct {
	Window   *Window        `json:"window"`
	Capacity WindowCapacity `json:"capacity"`
}

// WindowRepository defines storage operations for windows.
type WindowRepository interface {
	Create(ctx context.Context, window *Window) error
	GetByID(ctx context.Context, id string) (*Window, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Window, error)
	MarkSlotsGenerated(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
