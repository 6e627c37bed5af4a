package domain

import "errors"

// Sentinel errors for the scheduling core. Services return these (possibly
// wrapped with %w); controllers map them to HTTP status codes with errors.Is.
var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference means the entity exists but does not belong to the
	// stated parent (e.g. slot/event mismatch).
	ErrInvalidReference = errors.New("invalid reference")
	// ErrSlotUnavailable means the slot was not free at lock time.
	ErrSlotUnavailable = errors.New("slot is no longer available")
	// ErrAlreadyBooked means the applicant already holds a scheduled
	// appointment for this event.
	ErrAlreadyBooked = errors.New("applicant already booked for this event")
	// ErrAlreadyRegistered means an attendance record already exists.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrAlreadyInvited means a pending or resolved invitation already exists.
	ErrAlreadyInvited = errors.New("already invited to this event")
	// ErrAlreadyResponded means the invitation or change request was already
	// resolved.
	ErrAlreadyResponded = errors.New("already responded")
	// ErrCapacityExceeded means the event reached its maximum capacity.
	ErrCapacityExceeded = errors.New("event capacity exceeded")
	// ErrWrongCapacityModel means the operation does not apply to the event's
	// capacity model (slot booking vs. open enrollment).
	ErrWrongCapacityModel = errors.New("operation not valid for this capacity model")
	// ErrForbidden means the actor lacks rights over the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState means the operation is not valid from the current status.
	ErrInvalidState = errors.New("invalid state for this operation")
	// ErrInvalidInput means a request field failed domain validation.
	ErrInvalidInput = errors.New("invalid input")
)
