package domain

import (
	"context"
	"time"
)

// ChangeRequestStatus is the negotiation state of a change request.
// pending is the only non-terminal state.
type ChangeRequestStatus string

const (
	ChangeRequestPending   ChangeRequestStatus = "pending"
	ChangeRequestAccepted  ChangeRequestStatus = "accepted"
	ChangeRequestRejected  ChangeRequestStatus = "rejected"
	ChangeRequestCancelled ChangeRequestStatus = "cancelled"
)

// ChangeRequest proposes moving an existing appointment to a different
// time. Resolved exactly once by a privileged decider.
// swagger:model ChangeRequest
type ChangeRequest struct {
	ID            string              `json:"id"`
	AppointmentID string              `json:"appointment_id"`
	RequestedBy   string              `json:"requested_by"`
	Reason        string              `json:"reason"`
	Suggestions   string              `json:"suggestions"`
	Status        ChangeRequestStatus `json:"status"`
	DecidedBy     *string             `json:"decided_by"`
	DecidedAt     *time.Time          `json:"decided_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ChangeRequestRepository defines storage operations for change requests.
type ChangeRequestRepository interface {
	Create(ctx context.Context, req *ChangeRequest) error
	GetByID(ctx context.Context, id string) (*ChangeRequest, error)
	ListByAppointmentID(ctx context.Context, appointmentID string) ([]*ChangeRequest, error)
	// Decide stamps the terminal status and decision fields.
	Decide(ctx context.Context, id string, status ChangeRequestStatus, decidedBy string, decidedAt time.Time) error
}

// ChangeRequestService negotiates slot reassignment for existing
// appointments.
type ChangeRequestService interface {
	// Request creates a pending change request. No side effects on the
	// appointment.
	Request(ctx context.Context, actor Actor, appointmentID, reason, suggestions string) (*ChangeRequest, error)
	// Decide resolves a pending request. Accepting requires newSlotID and
	// atomically frees the old slot, books the new one and repoints the
	// appointment; on failure the original state is left entirely unchanged.
	Decide(ctx context.Context, actor Actor, requestID string, status ChangeRequestStatus, newSlotID *string) (*ChangeRequest, error)
	ListForAppointment(ctx context.Context, appointmentID string) ([]*ChangeRequest, error)
}
