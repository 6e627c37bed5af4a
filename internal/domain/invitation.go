package domain

import (
	"context"
	"time"
)

// InvitationStatus is the response state of an event invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// EventInvitation is a targeted offer to attend a multiple/unlimited
// capacity event. At most one invitation per (event, user).
// swagger:model EventInvitation
type EventInvitation struct {
	ID          string           `json:"id"`
	EventID     string           `json:"event_id"`
	UserID      string           `json:"user_id"`
	InvitedBy   string           `json:"invited_by"`
	Status      InvitationStatus `json:"status"`
	Notes       string           `json:"notes"`
	RespondedAt *time.Time       `json:"responded_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// InviteOutcome categorizes the per-user result of a bulk invite call.
type InviteOutcome string

const (
	InviteOutcomeInvited           InviteOutcome = "invited"
	InviteOutcomeWrongProgram      InviteOutcome = "wrong_program"
	InviteOutcomeAlreadyRegistered InviteOutcome = "already_registered"
	InviteOutcomeAlreadyInvited    InviteOutcome = "already_invited"
)

// InviteResult is one user's categorized outcome from InviteUsers, so the
// caller can report partial success.
type InviteResult struct {
	UserID  string        `json:"user_id"`
	Outcome InviteOutcome `json:"outcome"`
}

// InvitationRepository defines storage operations for invitations.
type InvitationRepository interface {
	// Create inserts the invitation. A uniqueness violation on (event, user)
	// is translated to ErrAlreadyInvited.
	Create(ctx context.Context, inv *EventInvitation) error
	GetByID(ctx context.Context, id string) (*EventInvitation, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*EventInvitation, error)
	ListByEventID(ctx context.Context, eventID string) ([]*EventInvitation, error)
	// SetStatus settles a pending invitation. It is conditional on the
	// invitation still being pending, so two responses cannot both win;
	// the loser gets ErrAlreadyResponded.
	SetStatus(ctx context.Context, id string, status InvitationStatus, respondedAt time.Time) error
}

// InvitationService issues targeted invitations for open-enrollment events
// and converts acceptances into registrations.
type InvitationService interface {
	// Invite creates pending invitations for each user, categorizing skips
	// (wrong program, already registered, already invited) instead of
	// failing the whole call.
	Invite(ctx context.Context, actor Actor, eventID string, userIDs []string, notes string) ([]InviteResult, error)
	// Respond resolves a pending invitation. Accepting registers the user;
	// if registration fails the invitation ends rejected, never accepted
	// without a matching attendance row.
	Respond(ctx context.Context, actor Actor, invitationID string, accept bool) (*EventInvitation, error)
	ListInvitations(ctx context.Context, actor Actor, eventID string) ([]*EventInvitation, error)
}
