package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// Notification is a fire-and-forget request to the notification
// collaborator: a template key plus contextual data for rendering.
type Notification struct {
	ID          string
	UserID      string
	TemplateKey string
	Data        map[string]any
}

// Notifier dispatches notifications after a scheduling transaction commits.
// Failures must never roll back the transaction; callers log and move on.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// Notification template keys emitted by the scheduling core.
const (
	TemplateAppointmentBooked     = "appointment_booked"
	TemplateAppointmentCancelled  = "appointment_cancelled"
	TemplateAppointmentMoved      = "appointment_moved"
	TemplateEventInvitation       = "event_invitation"
	TemplateRegistrationConfirmed = "registration_confirmed"
)

// EmailTemplateRenderer renders a notification template into subject,
// html and text bodies.
type EmailTemplateRenderer interface {
	Render(templateName string, data interface{}) (subject, htmlBody, textBody string, err error)
}

// ProgramDirectory answers program-enrollment questions for invitation
// scoping. Implementation is an external collaborator.
type ProgramDirectory interface {
	IsEnrolled(ctx context.Context, userID, programID string) (bool, error)
}

// UserDirectory resolves user IDs to contact addresses. Backed by the
// same admissions platform directory as ProgramDirectory.
type UserDirectory interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

// AuditEntry is one best-effort audit record emitted after commit.
type AuditEntry struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Detail   string
}

// AuditLog records audit entries. Best-effort: not part of any
// transactional guarantee.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry)
}
