package email

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"admissionscheduling/internal/domain"
)

type emailNotifier struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	users    domain.UserDirectory
}

// NewNotifier returns a Notifier that renders the notification template
// and delivers it by email to the address the user directory resolves.
func NewNotifier(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, users domain.UserDirectory) domain.Notifier {
	return &emailNotifier{mailer: mailer, renderer: renderer, users: users}
}

func (n *emailNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	to, err := n.users.EmailFor(ctx, notification.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	subject, html, text, err := n.renderer.Render(notification.TemplateKey, notification.Data)
	if err != nil {
		return fmt.Errorf("render notification %s: %w", notification.TemplateKey, err)
	}
	if err := n.mailer.Send(to, subject, html, text); err != nil {
		return fmt.Errorf("send notification %s: %w", notification.ID, err)
	}
	return nil
}
