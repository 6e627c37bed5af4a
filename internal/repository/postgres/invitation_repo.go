package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"admissionscheduling/internal/domain"
)

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{
		DB: db,
	}
}

const invitationColumns = `id, event_id, user_id, invited_by, status, notes, responded_at,
		created_at, updated_at`

func (r *invitationRepository) Create(ctx context.Context, inv *domain.EventInvitation) error {
	query := `
		INSERT INTO event_invitations (event_id, user_id, invited_by, status, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := exec(ctx, r.DB).QueryRowContext(ctx, query,
		inv.EventID, inv.UserID, inv.InvitedBy, inv.Status, inv.Notes,
		inv.CreatedAt, inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyInvited
		}
		return err
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.EventInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM event_invitations WHERE id = $1`
	return r.scanInvitation(exec(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *invitationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM event_invitations
		WHERE event_id = $1 AND user_id = $2
	`
	return r.scanInvitation(exec(ctx, r.DB).QueryRowContext(ctx, query, eventID, userID))
}

func (r *invitationRepository) scanInvitation(row *sql.Row) (*domain.EventInvitation, error) {
	inv := &domain.EventInvitation{}
	err := row.Scan(
		&inv.ID, &inv.EventID, &inv.UserID, &inv.InvitedBy, &inv.Status, &inv.Notes,
		&inv.RespondedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.EventInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM event_invitations
		WHERE event_id = $1
		ORDER BY created_at DESC
	`
	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []*domain.EventInvitation
	for rows.Next() {
		inv := &domain.EventInvitation{}
		if err := rows.Scan(
			&inv.ID, &inv.EventID, &inv.UserID, &inv.InvitedBy, &inv.Status, &inv.Notes,
			&inv.RespondedAt, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if invs == nil {
		invs = []*domain.EventInvitation{}
	}
	return invs, nil
}

// SetStatus only settles a pending invitation; a racing response affects
// zero rows and surfaces as ErrAlreadyResponded, so a settled invitation
// can never be overwritten.
func (r *invitationRepository) SetStatus(ctx context.Context, id string, status domain.InvitationStatus, respondedAt time.Time) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx,
		`UPDATE event_invitations SET status = $1, responded_at = $2, updated_at = NOW() WHERE id = $3 AND status = $4`,
		status, respondedAt, id, domain.InvitationPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyResponded
	}
	return nil
}
