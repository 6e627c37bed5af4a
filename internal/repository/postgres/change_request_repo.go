package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"admissionscheduling/internal/domain"
)

type changeRequestRepository struct {
	DB *sql.DB
}

func NewChangeRequestRepository(db *sql.DB) domain.ChangeRequestRepository {
	return &changeRequestRepository{
		DB: db,
	}
}

const changeRequestColumns = `id, appointment_id, requested_by, reason, suggestions, status,
		decided_by, decided_at, created_at, updated_at`

func (r *changeRequestRepository) Create(ctx context.Context, req *domain.ChangeRequest) error {
	query := `
		INSERT INTO appointment_change_requests (appointment_id, requested_by, reason,
			suggestions, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return exec(ctx, r.DB).QueryRowContext(ctx, query,
		req.AppointmentID, req.RequestedBy, req.Reason, req.Suggestions,
		req.Status, req.CreatedAt, req.UpdatedAt,
	).Scan(&req.ID)
}

func (r *changeRequestRepository) GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM appointment_change_requests WHERE id = $1`
	req := &domain.ChangeRequest{}
	err := exec(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.AppointmentID, &req.RequestedBy, &req.Reason, &req.Suggestions,
		&req.Status, &req.DecidedBy, &req.DecidedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *changeRequestRepository) ListByAppointmentID(ctx context.Context, appointmentID string) ([]*domain.ChangeRequest, error) {
	query := `
		SELECT ` + changeRequestColumns + `
		FROM appointment_change_requests
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`
	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*domain.ChangeRequest
	for rows.Next() {
		req := &domain.ChangeRequest{}
		if err := rows.Scan(
			&req.ID, &req.AppointmentID, &req.RequestedBy, &req.Reason, &req.Suggestions,
			&req.Status, &req.DecidedBy, &req.DecidedAt, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []*domain.ChangeRequest{}
	}
	return reqs, nil
}

// Decide only moves a pending request to a terminal status; a second
// decision affects zero rows and surfaces as ErrNotFound to the service,
// which re-checks the current status.
func (r *changeRequestRepository) Decide(ctx context.Context, id string, status domain.ChangeRequestStatus, decidedBy string, decidedAt time.Time) error {
	query := `
		UPDATE appointment_change_requests
		SET status = $1, decided_by = $2, decided_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	res, err := exec(ctx, r.DB).ExecContext(ctx, query, status, decidedBy, decidedAt, id, domain.ChangeRequestPending)
	if err != nil {
		return err
	}
	return requireRow(res)
}
