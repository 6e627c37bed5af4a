package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"admissionscheduling/internal/domain"
)

type appointmentRepository struct {
	DB *sql.DB
}

func NewAppointmentRepository(db *sql.DB) domain.AppointmentRepository {
	return &appointmentRepository{
		DB: db,
	}
}

const appointmentColumns = `id, event_id, slot_id, applicant_id, assigned_by, status, notes,
		created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	query := `
		INSERT INTO appointments (event_id, slot_id, applicant_id, assigned_by, status, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := exec(ctx, r.DB).QueryRowContext(ctx, query,
		appt.EventID, appt.SlotID, appt.ApplicantID, appt.AssignedBy,
		appt.Status, appt.Notes, appt.CreatedAt, appt.UpdatedAt,
	).Scan(&appt.ID)
	if err != nil {
		// Partial unique indexes guard one active appointment per slot and
		// one scheduled appointment per (event, applicant).
		if isUniqueViolation(err) {
			return domain.ErrAlreadyBooked
		}
		return err
	}
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return r.scanAppointment(exec(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *appointmentRepository) GetScheduledBySlotID(ctx context.Context, slotID string) (*domain.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE slot_id = $1 AND status = $2
	`
	return r.scanAppointment(exec(ctx, r.DB).QueryRowContext(ctx, query, slotID, domain.AppointmentScheduled))
}

func (r *appointmentRepository) scanAppointment(row *sql.Row) (*domain.Appointment, error) {
	appt := &domain.Appointment{}
	err := row.Scan(
		&appt.ID, &appt.EventID, &appt.SlotID, &appt.ApplicantID, &appt.AssignedBy,
		&appt.Status, &appt.Notes, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return appt, nil
}

func (r *appointmentRepository) ListByEventID(ctx context.Context, eventID string, status *domain.AppointmentStatus, params domain.PaginationParams) ([]*domain.Appointment, int, error) {
	where := "WHERE event_id = $1"
	args := []any{eventID}
	if status != nil {
		where += " AND status = $2"
		args = append(args, *status)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM appointments " + where
	if err := exec(ctx, r.DB).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT `+appointmentColumns+`
		FROM appointments %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	appts, err := r.scanAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

func (r *appointmentRepository) ListScheduledByWindowID(ctx context.Context, windowID string) ([]*domain.Appointment, error) {
	query := `
		SELECT a.id, a.event_id, a.slot_id, a.applicant_id, a.assigned_by, a.status, a.notes,
			a.created_at, a.updated_at
		FROM appointments a
		JOIN slots s ON a.slot_id = s.id
		WHERE s.window_id = $1 AND a.status = $2
		ORDER BY s.starts_at ASC
	`
	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, windowID, domain.AppointmentScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAppointments(rows)
}

func (r *appointmentRepository) scanAppointments(rows *sql.Rows) ([]*domain.Appointment, error) {
	var appts []*domain.Appointment
	for rows.Next() {
		appt := &domain.Appointment{}
		if err := rows.Scan(
			&appt.ID, &appt.EventID, &appt.SlotID, &appt.ApplicantID, &appt.AssignedBy,
			&appt.Status, &appt.Notes, &appt.CreatedAt, &appt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if appts == nil {
		appts = []*domain.Appointment{}
	}
	return appts, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx,
		`UPDATE appointments SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Cancel appends the note to the notes trail; prior notes are never
// overwritten.
func (r *appointmentRepository) Cancel(ctx context.Context, id string, note string) error {
	query := `
		UPDATE appointments
		SET status = $1,
			notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END,
			updated_at = NOW()
		WHERE id = $3
	`
	res, err := exec(ctx, r.DB).ExecContext(ctx, query, domain.AppointmentCancelled, note, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *appointmentRepository) Repoint(ctx context.Context, id, newSlotID string) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx,
		`UPDATE appointments SET slot_id = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		newSlotID, domain.AppointmentScheduled, id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyBooked
		}
		return err
	}
	return requireRow(res)
}
