package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"admissionscheduling/internal/domain"
)

type attendanceRepository struct {
	DB *sql.DB
}

func NewAttendanceRepository(db *sql.DB) domain.AttendanceRepository {
	return &attendanceRepository{
		DB: db,
	}
}

const attendanceColumns = `id, event_id, user_id, status, notes, registered_at, attended_at, updated_at`

func (r *attendanceRepository) Create(ctx context.Context, att *domain.EventAttendance) error {
	query := `
		INSERT INTO event_attendances (event_id, user_id, status, notes, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := exec(ctx, r.DB).QueryRowContext(ctx, query,
		att.EventID, att.UserID, att.Status, att.Notes, att.RegisteredAt, att.UpdatedAt,
	).Scan(&att.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

func (r *attendanceRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventAttendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM event_attendances
		WHERE event_id = $1 AND user_id = $2
	`
	att := &domain.EventAttendance{}
	err := exec(ctx, r.DB).QueryRowContext(ctx, query, eventID, userID).Scan(
		&att.ID, &att.EventID, &att.UserID, &att.Status, &att.Notes,
		&att.RegisteredAt, &att.AttendedAt, &att.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return att, nil
}

func (r *attendanceRepository) ListByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.EventAttendance, int, error) {
	var total int
	if err := exec(ctx, r.DB).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_attendances WHERE event_id = $1`, eventID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + attendanceColumns + `
		FROM event_attendances
		WHERE event_id = $1
		ORDER BY registered_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, eventID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var atts []*domain.EventAttendance
	for rows.Next() {
		att := &domain.EventAttendance{}
		if err := rows.Scan(
			&att.ID, &att.EventID, &att.UserID, &att.Status, &att.Notes,
			&att.RegisteredAt, &att.AttendedAt, &att.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if atts == nil {
		atts = []*domain.EventAttendance{}
	}
	return atts, total, nil
}

func (r *attendanceRepository) CountRegistered(ctx context.Context, eventID string) (int, error) {
	var count int
	err := exec(ctx, r.DB).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_attendances WHERE event_id = $1 AND status = $2`,
		eventID, domain.AttendanceRegistered,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *attendanceRepository) SetStatus(ctx context.Context, id string, status domain.AttendanceStatus, attendedAt *time.Time, notes string) error {
	query := `
		UPDATE event_attendances
		SET status = $1, attended_at = $2,
			notes = CASE WHEN $3 = '' THEN notes ELSE $3 END,
			updated_at = NOW()
		WHERE id = $4
	`
	res, err := exec(ctx, r.DB).ExecContext(ctx, query, status, attendedAt, notes, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *attendanceRepository) Delete(ctx context.Context, eventID, userID string) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM event_attendances WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *attendanceRepository) DeleteByEventID(ctx context.Context, eventID string) error {
	_, err := exec(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM event_attendances WHERE event_id = $1`, eventID)
	return err
}
