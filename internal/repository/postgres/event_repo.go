package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"admissionscheduling/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, program_id, category, title, description, location, visible,
		capacity_model, max_capacity, require_registration, track_attendance,
		status, starts_at, ends_at, created_by, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (program_id, category, title, description, location, visible,
			capacity_model, max_capacity, require_registration, track_attendance,
			status, starts_at, ends_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	return exec(ctx, r.DB).QueryRowContext(ctx, query,
		event.ProgramID, event.Category, event.Title, event.Description, event.Location,
		event.Visible, event.CapacityModel, event.MaxCapacity, event.RequireRegistration,
		event.TrackAttendance, event.Status, event.StartsAt, event.EndsAt,
		event.CreatedBy, event.CreatedAt, event.UpdatedAt,
	).Scan(&event.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.scanEvent(exec(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *eventRepository) LockForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return r.scanEvent(exec(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *eventRepository) scanEvent(row *sql.Row) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(
		&event.ID, &event.ProgramID, &event.Category, &event.Title, &event.Description,
		&event.Location, &event.Visible, &event.CapacityModel, &event.MaxCapacity,
		&event.RequireRegistration, &event.TrackAttendance, &event.Status,
		&event.StartsAt, &event.EndsAt, &event.CreatedBy, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) List(ctx context.Context, programID *string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	where := ""
	args := []any{}
	if programID != nil {
		where = "WHERE program_id = $1"
		args = append(args, *programID)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM events " + where
	if err := exec(ctx, r.DB).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT `+eventColumns+`
		FROM events %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event := &domain.Event{}
		if err := rows.Scan(
			&event.ID, &event.ProgramID, &event.Category, &event.Title, &event.Description,
			&event.Location, &event.Visible, &event.CapacityModel, &event.MaxCapacity,
			&event.RequireRegistration, &event.TrackAttendance, &event.Status,
			&event.StartsAt, &event.EndsAt, &event.CreatedBy, &event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

func (r *eventRepository) Update(ctx context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.Visible != nil {
		add("visible", *upd.Visible)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.CapacityModel != nil {
		add("capacity_model", *upd.CapacityModel)
	}
	if upd.MaxCapacity != nil {
		add("max_capacity", *upd.MaxCapacity)
	}
	if upd.StartsAt != nil {
		add("starts_at", *upd.StartsAt)
	}
	if upd.EndsAt != nil {
		add("ends_at", *upd.EndsAt)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING `+eventColumns+`
	`, strings.Join(sets, ", "), len(args))

	return r.scanEvent(exec(ctx, r.DB).QueryRowContext(ctx, query, args...))
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) HasSchedulingActivity(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM slots s JOIN windows w ON s.window_id = w.id WHERE w.event_id = $1
		) OR EXISTS (
			SELECT 1 FROM event_attendances WHERE event_id = $1
		)
	`
	var active bool
	if err := exec(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}
