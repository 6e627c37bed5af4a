package postgres

import (
	"context"
	"database/sql"
	"errors"

	"admissionscheduling/internal/domain"
)

type windowRepository struct {
	DB *sql.DB
}

func NewWindowRepository(db *sql.DB) domain.WindowRepository {
	return &windowRepository{
		DB: db,
	}
}

const windowColumns = `id, event_id, date, starts_at, ends_at, slot_minutes, timezone,
		slots_generated, created_at, updated_at`

func (r *windowRepository) Create(ctx context.Context, window *domain.Window) error {
	query := `
		INSERT INTO windows (event_id, date, starts_at, ends_at, slot_minutes, timezone,
			slots_generated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	return exec(ctx, r.DB).QueryRowContext(ctx, query,
		window.EventID, window.Date, window.StartsAt, window.EndsAt,
		window.SlotMinutes, window.Timezone, window.SlotsGenerated,
		window.CreatedAt, window.UpdatedAt,
	).Scan(&window.ID)
}

func (r *windowRepository) GetByID(ctx context.Context, id string) (*domain.Window, error) {
	query := `SELECT ` + windowColumns + ` FROM windows WHERE id = $1`
	window := &domain.Window{}
	err := exec(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&window.ID, &window.EventID, &window.Date, &window.StartsAt, &window.EndsAt,
		&window.SlotMinutes, &window.Timezone, &window.SlotsGenerated,
		&window.CreatedAt, &window.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return window, nil
}

func (r *windowRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Window, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM windows
		WHERE event_id = $1
		ORDER BY starts_at ASC
	`
	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []*domain.Window
	for rows.Next() {
		window := &domain.Window{}
		if err := rows.Scan(
			&window.ID, &window.EventID, &window.Date, &window.StartsAt, &window.EndsAt,
			&window.SlotMinutes, &window.Timezone, &window.SlotsGenerated,
			&window.CreatedAt, &window.UpdatedAt,
		); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if windows == nil {
		windows = []*domain.Window{}
	}
	return windows, nil
}

func (r *windowRepository) MarkSlotsGenerated(ctx context.Context, id string) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx,
		`UPDATE windows SET slots_generated = TRUE, updated_at = NOW() WHERE id = $1`, id)
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

func (r *windowRepository) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx, `DELETE FROM windows WHERE id = $1`, id)
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
