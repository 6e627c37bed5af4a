package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"admissionscheduling/internal/domain"
)

type slotRepository struct {
	DB *sql.DB
}

func NewSlotRepository(db *sql.DB) domain.SlotRepository {
	return &slotRepository{
		DB: db,
	}
}

const slotColumns = `id, window_id, starts_at, ends_at, status, held_by, created_at, updated_at`

func (r *slotRepository) Create(ctx context.Context, slot *domain.Slot) error {
	query := `
		INSERT INTO slots (window_id, starts_at, ends_at, status, held_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return exec(ctx, r.DB).QueryRowContext(ctx, query,
		slot.WindowID, slot.StartsAt, slot.EndsAt, slot.Status, slot.HeldBy,
		slot.CreatedAt, slot.UpdatedAt,
	).Scan(&slot.ID)
}

func (r *slotRepository) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	return r.scanSlot(exec(ctx, r.DB).QueryRowContext(ctx, query, id))
}

// LockForUpdate blocks concurrent assigners on the same slot row until the
// surrounding transaction commits or rolls back. This is the engine's only
// serialization point; unrelated slots are never blocked by each other.
func (r *slotRepository) LockForUpdate(ctx context.Context, id string) (*domain.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1 FOR UPDATE`
	return r.scanSlot(exec(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *slotRepository) scanSlot(row *sql.Row) (*domain.Slot, error) {
	slot := &domain.Slot{}
	err := row.Scan(
		&slot.ID, &slot.WindowID, &slot.StartsAt, &slot.EndsAt,
		&slot.Status, &slot.HeldBy, &slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return slot, nil
}

func (r *slotRepository) ListByWindowID(ctx context.Context, windowID string) ([]*domain.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE window_id = $1
		ORDER BY starts_at ASC
	`
	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, windowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanSlots(rows)
}

func (r *slotRepository) ListByEventID(ctx context.Context, eventID string, status *domain.SlotStatus) ([]*domain.Slot, error) {
	query := `
		SELECT s.id, s.window_id, s.starts_at, s.ends_at, s.status, s.held_by, s.created_at, s.updated_at
		FROM slots s
		JOIN windows w ON s.window_id = w.id
		WHERE w.event_id = $1
	`
	args := []any{eventID}
	if status != nil {
		query += ` AND s.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY s.starts_at ASC`

	rows, err := exec(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanSlots(rows)
}

func (r *slotRepository) scanSlots(rows *sql.Rows) ([]*domain.Slot, error) {
	var slots []*domain.Slot
	for rows.Next() {
		slot := &domain.Slot{}
		if err := rows.Scan(
			&slot.ID, &slot.WindowID, &slot.StartsAt, &slot.EndsAt,
			&slot.Status, &slot.HeldBy, &slot.CreatedAt, &slot.UpdatedAt,
		); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []*domain.Slot{}
	}
	return slots, nil
}

func (r *slotRepository) UpdateEndsAt(ctx context.Context, id string, endsAt time.Time) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx,
		`UPDATE slots SET ends_at = $1, updated_at = NOW() WHERE id = $2`, endsAt, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *slotRepository) MarkBooked(ctx context.Context, id, heldBy string) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx,
		`UPDATE slots SET status = $1, held_by = $2, updated_at = NOW() WHERE id = $3`,
		domain.SlotBooked, heldBy, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *slotRepository) MarkFree(ctx context.Context, id string) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx,
		`UPDATE slots SET status = $1, held_by = NULL, updated_at = NOW() WHERE id = $2`,
		domain.SlotFree, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *slotRepository) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.DB).ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *slotRepository) DeleteByWindowID(ctx context.Context, windowID string) error {
	_, err := exec(ctx, r.DB).ExecContext(ctx, `DELETE FROM slots WHERE window_id = $1`, windowID)
	return err
}

func (r *slotRepository) CountByWindowID(ctx context.Context, windowID string) (domain.WindowCapacity, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2)
		FROM slots
		WHERE window_id = $3
	`
	var capacity domain.WindowCapacity
	err := exec(ctx, r.DB).QueryRowContext(ctx, query,
		domain.SlotFree, domain.SlotBooked, windowID,
	).Scan(&capacity.Free, &capacity.Booked)
	if err != nil {
		return domain.WindowCapacity{}, err
	}
	return capacity, nil
}

// requireRow maps a zero-row update/delete to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
