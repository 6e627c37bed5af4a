package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"admissionscheduling/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSlotRepository_Create(t *testing.T) {
	ctx := context.Background()
	startsAt := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	endsAt := startsAt.Add(30 * time.Minute)
	createdAt := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		slot    *domain.Slot
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr bool
	}{
		{
			name: "success",
			slot: &domain.Slot{
				WindowID:  "win-1",
				StartsAt:  startsAt,
				EndsAt:    endsAt,
				Status:    domain.SlotFree,
				CreatedAt: createdAt,
				UpdatedAt: createdAt,
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO slots`).
					WithArgs("win-1", startsAt, endsAt, domain.SlotFree, nil, createdAt, createdAt).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("slot-uuid-1"))
			},
			wantID: "slot-uuid-1",
		},
		{
			name: "db error",
			slot: &domain.Slot{WindowID: "win-1", StartsAt: startsAt, EndsAt: endsAt, Status: domain.SlotFree},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO slots`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewSlotRepository(db)
			err = repo.Create(ctx, tt.slot)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, tt.slot.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSlotRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	startsAt := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	endsAt := startsAt.Add(30 * time.Minute)
	createdAt := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			id:   "slot-1",
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "window_id", "starts_at", "ends_at", "status", "held_by", "created_at", "updated_at"}).
					AddRow("slot-1", "win-1", startsAt, endsAt, "free", nil, createdAt, createdAt)
				mock.ExpectQuery(`SELECT (.+) FROM slots WHERE id = \$1 FOR UPDATE`).
					WithArgs("slot-1").
					WillReturnRows(rows)
			},
		},
		{
			name: "not found",
			id:   "slot-2",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM slots WHERE id = \$1 FOR UPDATE`).
					WithArgs("slot-2").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewSlotRepository(db)
			slot, err := repo.LockForUpdate(ctx, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.id, slot.ID)
			require.Equal(t, domain.SlotFree, slot.Status)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSlotRepository_MarkBooked(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE slots SET status`).
					WithArgs(domain.SlotBooked, "user-1", "slot-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "no row updated",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE slots SET status`).
					WithArgs(domain.SlotBooked, "user-1", "slot-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewSlotRepository(db)
			err = repo.MarkBooked(ctx, "slot-1", "user-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSlotRepository_ListByEventID(t *testing.T) {
	ctx := context.Background()
	startsAt := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	endsAt := startsAt.Add(30 * time.Minute)
	createdAt := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	free := domain.SlotFree

	tests := []struct {
		name    string
		status  *domain.SlotStatus
		mock    func(mock sqlmock.Sqlmock)
		wantLen int
		wantErr bool
	}{
		{
			name: "all slots",
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "window_id", "starts_at", "ends_at", "status", "held_by", "created_at", "updated_at"}).
					AddRow("slot-1", "win-1", startsAt, endsAt, "free", nil, createdAt, createdAt).
					AddRow("slot-2", "win-1", endsAt, endsAt.Add(30*time.Minute), "booked", "user-1", createdAt, createdAt)
				mock.ExpectQuery(`SELECT s.id, s.window_id, s.starts_at, s.ends_at, s.status, s.held_by, s.created_at, s.updated_at`).
					WithArgs("ev-1").
					WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name:   "filtered by status",
			status: &free,
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "window_id", "starts_at", "ends_at", "status", "held_by", "created_at", "updated_at"}).
					AddRow("slot-1", "win-1", startsAt, endsAt, "free", nil, createdAt, createdAt)
				mock.ExpectQuery(`SELECT s.id, s.window_id, s.starts_at, s.ends_at, s.status, s.held_by, s.created_at, s.updated_at`).
					WithArgs("ev-1", free).
					WillReturnRows(rows)
			},
			wantLen: 1,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT s.id, s.window_id, s.starts_at, s.ends_at, s.status, s.held_by, s.created_at, s.updated_at`).
					WithArgs("ev-1").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewSlotRepository(db)
			slots, err := repo.ListByEventID(ctx, "ev-1", tt.status)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, slots, tt.wantLen)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSlotRepository_CountByWindowID(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs(domain.SlotFree, domain.SlotBooked, "win-1").
		WillReturnRows(sqlmock.NewRows([]string{"free", "booked"}).AddRow(3, 2))

	repo := NewSlotRepository(db)
	capacity, err := repo.CountByWindowID(ctx, "win-1")
	require.NoError(t, err)
	require.Equal(t, domain.WindowCapacity{Free: 3, Booked: 2}, capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}
