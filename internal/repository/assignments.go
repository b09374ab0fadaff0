package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/roster"
)

func (r *Repository) GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	query := `
		SELECT shift_id, staff_id, origin, status, check_in_at, check_out_at, actual_hours, notes, created_at, version
		FROM assignments WHERE id = $1
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	a := &domain.Assignment{
		ID: id,
	}

	dst := []any{&a.ShiftID, &a.StaffID, &a.Origin, &a.Status, &a.CheckInAt, &a.CheckOutAt, &a.ActualHours, &a.Notes, &a.CreatedAt, &a.Version}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return a, nil
}

func (r *Repository) ListStaffActiveAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]*roster.ScheduledShift, error) {
	query := `
		SELECT
			a.id, a.shift_id, a.staff_id, a.origin, a.status, a.check_in_at, a.check_out_at, a.actual_hours, a.notes, a.created_at, a.version,
			s.branch_id, s.date, s.start_time, s.end_time, s.status, s.max_staff, s.employment_type, s.created_at, s.version
		FROM assignments a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.staff_id = $1 AND a.status <> 'CANCELLED' AND s.date BETWEEN $2 AND $3
		ORDER BY s.date, s.start_time
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scheduled := make([]*roster.ScheduledShift, 0)
	for rows.Next() {
		a := &domain.Assignment{}
		s := &domain.Shift{}
		dst := []any{
			&a.ID, &a.ShiftID, &a.StaffID, &a.Origin, &a.Status, &a.CheckInAt, &a.CheckOutAt, &a.ActualHours, &a.Notes, &a.CreatedAt, &a.Version,
			&s.BranchID, &s.Date, &s.StartTime, &s.EndTime, &s.Status, &s.MaxStaff, &s.EmploymentType, &s.CreatedAt, &s.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		s.ID = a.ShiftID
		scheduled = append(scheduled, &roster.ScheduledShift{Assignment: a, Shift: s})
	}

	return scheduled, rows.Err()
}

func (r *Repository) ListShiftAssignments(ctx context.Context, shiftID int64) ([]*domain.Assignment, error) {
	query := `
		SELECT id, shift_id, staff_id, origin, status, check_in_at, check_out_at, actual_hours, notes, created_at, version
		FROM assignments WHERE shift_id = $1 ORDER BY id
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a := &domain.Assignment{}
		dst := []any{&a.ID, &a.ShiftID, &a.StaffID, &a.Origin, &a.Status, &a.CheckInAt, &a.CheckOutAt, &a.ActualHours, &a.Notes, &a.CreatedAt, &a.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func (r *Repository) CountShiftActiveAssignments(ctx context.Context, shiftID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM assignments WHERE shift_id = $1 AND status <> 'CANCELLED'
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, query, shiftID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) FindStaffShiftActiveAssignment(ctx context.Context, shiftID, staffID int64) (*domain.Assignment, error) {
	query := `
		SELECT id, shift_id, staff_id, origin, status, check_in_at, check_out_at, actual_hours, notes, created_at, version
		FROM assignments
		WHERE shift_id = $1 AND staff_id = $2 AND status <> 'CANCELLED'
		LIMIT 1
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	a := &domain.Assignment{}
	dst := []any{&a.ID, &a.ShiftID, &a.StaffID, &a.Origin, &a.Status, &a.CheckInAt, &a.CheckOutAt, &a.ActualHours, &a.Notes, &a.CreatedAt, &a.Version}
	if err := r.db.QueryRowContext(ctx, query, shiftID, staffID).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return a, nil
}

func (r *Repository) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO assignments (shift_id, staff_id, origin, status, check_in_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, version
	`

	args := []any{a.ShiftID, a.StaffID, a.Origin, a.Status, a.CheckInAt, a.Notes}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.Version); err != nil {
		return err
	}

	return nil
}

// UpdateAssignment 带乐观版本号更新，版本不匹配时返回 sql.ErrNoRows
func (r *Repository) UpdateAssignment(ctx context.Context, a *domain.Assignment) error {
	query := `
		UPDATE assignments
		SET
			origin = $1,
			status = $2,
			check_in_at = $3,
			check_out_at = $4,
			actual_hours = $5,
			notes = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING version
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	args := []any{a.Origin, a.Status, a.CheckInAt, a.CheckOutAt, a.ActualHours, a.Notes, a.ID, a.Version}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&a.Version); err != nil {
		return err
	}

	return nil
}
