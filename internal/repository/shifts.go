package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

func (r *Repository) loadRoleRequirements(ctx context.Context, shiftID int64) ([]domain.ShiftRoleRequirement, error) {
	query := `
		SELECT role_id, quantity, required FROM shift_role_requirements WHERE shift_id = $1 ORDER BY role_id
	`

	rows, err := r.db.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := make([]domain.ShiftRoleRequirement, 0)
	for rows.Next() {
		var rr domain.ShiftRoleRequirement
		if err := rows.Scan(&rr.RoleID, &rr.Quantity, &rr.Required); err != nil {
			return nil, err
		}
		reqs = append(reqs, rr)
	}

	return reqs, rows.Err()
}

func (r *Repository) GetShift(ctx context.Context, id int64) (*domain.Shift, error) {
	query := `
		SELECT branch_id, date, start_time, end_time, status, max_staff, employment_type, created_at, version
		FROM shifts WHERE id = $1
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	shift := &domain.Shift{
		ID: id,
	}

	dst := []any{&shift.BranchID, &shift.Date, &shift.StartTime, &shift.EndTime, &shift.Status, &shift.MaxStaff, &shift.EmploymentType, &shift.CreatedAt, &shift.Version}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	reqs, err := r.loadRoleRequirements(ctx, id)
	if err != nil {
		return nil, err
	}
	shift.RoleRequirements = reqs

	return shift, nil
}

func (r *Repository) ListShifts(ctx context.Context, branchID int64, from, to time.Time) ([]*domain.Shift, error) {
	query := `
		SELECT id, branch_id, date, start_time, end_time, status, max_staff, employment_type, created_at, version
		FROM shifts
		WHERE branch_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, start_time
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, branchID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0)
	for rows.Next() {
		shift := &domain.Shift{}
		dst := []any{&shift.ID, &shift.BranchID, &shift.Date, &shift.StartTime, &shift.EndTime, &shift.Status, &shift.MaxStaff, &shift.EmploymentType, &shift.CreatedAt, &shift.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, shift := range shifts {
		reqs, err := r.loadRoleRequirements(ctx, shift.ID)
		if err != nil {
			return nil, err
		}
		shift.RoleRequirements = reqs
	}

	return shifts, nil
}

func (r *Repository) CreateShift(ctx context.Context, shift *domain.Shift) error {
	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO shifts (branch_id, date, start_time, end_time, status, max_staff, employment_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	args := []any{shift.BranchID, shift.Date, shift.StartTime, shift.EndTime, shift.Status, shift.MaxStaff, shift.EmploymentType}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&shift.ID, &shift.CreatedAt, &shift.Version); err != nil {
		return err
	}

	for _, rr := range shift.RoleRequirements {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO shift_role_requirements (shift_id, role_id, quantity, required) VALUES ($1, $2, $3, $4)`,
			shift.ID, rr.RoleID, rr.Quantity, rr.Required); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) UpdateShiftStatus(ctx context.Context, shift *domain.Shift) error {
	query := `
		UPDATE shifts
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	if err := r.db.QueryRowContext(ctx, query, shift.Status, shift.ID, shift.Version).Scan(&shift.Version); err != nil {
		return err
	}

	return nil
}
