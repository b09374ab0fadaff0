package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// IsBranchClosed 查询门店在某天是否闭店
func (r *Repository) IsBranchClosed(ctx context.Context, branchID int64, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM branch_closures WHERE branch_id = $1 AND date = $2)
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	closed := false
	if err := r.db.QueryRowContext(ctx, query, branchID, date).Scan(&closed); err != nil {
		return false, err
	}

	return closed, nil
}

// GetPayrollStatus 查询某员工某结算周期的工资单状态，没有记录视为未定稿
func (r *Repository) GetPayrollStatus(ctx context.Context, staffID int64, period string) (domain.PayrollStatus, error) {
	query := `
		SELECT status FROM payroll_records WHERE staff_id = $1 AND period = $2
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	var status domain.PayrollStatus
	if err := r.db.QueryRowContext(ctx, query, staffID, period).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PayrollDraft, nil
		}
		return "", err
	}

	return status, nil
}

// RecordAbsence 登记一条缺勤处罚
func (r *Repository) RecordAbsence(ctx context.Context, ev *domain.AbsenceEvent) error {
	query := `
		INSERT INTO penalties (staff_id, shift_id, branch_id, date, period, status)
		VALUES ($1, $2, $3, $4, $5, 'ACTIVE')
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, query, ev.StaffID, ev.ShiftID, ev.BranchID, ev.Date, ev.Period); err != nil {
		return err
	}

	return nil
}

// CancelAbsence 撤销旷工补签后不再成立的缺勤处罚
func (r *Repository) CancelAbsence(ctx context.Context, staffID, shiftID int64) error {
	query := `
		UPDATE penalties SET status = 'CANCELLED' WHERE staff_id = $1 AND shift_id = $2 AND status = 'ACTIVE'
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, query, staffID, shiftID); err != nil {
		return err
	}

	return nil
}
