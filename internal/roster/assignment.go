package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// AssignmentService 管理单条排班的生命周期：
// PENDING → CONFIRMED → CHECKED_IN → CHECKED_OUT，以及 CANCELLED / NO_SHOW 分支
type AssignmentService struct {
	policy    *config.Policy
	store     Store
	validator *Validator
	payroll   PayrollProvider
	penalties PenaltyRecorder
	notifier  Notifier
	now       func() time.Time
}

func NewAssignmentService(policy *config.Policy, store Store, validator *Validator, payroll PayrollProvider, penalties PenaltyRecorder, notifier Notifier) *AssignmentService {
	return &AssignmentService{
		policy:    policy,
		store:     store,
		validator: validator,
		payroll:   payroll,
		penalties: penalties,
		notifier:  notifier,
		now:       time.Now,
	}
}

// SelfRegister 员工自行报名班次，通过校验后创建 PENDING 排班等待店长确认
func (s *AssignmentService) SelfRegister(ctx context.Context, staffID, shiftID int64) (*domain.Assignment, error) {
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	if _, err := s.validator.Validate(ctx, staffID, shift, Options{}); err != nil {
		return nil, err
	}

	assignment := &domain.Assignment{
		ShiftID: shiftID,
		StaffID: staffID,
		Origin:  domain.OriginSelfRegistered,
		Status:  domain.AssignmentPending,
	}

	if err := s.store.InTx(ctx, func(tx Store) error {
		// 校验和落库之间存在窗口，在事务里重查名额和重复报名
		if existing, err := tx.FindStaffShiftActiveAssignment(ctx, shiftID, staffID); err != nil {
			return err
		} else if existing != nil {
			return Conflictf(CodeAlreadyRegistered, "员工已经在该班次上有排班")
		}
		count, err := tx.CountShiftActiveAssignments(ctx, shiftID)
		if err != nil {
			return err
		}
		if count >= int(shift.MaxStaff) {
			return Conflictf(CodeShiftFull, "班次人数已满（%d/%d）", count, shift.MaxStaff)
		}
		return tx.CreateAssignment(ctx, assignment)
	}); err != nil {
		return nil, err
	}

	s.notifyAssignment(ctx, assignment, shift, "created")
	return assignment, nil
}

type ManualAssignOptions struct {
	RoleOverrideReason     string
	CapacityOverrideReason string
	Notes                  string
}

// ManualAssign 店长手动排班。岗位不匹配时必须填写覆盖理由；
// 超编在配置比例以内时必须填写超编理由，超过比例直接拒绝。
// 如果当前时刻已经落在班次时间窗内，直接按已签到创建。
func (s *AssignmentService) ManualAssign(ctx context.Context, staffID, shiftID int64, opts ManualAssignOptions) (*domain.Assignment, error) {
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	res, err := s.validator.Validate(ctx, staffID, shift, Options{
		AllowToday:        true,
		AllowRoleOverride: true,
		SkipCapacityCheck: true,
	})
	if err != nil {
		return nil, err
	}

	if len(res.Warnings) > 0 && opts.RoleOverrideReason == "" {
		return nil, Conflictf(CodeOverrideReasonRequired, "员工岗位与班次要求不符，必须填写覆盖理由")
	}

	assignment := &domain.Assignment{
		ShiftID: shiftID,
		StaffID: staffID,
		Origin:  domain.OriginManual,
		Status:  domain.AssignmentConfirmed,
		Notes:   opts.Notes,
	}

	now := s.now()
	if !now.Before(shift.StartsAt()) && now.Before(shift.EndsAt()) {
		assignment.Status = domain.AssignmentCheckedIn
		assignment.CheckInAt = &now
	}

	if err := s.store.InTx(ctx, func(tx Store) error {
		if existing, err := tx.FindStaffShiftActiveAssignment(ctx, shiftID, staffID); err != nil {
			return err
		} else if existing != nil {
			return Conflictf(CodeAlreadyRegistered, "员工已经在该班次上有排班")
		}

		count, err := tx.CountShiftActiveAssignments(ctx, shiftID)
		if err != nil {
			return err
		}
		if count >= int(shift.MaxStaff) {
			// 超编上限 = 满编 × (100 + 比例) / 100
			limit := int(shift.MaxStaff) * (100 + s.policy.CapacityOverridePercent) / 100
			if count >= limit {
				return Conflictf(CodeCapacityOverrideExceeded, "班次人数 %d 已超过可超编上限 %d", count, limit)
			}
			if opts.CapacityOverrideReason == "" {
				return Conflictf(CodeOverrideReasonRequired, "班次已满编，超编排班必须填写超编理由")
			}
		}
		return tx.CreateAssignment(ctx, assignment)
	}); err != nil {
		return nil, err
	}

	s.notifyAssignment(ctx, assignment, shift, "created")
	return assignment, nil
}

// Approve 店长确认排班：PENDING → CONFIRMED
func (s *AssignmentService) Approve(ctx context.Context, assignmentID int64) (*domain.Assignment, error) {
	var assignment *domain.Assignment
	if err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		assignment, err = tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment.Status != domain.AssignmentPending {
			return Conflictf(CodeInvalidState, "排班当前状态为 %s，不能确认", assignment.Status)
		}
		assignment.Status = domain.AssignmentConfirmed
		return tx.UpdateAssignment(ctx, assignment)
	}); err != nil {
		return nil, err
	}

	s.notifyAssignment(ctx, assignment, nil, "approved")
	return assignment, nil
}

// Reject 店长驳回排班，只允许在 PENDING / CONFIRMED 状态下
func (s *AssignmentService) Reject(ctx context.Context, assignmentID int64, notes string) (*domain.Assignment, error) {
	assignment, err := s.cancel(ctx, assignmentID, notes)
	if err != nil {
		return nil, err
	}
	s.notifyAssignment(ctx, assignment, nil, "rejected")
	return assignment, nil
}

// Unregister 员工自行取消报名，必须是本人的排班
func (s *AssignmentService) Unregister(ctx context.Context, staffID, assignmentID int64) (*domain.Assignment, error) {
	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.StaffID != staffID {
		return nil, Conflictf(CodeNotAllowed, "只能取消自己的排班")
	}

	assignment, err = s.cancel(ctx, assignmentID, "员工自行取消")
	if err != nil {
		return nil, err
	}
	s.notifyAssignment(ctx, assignment, nil, "cancelled")
	return assignment, nil
}

// Delete 店长删除排班，班次开始后不允许删除
func (s *AssignmentService) Delete(ctx context.Context, assignmentID int64, notes string) (*domain.Assignment, error) {
	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	shift, err := s.store.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(shift.StartsAt()) {
		return nil, Conflictf(CodeShiftAlreadyStarted, "班次已经开始，不能删除排班")
	}

	assignment, err = s.cancel(ctx, assignmentID, notes)
	if err != nil {
		return nil, err
	}
	s.notifyAssignment(ctx, assignment, shift, "cancelled")
	return assignment, nil
}

// cancel 把排班置为 CANCELLED，只允许从 PENDING / CONFIRMED 出发
func (s *AssignmentService) cancel(ctx context.Context, assignmentID int64, notes string) (*domain.Assignment, error) {
	var assignment *domain.Assignment
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		assignment, err = tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment.Status != domain.AssignmentPending && assignment.Status != domain.AssignmentConfirmed {
			return Conflictf(CodeInvalidState, "排班当前状态为 %s，不能取消", assignment.Status)
		}
		assignment.Status = domain.AssignmentCancelled
		if notes != "" {
			assignment.Notes = notes
		}
		return tx.UpdateAssignment(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// CheckIn 签到，窗口为 [班次开始 - 提前量, 班次结束 - 截止量]
func (s *AssignmentService) CheckIn(ctx context.Context, staffID, assignmentID int64) (*domain.Assignment, error) {
	var assignment *domain.Assignment
	var shift *domain.Shift
	if err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		assignment, err = tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment.StaffID != staffID {
			return Conflictf(CodeNotAllowed, "只能为自己的排班签到")
		}
		if assignment.Status != domain.AssignmentPending && assignment.Status != domain.AssignmentConfirmed {
			return Conflictf(CodeInvalidState, "排班当前状态为 %s，不能签到", assignment.Status)
		}

		shift, err = tx.GetShift(ctx, assignment.ShiftID)
		if err != nil {
			return err
		}
		if shift.Status == domain.ShiftCancelled {
			return Conflictf(CodeShiftNotOpen, "班次已取消，不能签到")
		}

		now := s.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if shift.Date.After(today) {
			return Conflictf(CodeCheckInTooEarly, "还没到班次日期，不能签到")
		}

		earliest := shift.StartsAt().Add(-time.Duration(s.policy.CheckInEarlyMinutes) * time.Minute)
		latest := shift.EndsAt().Add(-time.Duration(s.policy.CheckInCloseBeforeEndMinutes) * time.Minute)
		switch {
		case now.Before(earliest):
			return Conflictf(CodeCheckInTooEarly, "最早只能在班次开始前 %d 分钟签到", s.policy.CheckInEarlyMinutes)
		case now.After(latest):
			return Conflictf(CodeCheckInTooLate, "签到已截止")
		}

		assignment.Status = domain.AssignmentCheckedIn
		assignment.CheckInAt = &now
		return tx.UpdateAssignment(ctx, assignment)
	}); err != nil {
		return nil, err
	}

	s.notifyAssignment(ctx, assignment, shift, "checked_in")
	return assignment, nil
}

// CheckOut 签退，最早在班次结束前若干分钟。
// NO_SHOW 的排班也走这条路补签退，成功后撤销之前的缺勤处罚。
func (s *AssignmentService) CheckOut(ctx context.Context, staffID, assignmentID int64) (*domain.Assignment, error) {
	var assignment *domain.Assignment
	var shift *domain.Shift
	wasNoShow := false
	if err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		assignment, err = tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment.StaffID != staffID {
			return Conflictf(CodeNotAllowed, "只能为自己的排班签退")
		}
		if assignment.Status != domain.AssignmentCheckedIn && assignment.Status != domain.AssignmentNoShow {
			return Conflictf(CodeInvalidState, "排班当前状态为 %s，不能签退", assignment.Status)
		}
		wasNoShow = assignment.Status == domain.AssignmentNoShow

		shift, err = tx.GetShift(ctx, assignment.ShiftID)
		if err != nil {
			return err
		}

		now := s.now()
		earliest := shift.EndsAt().Add(-time.Duration(s.policy.CheckOutEarlyBeforeEndMinutes) * time.Minute)
		if now.Before(earliest) {
			return Conflictf(CodeCheckOutTooEarly, "最早只能在班次结束前 %d 分钟签退", s.policy.CheckOutEarlyBeforeEndMinutes)
		}

		checkIn := shift.StartsAt()
		if assignment.CheckInAt != nil {
			checkIn = *assignment.CheckInAt
		}
		assignment.Status = domain.AssignmentCheckedOut
		assignment.CheckOutAt = &now
		assignment.ActualHours = now.Sub(checkIn).Hours()
		if assignment.ActualHours > 24 {
			// 超长工时不拦截，标记出来留给人工核查
			slog.Warn("实际工时超过 24 小时，需要人工核查", "assignmentID", assignment.ID, "actualHours", assignment.ActualHours)
			assignment.Notes = "实际工时超过 24 小时，待核查"
		}
		return tx.UpdateAssignment(ctx, assignment)
	}); err != nil {
		return nil, err
	}

	if wasNoShow {
		if err := s.penalties.CancelAbsence(ctx, assignment.StaffID, assignment.ShiftID); err != nil {
			slog.Error("撤销缺勤处罚失败", "assignmentID", assignment.ID, "error", err)
		}
	}

	s.notifyAssignment(ctx, assignment, shift, "checked_out")
	return assignment, nil
}

// MarkNoShow 店长标记旷工。该周期工资已定稿时禁止标记，
// 工资状态查询失败也直接报错，这里不做 fail-open。
func (s *AssignmentService) MarkNoShow(ctx context.Context, assignmentID int64, notes string) (*domain.Assignment, error) {
	var assignment *domain.Assignment
	var shift *domain.Shift
	if err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		assignment, err = tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment.Status != domain.AssignmentConfirmed && assignment.Status != domain.AssignmentCheckedIn {
			return Conflictf(CodeInvalidState, "排班当前状态为 %s，不能标记旷工", assignment.Status)
		}

		shift, err = tx.GetShift(ctx, assignment.ShiftID)
		if err != nil {
			return err
		}

		status, err := s.payroll.GetPayrollStatus(ctx, assignment.StaffID, domain.PayrollPeriodOf(shift.Date))
		if err != nil {
			return err
		}
		if status.IsLocked() {
			return Conflictf(CodePayrollLocked, "该周期工资已定稿，不能再标记旷工")
		}

		assignment.Status = domain.AssignmentNoShow
		if notes != "" {
			assignment.Notes = notes
		}
		return tx.UpdateAssignment(ctx, assignment)
	}); err != nil {
		return nil, err
	}

	ev := &domain.AbsenceEvent{
		StaffID:  assignment.StaffID,
		ShiftID:  shift.ID,
		BranchID: shift.BranchID,
		Date:     shift.Date,
		Period:   domain.PayrollPeriodOf(shift.Date),
	}
	if err := s.penalties.RecordAbsence(ctx, ev); err != nil {
		slog.Error("记录缺勤处罚失败", "assignmentID", assignment.ID, "error", err)
	}

	s.notifyAssignment(ctx, assignment, shift, "no_show")
	return assignment, nil
}

// notifyAssignment 发状态变更通知，失败只记日志，不影响主流程
func (s *AssignmentService) notifyAssignment(ctx context.Context, assignment *domain.Assignment, shift *domain.Shift, event string) {
	staff, err := s.store.GetStaff(ctx, assignment.StaffID)
	if err != nil {
		slog.Error("获取员工信息失败，跳过通知", "staffID", assignment.StaffID, "error", err)
		return
	}
	if shift == nil {
		shift, err = s.store.GetShift(ctx, assignment.ShiftID)
		if err != nil {
			slog.Error("获取班次信息失败，跳过通知", "shiftID", assignment.ShiftID, "error", err)
			return
		}
	}
	s.notifier.NotifyAssignment(staff, shift, event)
}
