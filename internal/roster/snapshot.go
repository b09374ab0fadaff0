package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// snapshotWindowDays 决定校验时向前后各取多少天的排班，
// 覆盖连续工作天数和整周统计所需要的邻域
const snapshotWindowDays = 35

// Snapshot 是校验用的不可变快照：候选班次、员工档案以及员工邻近的未取消排班。
// 所有规则都只读这份快照，因此可以安全地并发求值。
type Snapshot struct {
	Staff *domain.Staff
	Shift *domain.Shift
	// Others 是该员工除候选班次以外的未取消排班
	Others []*ScheduledShift
	// ShiftAssigned 是候选班次上当前未取消的排班数量
	ShiftAssigned int
	// AlreadyOnShift 表示该员工在候选班次上已有未取消的排班
	AlreadyOnShift bool
	// BranchClosed 来自门店日历，日历不可用时保持 false（fail-open）
	BranchClosed bool
	Now          time.Time
}

func (v *Validator) buildSnapshot(ctx context.Context, staffID int64, shift *domain.Shift) (*Snapshot, error) {
	staff, err := v.store.GetStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}

	from := shift.Date.AddDate(0, 0, -snapshotWindowDays)
	to := shift.Date.AddDate(0, 0, snapshotWindowDays)
	scheduled, err := v.store.ListStaffActiveAssignments(ctx, staffID, from, to)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Staff:  staff,
		Shift:  shift,
		Others: make([]*ScheduledShift, 0, len(scheduled)),
		Now:    v.now(),
	}

	for _, ss := range scheduled {
		if ss.Assignment.ShiftID == shift.ID {
			snap.AlreadyOnShift = true
			continue
		}
		snap.Others = append(snap.Others, ss)
	}

	count, err := v.store.CountShiftActiveAssignments(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	snap.ShiftAssigned = count

	// 门店日历不可用时不阻塞排班，只记日志
	closed, err := v.calendar.IsBranchClosed(ctx, shift.BranchID, shift.Date)
	if err != nil {
		slog.Warn("门店日历不可用，跳过闭店检查", "branchID", shift.BranchID, "date", shift.Date.Format("2006-01-02"), "error", err)
	} else {
		snap.BranchClosed = closed
	}

	return snap, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// weekStart 返回日期所在 ISO 周（周一到周日）的周一
func weekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	d := date.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

func sameWeek(a, b time.Time) bool {
	return weekStart(a).Equal(weekStart(b))
}

// othersOnDate 返回快照中指定日期的其他排班
func (s *Snapshot) othersOnDate(date time.Time) []*ScheduledShift {
	res := make([]*ScheduledShift, 0)
	for _, ss := range s.Others {
		if sameDate(ss.Shift.Date, date) {
			res = append(res, ss)
		}
	}
	return res
}

// dailyMinutes 是候选日期的工时合计（含候选班次）
func (s *Snapshot) dailyMinutes() int {
	total := s.Shift.DurationMinutes()
	for _, ss := range s.othersOnDate(s.Shift.Date) {
		total += ss.Shift.DurationMinutes()
	}
	return total
}

// weeklyMinutes 是候选日期所在周的工时合计（含候选班次）
func (s *Snapshot) weeklyMinutes() int {
	total := s.Shift.DurationMinutes()
	for _, ss := range s.Others {
		if sameWeek(ss.Shift.Date, s.Shift.Date) {
			total += ss.Shift.DurationMinutes()
		}
	}
	return total
}

// hasAssignmentOn 判断员工在某天是否有排班（候选日期本身视为有）
func (s *Snapshot) hasAssignmentOn(date time.Time) bool {
	if sameDate(date, s.Shift.Date) {
		return true
	}
	return len(s.othersOnDate(date)) > 0
}
