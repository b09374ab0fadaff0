package roster

import (
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// rule 是一条用工约束，在不可变快照上求值，互相独立
type rule func(p *config.Policy, opts Options, s *Snapshot) *ConflictError

// structuralRules 是结构性规则，比行为性规则便宜，优先生效
var structuralRules = []rule{
	ruleDateWindow,
	ruleBranchOpen,
	ruleShiftStatus,
	ruleShiftDuration,
	ruleEmploymentType,
	ruleRoleRequirement,
	ruleCapacity,
	ruleDuplicate,
}

// behavioralRules 基于员工已有排班统计求值
var behavioralRules = []rule{
	ruleTimeOverlap,
	ruleDailyHours,
	ruleWeeklyHours,
	ruleDailyShiftCount,
	ruleWeeklyShiftCount,
	ruleConsecutiveDays,
	ruleRestPeriod,
	ruleOvertimeLimits,
	ruleWeekendDays,
	ruleShiftPattern,
}

// overtimeBehavioralRules 是加班申请用的放宽规则集：
// 不查连续工作、休息间隔、周末和班型限制，工时上限放宽到基础加加班额度
var overtimeBehavioralRules = []rule{
	ruleTimeOverlap,
	ruleCombinedDailyCap,
	ruleCombinedWeeklyCap,
	ruleDailyShiftCount,
	ruleWeeklyShiftCount,
}

func ruleDateWindow(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	today := time.Date(s.Now.Year(), s.Now.Month(), s.Now.Day(), 0, 0, 0, 0, s.Now.Location())
	date := time.Date(s.Shift.Date.Year(), s.Shift.Date.Month(), s.Shift.Date.Day(), 0, 0, 0, 0, s.Now.Location())

	switch {
	case date.Before(today):
		return Conflictf(CodeDateInPast, "班次日期 %s 已经过去", date.Format("2006-01-02"))
	case date.Equal(today) && !opts.AllowToday:
		return Conflictf(CodeDateTodayNotAllowed, "不允许报名当天的班次")
	case date.After(today.AddDate(0, p.MaxMonthsAhead, 0)):
		return Conflictf(CodeDateTooFarAhead, "班次日期超过了允许的 %d 个月范围", p.MaxMonthsAhead)
	}
	return nil
}

func ruleBranchOpen(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if s.BranchClosed {
		return Conflictf(CodeBranchClosed, "门店在 %s 闭店", s.Shift.Date.Format("2006-01-02"))
	}
	return nil
}

func ruleShiftStatus(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if s.Shift.Status != domain.ShiftDraft && s.Shift.Status != domain.ShiftPublished {
		return Conflictf(CodeShiftNotOpen, "班次当前状态为 %s，不可报名", s.Shift.Status)
	}
	return nil
}

func ruleShiftDuration(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	d := s.Shift.DurationMinutes()
	if d < p.MinShiftMinutes || d > p.MaxShiftMinutes {
		return Conflictf(CodeInvalidShiftDuration, "班次时长 %d 分钟超出允许范围 [%d, %d]", d, p.MinShiftMinutes, p.MaxShiftMinutes)
	}
	return nil
}

func ruleEmploymentType(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if s.Shift.EmploymentType != domain.EmploymentAny && s.Shift.EmploymentType != s.Staff.EmploymentType {
		return Conflictf(CodeEmploymentTypeMismatch, "班次要求用工类型 %s，与员工的 %s 不符", s.Shift.EmploymentType, s.Staff.EmploymentType)
	}
	return nil
}

func ruleRoleRequirement(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	required := make([]int64, 0)
	for _, rr := range s.Shift.RoleRequirements {
		if rr.Required {
			required = append(required, rr.RoleID)
		}
	}
	if len(required) == 0 {
		return nil
	}

	for _, roleID := range required {
		for _, held := range s.Staff.JobRoleIDs {
			if held == roleID {
				return nil
			}
		}
	}
	return Conflictf(CodeRoleNotQualified, "员工不具备该班次要求的任何岗位")
}

func ruleCapacity(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if opts.SkipCapacityCheck || s.AlreadyOnShift {
		return nil
	}
	if s.ShiftAssigned >= int(s.Shift.MaxStaff) {
		return Conflictf(CodeShiftFull, "班次人数已满（%d/%d）", s.ShiftAssigned, s.Shift.MaxStaff)
	}
	return nil
}

func ruleDuplicate(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if s.AlreadyOnShift {
		return Conflictf(CodeAlreadyRegistered, "员工已经在该班次上有排班")
	}
	return nil
}

func ruleTimeOverlap(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	start := s.Shift.StartsAt()
	end := s.Shift.EndsAt()
	for _, ss := range s.Others {
		if ss.Shift.StartsAt().Before(end) && start.Before(ss.Shift.EndsAt()) {
			return Conflictf(CodeTimeConflict, "与 %s %s-%s 的排班时间重叠",
				ss.Shift.Date.Format("2006-01-02"), ss.Shift.StartTime, ss.Shift.EndTime)
		}
	}
	return nil
}

func ruleDailyHours(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if total := s.dailyMinutes(); total > p.DailyMaxMinutes {
		return Conflictf(CodeExceedsDailyHours, "当日工时将达到 %.1f 小时，超过上限 %.1f 小时",
			float64(total)/60, float64(p.DailyMaxMinutes)/60)
	}
	return nil
}

func ruleWeeklyHours(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if total := s.weeklyMinutes(); total > p.WeeklyMaxMinutes {
		return Conflictf(CodeExceedsWeeklyHours, "本周工时将达到 %.1f 小时，超过上限 %.1f 小时",
			float64(total)/60, float64(p.WeeklyMaxMinutes)/60)
	}
	return nil
}

func ruleDailyShiftCount(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if count := len(s.othersOnDate(s.Shift.Date)) + 1; count > p.MaxShiftsPerDay {
		return Conflictf(CodeExceedsDailyShifts, "当日班次数将达到 %d，超过上限 %d", count, p.MaxShiftsPerDay)
	}
	return nil
}

func ruleWeeklyShiftCount(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	count := 1
	for _, ss := range s.Others {
		if sameWeek(ss.Shift.Date, s.Shift.Date) {
			count++
		}
	}
	if count > p.MaxShiftsPerWeek {
		return Conflictf(CodeExceedsWeeklyShifts, "本周班次数将达到 %d，超过上限 %d", count, p.MaxShiftsPerWeek)
	}
	return nil
}

func ruleConsecutiveDays(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	run := 1
	for d := s.Shift.Date.AddDate(0, 0, -1); s.hasAssignmentOn(d); d = d.AddDate(0, 0, -1) {
		run++
	}
	for d := s.Shift.Date.AddDate(0, 0, 1); s.hasAssignmentOn(d); d = d.AddDate(0, 0, 1) {
		run++
	}
	if run > p.MaxConsecutiveDays {
		return Conflictf(CodeExceedsConsecutiveDays, "连续工作天数将达到 %d 天，超过上限 %d 天", run, p.MaxConsecutiveDays)
	}
	return nil
}

func ruleRestPeriod(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	start := s.Shift.StartsAt()
	end := s.Shift.EndsAt()
	for _, ss := range s.Others {
		required := time.Duration(p.MinRestMinutes) * time.Minute
		if s.Shift.IsNight() || ss.Shift.IsNight() {
			required = time.Duration(p.NightRestMinutes) * time.Minute
		}

		var gap time.Duration
		switch {
		case !ss.Shift.EndsAt().After(start):
			gap = start.Sub(ss.Shift.EndsAt())
		case !end.After(ss.Shift.StartsAt()):
			gap = ss.Shift.StartsAt().Sub(end)
		default:
			// 时间重叠由前面的规则处理
			continue
		}

		if gap < required {
			return Conflictf(CodeInsufficientRest, "与 %s 的排班之间只有 %.1f 小时休息，不足 %.1f 小时",
				ss.Shift.Date.Format("2006-01-02"), gap.Hours(), required.Hours())
		}
	}
	return nil
}

func ruleOvertimeLimits(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	if excess := s.weeklyMinutes() - p.WeeklyMaxMinutes; excess > p.WeeklyOvertimeMinutes {
		return Conflictf(CodeExceedsOvertimeLimit, "本周加班将达到 %.1f 小时，超过加班上限 %.1f 小时",
			float64(excess)/60, float64(p.WeeklyOvertimeMinutes)/60)
	}
	if excess := s.dailyMinutes() - p.DailyMaxMinutes; excess > p.DailyOvertimeMinutes {
		return Conflictf(CodeExceedsOvertimeLimit, "当日加班将达到 %.1f 小时，超过加班上限 %.1f 小时",
			float64(excess)/60, float64(p.DailyOvertimeMinutes)/60)
	}
	return nil
}

func ruleWeekendDays(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	count := 0
	monday := weekStart(s.Shift.Date)
	for i := 0; i < 7; i++ {
		d := monday.AddDate(0, 0, i)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			continue
		}
		if s.hasAssignmentOn(d) {
			count++
		}
	}
	if !s.Shift.IsWeekend() {
		return nil
	}
	if count > p.MaxWeekendDaysPerWeek {
		return Conflictf(CodeExceedsWeekendDays, "本周周末工作天数将达到 %d 天，超过上限 %d 天", count, p.MaxWeekendDaysPerWeek)
	}
	return nil
}

func ruleShiftPattern(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	// 早班不能紧跟前一天的夜班
	if s.Shift.IsMorning() {
		for _, ss := range s.othersOnDate(s.Shift.Date.AddDate(0, 0, -1)) {
			if ss.Shift.IsNight() {
				return Conflictf(CodeShiftPatternViolation, "夜班后第二天不能上早班")
			}
		}
	}
	// 夜班不能紧跟同一天的午后班
	if s.Shift.IsNight() {
		for _, ss := range s.othersOnDate(s.Shift.Date) {
			if ss.Shift.IsAfternoon() {
				return Conflictf(CodeShiftPatternViolation, "午后班结束后当天不能再上夜班")
			}
		}
		for _, ss := range s.othersOnDate(s.Shift.Date.AddDate(0, 0, 1)) {
			if ss.Shift.IsMorning() {
				return Conflictf(CodeShiftPatternViolation, "夜班后第二天不能上早班")
			}
		}
	}
	if s.Shift.IsAfternoon() {
		for _, ss := range s.othersOnDate(s.Shift.Date) {
			if ss.Shift.IsNight() {
				return Conflictf(CodeShiftPatternViolation, "午后班结束后当天不能再上夜班")
			}
		}
	}
	return nil
}

func ruleCombinedDailyCap(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	limit := p.DailyMaxMinutes + p.DailyOvertimeMinutes
	if total := s.dailyMinutes(); total > limit {
		return Conflictf(CodeExceedsOvertimeLimit, "当日工时（含加班）将达到 %.1f 小时，超过上限 %.1f 小时",
			float64(total)/60, float64(limit)/60)
	}
	return nil
}

func ruleCombinedWeeklyCap(p *config.Policy, opts Options, s *Snapshot) *ConflictError {
	limit := p.WeeklyMaxMinutes + p.WeeklyOvertimeMinutes
	if total := s.weeklyMinutes(); total > limit {
		return Conflictf(CodeExceedsOvertimeLimit, "本周工时（含加班）将达到 %.1f 小时，超过上限 %.1f 小时",
			float64(total)/60, float64(limit)/60)
	}
	return nil
}
