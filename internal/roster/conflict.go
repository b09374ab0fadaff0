package roster

import (
	"errors"
	"fmt"
)

// ConflictCode 是用工约束和审批前置条件的违规代码，每条规则对应一个
type ConflictCode string

const (
	CodeDateInPast               ConflictCode = "DATE_IN_PAST"
	CodeDateTodayNotAllowed      ConflictCode = "DATE_TODAY_NOT_ALLOWED"
	CodeDateTooFarAhead          ConflictCode = "DATE_TOO_FAR_AHEAD"
	CodeBranchClosed             ConflictCode = "BRANCH_CLOSED"
	CodeShiftNotOpen             ConflictCode = "SHIFT_NOT_OPEN"
	CodeInvalidShiftDuration     ConflictCode = "INVALID_SHIFT_DURATION"
	CodeEmploymentTypeMismatch   ConflictCode = "EMPLOYMENT_TYPE_MISMATCH"
	CodeRoleNotQualified         ConflictCode = "ROLE_NOT_QUALIFIED"
	CodeShiftFull                ConflictCode = "SHIFT_FULL"
	CodeAlreadyRegistered        ConflictCode = "ALREADY_REGISTERED"
	CodeTimeConflict             ConflictCode = "TIME_CONFLICT"
	CodeExceedsDailyHours        ConflictCode = "EXCEEDS_DAILY_HOURS"
	CodeExceedsWeeklyHours       ConflictCode = "EXCEEDS_WEEKLY_HOURS"
	CodeExceedsDailyShifts       ConflictCode = "EXCEEDS_DAILY_SHIFTS"
	CodeExceedsWeeklyShifts      ConflictCode = "EXCEEDS_WEEKLY_SHIFTS"
	CodeExceedsConsecutiveDays   ConflictCode = "EXCEEDS_CONSECUTIVE_DAYS"
	CodeInsufficientRest         ConflictCode = "INSUFFICIENT_REST"
	CodeExceedsOvertimeLimit     ConflictCode = "EXCEEDS_OVERTIME_LIMIT"
	CodeExceedsWeekendDays       ConflictCode = "EXCEEDS_WEEKEND_DAYS"
	CodeShiftPatternViolation    ConflictCode = "SHIFT_PATTERN_VIOLATION"
	CodeInvalidState             ConflictCode = "INVALID_STATE"
	CodeCheckInTooEarly          ConflictCode = "CHECK_IN_TOO_EARLY"
	CodeCheckInTooLate           ConflictCode = "CHECK_IN_TOO_LATE"
	CodeCheckOutTooEarly         ConflictCode = "CHECK_OUT_TOO_EARLY"
	CodeShiftAlreadyStarted      ConflictCode = "SHIFT_ALREADY_STARTED"
	CodePayrollLocked            ConflictCode = "PAYROLL_LOCKED"
	CodeOverrideReasonRequired   ConflictCode = "OVERRIDE_REASON_REQUIRED"
	CodeCapacityOverrideExceeded ConflictCode = "CAPACITY_OVERRIDE_EXCEEDED"
	CodeDuplicateRequest         ConflictCode = "DUPLICATE_REQUEST"
	CodeCircularRequestDetected  ConflictCode = "CIRCULAR_REQUEST_DETECTED"
	CodeAssignmentReassigned     ConflictCode = "ASSIGNMENT_ALREADY_REASSIGNED"
	CodeRequestAlreadyProcessed  ConflictCode = "REQUEST_ALREADY_PROCESSED"
	CodeLeaveDeadlinePassed      ConflictCode = "LEAVE_DEADLINE_PASSED"
	CodeNotAllowed               ConflictCode = "NOT_ALLOWED"
)

// ConflictError 带有违规代码和给用户看的中文说明。
// 校验失败对本次调用是终态，调用方不应该自动重试。
type ConflictError struct {
	Code    ConflictCode
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Conflictf(code ConflictCode, format string, args ...any) *ConflictError {
	return &ConflictError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsConflict 判断一个错误是不是业务冲突，方便 handler 区分冲突和服务器内部错误
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
