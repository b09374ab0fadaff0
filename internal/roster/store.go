package roster

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// ScheduledShift 是一条排班连同它对应的班次
type ScheduledShift struct {
	Assignment *domain.Assignment
	Shift      *domain.Shift
}

// Store 是核心引擎对持久层的全部要求。
// Get* 查不到时返回 sql.ErrNoRows；Find* 查不到时返回 (nil, nil)。
// 所有会改变状态的操作都必须放在 InTx 里执行，
// 更新使用乐观版本号，版本不匹配时返回 sql.ErrNoRows。
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	GetStaff(ctx context.Context, id int64) (*domain.Staff, error)
	GetShift(ctx context.Context, id int64) (*domain.Shift, error)

	GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error)
	// ListStaffActiveAssignments 返回员工在 [from, to] 日期范围内所有未取消的排班
	ListStaffActiveAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]*ScheduledShift, error)
	CountShiftActiveAssignments(ctx context.Context, shiftID int64) (int, error)
	FindStaffShiftActiveAssignment(ctx context.Context, shiftID, staffID int64) (*domain.Assignment, error)
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	UpdateAssignment(ctx context.Context, a *domain.Assignment) error

	GetRequest(ctx context.Context, id int64) (*domain.Request, error)
	// ListOpenRequestsByAssignment 返回引用该排班的所有未终结申请
	ListOpenRequestsByAssignment(ctx context.Context, assignmentID int64) ([]*domain.Request, error)
	// FindOpenCounterpart 做对称的循环申请查找：
	// 在指定排班上找一条未终结申请，类型属于 types，
	// 且申请人和对方恰好是 staffA/staffB 这对员工（两个方向都算）
	FindOpenCounterpart(ctx context.Context, assignmentID int64, types []domain.RequestType, staffA, staffB int64) (*domain.Request, error)
	CreateRequest(ctx context.Context, req *domain.Request) error
	UpdateRequest(ctx context.Context, req *domain.Request) error
}

// BranchCalendar 提供门店的营业日信息。
// 查询失败按“未闭店”处理（fail-open），由调用方记录日志。
type BranchCalendar interface {
	IsBranchClosed(ctx context.Context, branchID int64, date time.Time) (bool, error)
}

// PayrollProvider 提供某员工某结算周期的工资单状态。
// 这里不允许 fail-open：查不到状态时必须报错，否则可能改动已定稿的考勤。
type PayrollProvider interface {
	GetPayrollStatus(ctx context.Context, staffID int64, period string) (domain.PayrollStatus, error)
}

// PenaltyRecorder 是缺勤处罚模块的边界
type PenaltyRecorder interface {
	RecordAbsence(ctx context.Context, ev *domain.AbsenceEvent) error
	CancelAbsence(ctx context.Context, staffID, shiftID int64) error
}

// Notifier 在状态变更后发通知，失败只记日志，从不重试也从不阻塞状态变更
type Notifier interface {
	NotifyAssignment(staff *domain.Staff, shift *domain.Shift, event string)
	NotifyRequest(staff *domain.Staff, req *domain.Request, event string)
}
