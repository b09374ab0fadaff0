package roster

import (
	"context"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// Resolver 负责申请之间的互斥：
// 一条排班同时最多只能有一条未终结申请；
// 同一对员工之间的互补申请（循环申请）不允许同时存在；
// 改派生效后，引用旧排班或新排班的其他申请全部自动作废。
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// EnsureNoOpenRequest 保证该排班上没有未终结的申请
func (r *Resolver) EnsureNoOpenRequest(ctx context.Context, s Store, assignmentID int64) error {
	open, err := s.ListOpenRequestsByAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return Conflictf(CodeDuplicateRequest, "该排班已有未处理的申请")
	}
	return nil
}

// CheckCircular 做对称的循环申请检查：
// 不区分谁是申请人，只要这对员工之间在该排班上已有指定类型的未终结申请就拒绝。
// 各种类型共用这一个入口，避免每种类型各写一份方向判断。
func (r *Resolver) CheckCircular(ctx context.Context, s Store, assignmentID, staffA, staffB int64, types ...domain.RequestType) error {
	req, err := s.FindOpenCounterpart(ctx, assignmentID, types, staffA, staffB)
	if err != nil {
		return err
	}
	if req != nil {
		return Conflictf(CodeCircularRequestDetected, "这对员工之间已存在针对该排班的互补申请")
	}
	return nil
}

// CancelStale 把引用这些排班的其他未终结申请全部置为 CANCELLED，
// keepRequestID 是刚刚批准的那条申请，跳过不动
func (r *Resolver) CancelStale(ctx context.Context, s Store, assignmentIDs []int64, keepRequestID int64, note string) error {
	for _, assignmentID := range assignmentIDs {
		open, err := s.ListOpenRequestsByAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		for _, req := range open {
			if req.ID == keepRequestID {
				continue
			}
			req.Status = domain.RequestCancelled
			req.ReviewNotes = note
			if err := s.UpdateRequest(ctx, req); err != nil {
				return err
			}
		}
	}
	return nil
}
