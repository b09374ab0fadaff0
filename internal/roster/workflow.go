package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// RequestService 编排排班变更申请的多方审批流程。
// LEAVE / OVERTIME 只需店长审批，SWAP / PICK_UP / TWO_WAY_SWAP 先对方同意再店长审批。
type RequestService struct {
	policy    *config.Policy
	store     Store
	validator *Validator
	resolver  *Resolver
	notifier  Notifier
	now       func() time.Time
}

func NewRequestService(policy *config.Policy, store Store, validator *Validator, resolver *Resolver, notifier Notifier) *RequestService {
	return &RequestService{
		policy:    policy,
		store:     store,
		validator: validator,
		resolver:  resolver,
		notifier:  notifier,
		now:       time.Now,
	}
}

// ownedEligibleAssignment 取出排班并确认属于指定员工且还没进入考勤阶段
func (s *RequestService) ownedEligibleAssignment(ctx context.Context, store Store, assignmentID, staffID int64) (*domain.Assignment, error) {
	assignment, err := store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.StaffID != staffID {
		return nil, Conflictf(CodeNotAllowed, "该排班不属于这名员工")
	}
	if assignment.Status != domain.AssignmentPending && assignment.Status != domain.AssignmentConfirmed {
		return nil, Conflictf(CodeInvalidState, "排班当前状态为 %s，不能发起申请", assignment.Status)
	}
	return assignment, nil
}

// CreateLeave 请假申请，必须在班次开始前指定小时数之外提交
func (s *RequestService) CreateLeave(ctx context.Context, requesterID, assignmentID int64, reason string) (*domain.Request, error) {
	assignment, err := s.ownedEligibleAssignment(ctx, s.store, assignmentID, requesterID)
	if err != nil {
		return nil, err
	}
	shift, err := s.store.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return nil, err
	}

	deadline := shift.StartsAt().Add(-time.Duration(s.policy.LeaveDeadlineHours) * time.Hour)
	if s.now().After(deadline) {
		return nil, Conflictf(CodeLeaveDeadlinePassed, "请假必须提前 %d 小时提交", s.policy.LeaveDeadlineHours)
	}

	req := &domain.Request{
		AssignmentID: assignmentID,
		RequesterID:  requesterID,
		Type:         domain.RequestLeave,
		Status:       domain.RequestPending,
		Reason:       reason,
	}

	if err := s.store.InTx(ctx, func(tx Store) error {
		if err := s.resolver.EnsureNoOpenRequest(ctx, tx, assignmentID); err != nil {
			return err
		}
		return tx.CreateRequest(ctx, req)
	}); err != nil {
		return nil, err
	}

	s.notifyRequest(ctx, requesterID, req, "created")
	return req, nil
}

// CreateOvertime 加班申请：员工申请一个自己还没有的班次，
// 先用放宽规则集校验，然后创建一条 OVERTIME_PENDING 的临时排班挂在申请上
func (s *RequestService) CreateOvertime(ctx context.Context, requesterID, shiftID int64, reason string) (*domain.Request, error) {
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	if _, err := s.validator.ValidateOvertime(ctx, requesterID, shift); err != nil {
		return nil, err
	}

	assignment := &domain.Assignment{
		ShiftID: shiftID,
		StaffID: requesterID,
		Origin:  domain.OriginOvertimeRequest,
		Status:  domain.AssignmentOvertimePending,
	}
	req := &domain.Request{
		RequesterID: requesterID,
		Type:        domain.RequestOvertime,
		Status:      domain.RequestPending,
		Reason:      reason,
	}

	if err := s.store.InTx(ctx, func(tx Store) error {
		if existing, err := tx.FindStaffShiftActiveAssignment(ctx, shiftID, requesterID); err != nil {
			return err
		} else if existing != nil {
			return Conflictf(CodeAlreadyRegistered, "员工已经在该班次上有排班")
		}
		if err := tx.CreateAssignment(ctx, assignment); err != nil {
			return err
		}
		req.AssignmentID = assignment.ID
		return tx.CreateRequest(ctx, req)
	}); err != nil {
		return nil, err
	}

	s.notifyRequest(ctx, requesterID, req, "created")
	return req, nil
}

// CreateSwap 把自己的班转给对方。对方必须能通过完整校验，
// 名额检查跳过（转班前后班次占用不变）。
func (s *RequestService) CreateSwap(ctx context.Context, requesterID, assignmentID, targetStaffID int64, reason string) (*domain.Request, error) {
	if targetStaffID == requesterID {
		return nil, Conflictf(CodeNotAllowed, "不能把班转给自己")
	}
	assignment, err := s.ownedEligibleAssignment(ctx, s.store, assignmentID, requesterID)
	if err != nil {
		return nil, err
	}
	shift, err := s.store.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return nil, err
	}
	target, err := s.store.GetStaff(ctx, targetStaffID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return nil, Conflictf(CodeNotAllowed, "对方员工已离职")
	}

	if _, err := s.validator.Validate(ctx, targetStaffID, shift, Options{SkipCapacityCheck: true}); err != nil {
		return nil, err
	}

	req := &domain.Request{
		AssignmentID:  assignmentID,
		RequesterID:   requesterID,
		Type:          domain.RequestSwap,
		TargetStaffID: &targetStaffID,
		Status:        domain.RequestPendingTargetApproval,
		Reason:        reason,
	}

	if err := s.store.InTx(ctx, func(tx Store) error {
		if err := s.resolver.EnsureNoOpenRequest(ctx, tx, assignmentID); err != nil {
			return err
		}
		// 对方如果已经对这条排班发起过接班申请，两边同时批准会产生矛盾结果
		if err := s.resolver.CheckCircular(ctx, tx, assignmentID, requesterID, targetStaffID, domain.RequestSwap, domain.RequestPickUp); err != nil {
			return err
		}
		return tx.CreateRequest(ctx, req)
	}); err != nil {
		return nil, err
	}

	s.notifyRequest(ctx, targetStaffID, req, "created")
	return req, nil
}

// CreatePickUp 接别人的班。申请人必须能通过完整校验，目标是排班的持有人。
func (s *RequestService) CreatePickUp(ctx context.Context, requesterID, assignmentID int64, reason string) (*domain.Request, error) {
	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.StaffID == requesterID {
		return nil, Conflictf(CodeNotAllowed, "不能接自己的班")
	}
	if assignment.Status != domain.AssignmentPending && assignment.Status != domain.AssignmentConfirmed {
		return nil, Conflictf(CodeInvalidState, "排班当前状态为 %s，不能发起申请", assignment.Status)
	}
	shift, err := s.store.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return nil, err
	}

	if _, err := s.validator.Validate(ctx, requesterID, shift, Options{SkipCapacityCheck: true}); err != nil {
		return nil, err
	}

	ownerID := assignment.StaffID
	req := &domain.Request{
		AssignmentID:  assignmentID,
		RequesterID:   requesterID,
		Type:          domain.RequestPickUp,
		TargetStaffID: &ownerID,
		Status:        domain.RequestPendingTargetApproval,
		Reason:        reason,
	}

	if err := s.store.InTx(ctx, func(tx Store) error {
		if err := s.resolver.EnsureNoOpenRequest(ctx, tx, assignmentID); err != nil {
			return err
		}
		if err := s.resolver.CheckCircular(ctx, tx, assignmentID, requesterID, ownerID, domain.RequestSwap, domain.RequestPickUp); err != nil {
			return err
		}
		return tx.CreateRequest(ctx, req)
	}); err != nil {
		return nil, err
	}

	s.notifyRequest(ctx, ownerID, req, "created")
	return req, nil
}

// CreateTwoWaySwap 双向换班：双方各持有一条排班，互相校验对方的班次
func (s *RequestService) CreateTwoWaySwap(ctx context.Context, requesterID, assignmentID, targetAssignmentID int64, reason string) (*domain.Request, error) {
	if assignmentID == targetAssignmentID {
		return nil, Conflictf(CodeNotAllowed, "不能和同一条排班互换")
	}
	mine, err := s.ownedEligibleAssignment(ctx, s.store, assignmentID, requesterID)
	if err != nil {
		return nil, err
	}
	theirs, err := s.store.GetAssignment(ctx, targetAssignmentID)
	if err != nil {
		return nil, err
	}
	if theirs.StaffID == requesterID {
		return nil, Conflictf(CodeNotAllowed, "对方排班不能是自己的")
	}
	if theirs.Status != domain.AssignmentPending && theirs.Status != domain.AssignmentConfirmed {
		return nil, Conflictf(CodeInvalidState, "对方排班当前状态为 %s，不能发起申请", theirs.Status)
	}

	myShift, err := s.store.GetShift(ctx, mine.ShiftID)
	if err != nil {
		return nil, err
	}
	theirShift, err := s.store.GetShift(ctx, theirs.ShiftID)
	if err != nil {
		return nil, err
	}

	if _, err := s.validator.Validate(ctx, requesterID, theirShift, Options{SkipCapacityCheck: true}); err != nil {
		return nil, err
	}
	if _, err := s.validator.Validate(ctx, theirs.StaffID, myShift, Options{SkipCapacityCheck: true}); err != nil {
		return nil, err
	}

	targetID := theirs.StaffID
	req := &domain.Request{
		AssignmentID:       assignmentID,
		RequesterID:        requesterID,
		Type:               domain.RequestTwoWaySwap,
		TargetStaffID:      &targetID,
		TargetAssignmentID: &targetAssignmentID,
		Status:             domain.RequestPendingTargetApproval,
		Reason:             reason,
	}

	if err := s.store.InTx(ctx, func(tx Store) error {
		if err := s.resolver.EnsureNoOpenRequest(ctx, tx, assignmentID); err != nil {
			return err
		}
		if err := s.resolver.EnsureNoOpenRequest(ctx, tx, targetAssignmentID); err != nil {
			return err
		}
		// 对方如果已经发起了镜像的双向换班，不允许两条同时存在
		if err := s.resolver.CheckCircular(ctx, tx, targetAssignmentID, requesterID, targetID, domain.RequestTwoWaySwap); err != nil {
			return err
		}
		return tx.CreateRequest(ctx, req)
	}); err != nil {
		return nil, err
	}

	s.notifyRequest(ctx, targetID, req, "created")
	return req, nil
}

// RespondAsTarget 对方员工对换班/接班申请表态。
// 表态前重新确认涉及的排班还没有被别的已批准申请改走。
func (s *RequestService) RespondAsTarget(ctx context.Context, targetStaffID, requestID int64, accept bool, notes string) (*domain.Request, error) {
	var req *domain.Request
	if err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.RequestPendingTargetApproval {
			return Conflictf(CodeRequestAlreadyProcessed, "申请当前状态为 %s，不能表态", req.Status)
		}
		if req.TargetStaffID == nil || *req.TargetStaffID != targetStaffID {
			return Conflictf(CodeNotAllowed, "只有申请的对方员工才能表态")
		}

		if err := s.checkStillAssignable(ctx, tx, req); err != nil {
			return err
		}

		if accept {
			req.Status = domain.RequestPendingManagerApproval
		} else {
			req.Status = domain.RequestRejectedByTarget
		}
		req.ReviewNotes = notes
		return tx.UpdateRequest(ctx, req)
	}); err != nil {
		return nil, err
	}

	event := "target_accepted"
	if !accept {
		event = "target_rejected"
	}
	s.notifyRequest(ctx, req.RequesterID, req, event)
	return req, nil
}

// checkStillAssignable 确认申请引用的排班仍处于可改派状态且归属未变
func (s *RequestService) checkStillAssignable(ctx context.Context, store Store, req *domain.Request) error {
	check := func(assignmentID, expectedStaff int64, allowed ...domain.AssignmentStatus) error {
		assignment, err := store.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment.StaffID != expectedStaff {
			return Conflictf(CodeAssignmentReassigned, "排班已被其他申请改派")
		}
		for _, st := range allowed {
			if assignment.Status == st {
				return nil
			}
		}
		return Conflictf(CodeAssignmentReassigned, "排班已被其他申请改派")
	}

	switch req.Type {
	case domain.RequestOvertime:
		return check(req.AssignmentID, req.RequesterID, domain.AssignmentOvertimePending)
	case domain.RequestPickUp:
		return check(req.AssignmentID, *req.TargetStaffID, domain.AssignmentPending, domain.AssignmentConfirmed)
	case domain.RequestTwoWaySwap:
		if err := check(req.AssignmentID, req.RequesterID, domain.AssignmentPending, domain.AssignmentConfirmed); err != nil {
			return err
		}
		return check(*req.TargetAssignmentID, *req.TargetStaffID, domain.AssignmentPending, domain.AssignmentConfirmed)
	default:
		// LEAVE 和 SWAP 的排班都在申请人名下
		return check(req.AssignmentID, req.RequesterID, domain.AssignmentPending, domain.AssignmentConfirmed)
	}
}

// Approve 店长批准申请并原子地执行结果。
// 审批和对方表态之间隔了时间，这里靠事务内重查（乐观检测）挡住并发的重复改派。
func (s *RequestService) Approve(ctx context.Context, reviewerID, requestID int64, notes string) (*domain.Request, error) {
	var req *domain.Request
	if err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}

		expected := domain.RequestPendingManagerApproval
		if !req.Type.NeedsTargetApproval() {
			expected = domain.RequestPending
		}
		if req.Status != expected {
			return Conflictf(CodeRequestAlreadyProcessed, "申请当前状态为 %s，不能批准", req.Status)
		}

		if err := s.checkStillAssignable(ctx, tx, req); err != nil {
			return err
		}

		affected, err := s.execute(ctx, tx, req)
		if err != nil {
			return err
		}

		// 改派生效后，引用这些排班的其他未终结申请全部作废
		if err := s.resolver.CancelStale(ctx, tx, affected, req.ID, "关联排班已变更，申请自动取消"); err != nil {
			return err
		}

		now := s.now()
		req.Status = domain.RequestApproved
		req.ReviewerID = &reviewerID
		req.ReviewedAt = &now
		req.ReviewNotes = notes
		return tx.UpdateRequest(ctx, req)
	}); err != nil {
		return nil, err
	}

	s.notifyRequest(ctx, req.RequesterID, req, "approved")
	if req.TargetStaffID != nil {
		s.notifyRequest(ctx, *req.TargetStaffID, req, "approved")
	}
	return req, nil
}

// execute 执行批准后的改派，返回受影响的排班 ID（被取消的和新建的）
func (s *RequestService) execute(ctx context.Context, tx Store, req *domain.Request) ([]int64, error) {
	cancelWithNote := func(assignment *domain.Assignment, note string) error {
		assignment.Status = domain.AssignmentCancelled
		assignment.Notes = note
		return tx.UpdateAssignment(ctx, assignment)
	}

	switch req.Type {
	case domain.RequestLeave:
		assignment, err := tx.GetAssignment(ctx, req.AssignmentID)
		if err != nil {
			return nil, err
		}
		if err := cancelWithNote(assignment, "请假已批准"); err != nil {
			return nil, err
		}
		return []int64{assignment.ID}, nil

	case domain.RequestOvertime:
		assignment, err := tx.GetAssignment(ctx, req.AssignmentID)
		if err != nil {
			return nil, err
		}
		assignment.Status = domain.AssignmentConfirmed
		assignment.Origin = domain.OriginOvertime
		if err := tx.UpdateAssignment(ctx, assignment); err != nil {
			return nil, err
		}
		return []int64{assignment.ID}, nil

	case domain.RequestSwap:
		assignment, err := tx.GetAssignment(ctx, req.AssignmentID)
		if err != nil {
			return nil, err
		}
		if err := cancelWithNote(assignment, "已转班给对方"); err != nil {
			return nil, err
		}
		replacement := &domain.Assignment{
			ShiftID: assignment.ShiftID,
			StaffID: *req.TargetStaffID,
			Origin:  domain.OriginSwapped,
			Status:  domain.AssignmentConfirmed,
		}
		if err := tx.CreateAssignment(ctx, replacement); err != nil {
			return nil, err
		}
		return []int64{assignment.ID, replacement.ID}, nil

	case domain.RequestPickUp:
		assignment, err := tx.GetAssignment(ctx, req.AssignmentID)
		if err != nil {
			return nil, err
		}
		if err := cancelWithNote(assignment, "班次已被接走"); err != nil {
			return nil, err
		}
		replacement := &domain.Assignment{
			ShiftID: assignment.ShiftID,
			StaffID: req.RequesterID,
			Origin:  domain.OriginPickedUp,
			Status:  domain.AssignmentConfirmed,
		}
		if err := tx.CreateAssignment(ctx, replacement); err != nil {
			return nil, err
		}
		return []int64{assignment.ID, replacement.ID}, nil

	case domain.RequestTwoWaySwap:
		mine, err := tx.GetAssignment(ctx, req.AssignmentID)
		if err != nil {
			return nil, err
		}
		theirs, err := tx.GetAssignment(ctx, *req.TargetAssignmentID)
		if err != nil {
			return nil, err
		}
		if err := cancelWithNote(mine, "双向换班已批准"); err != nil {
			return nil, err
		}
		if err := cancelWithNote(theirs, "双向换班已批准"); err != nil {
			return nil, err
		}
		forTarget := &domain.Assignment{
			ShiftID: mine.ShiftID,
			StaffID: *req.TargetStaffID,
			Origin:  domain.OriginSwapped,
			Status:  domain.AssignmentConfirmed,
		}
		forRequester := &domain.Assignment{
			ShiftID: theirs.ShiftID,
			StaffID: req.RequesterID,
			Origin:  domain.OriginSwapped,
			Status:  domain.AssignmentConfirmed,
		}
		if err := tx.CreateAssignment(ctx, forTarget); err != nil {
			return nil, err
		}
		if err := tx.CreateAssignment(ctx, forRequester); err != nil {
			return nil, err
		}
		return []int64{mine.ID, theirs.ID, forTarget.ID, forRequester.ID}, nil

	default:
		return nil, Conflictf(CodeNotAllowed, "未知的申请类型 %s", req.Type)
	}
}

// Reject 店长驳回，任何未终结阶段都可以
func (s *RequestService) Reject(ctx context.Context, reviewerID, requestID int64, notes string) (*domain.Request, error) {
	req, err := s.terminate(ctx, requestID, domain.RequestRejected, &reviewerID, notes)
	if err != nil {
		return nil, err
	}
	s.notifyRequest(ctx, req.RequesterID, req, "rejected")
	return req, nil
}

// Cancel 申请人撤回自己的申请，任何未终结阶段都可以
func (s *RequestService) Cancel(ctx context.Context, requesterID, requestID int64) (*domain.Request, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != requesterID {
		return nil, Conflictf(CodeNotAllowed, "只能撤回自己的申请")
	}

	req, err = s.terminate(ctx, requestID, domain.RequestCancelled, nil, "申请人撤回")
	if err != nil {
		return nil, err
	}
	s.notifyRequest(ctx, req.RequesterID, req, "cancelled")
	return req, nil
}

// terminate 把申请推到终态；加班申请的临时排班一并取消
func (s *RequestService) terminate(ctx context.Context, requestID int64, status domain.RequestStatus, reviewerID *int64, notes string) (*domain.Request, error) {
	var req *domain.Request
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status.IsTerminal() {
			return Conflictf(CodeRequestAlreadyProcessed, "申请已经处理完毕")
		}

		if req.Type == domain.RequestOvertime {
			assignment, err := tx.GetAssignment(ctx, req.AssignmentID)
			if err != nil {
				return err
			}
			if assignment.Status == domain.AssignmentOvertimePending {
				assignment.Status = domain.AssignmentCancelled
				assignment.Notes = "加班申请未通过"
				if err := tx.UpdateAssignment(ctx, assignment); err != nil {
					return err
				}
			}
		}

		now := s.now()
		req.Status = status
		req.ReviewerID = reviewerID
		req.ReviewedAt = &now
		req.ReviewNotes = notes
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestService) notifyRequest(ctx context.Context, staffID int64, req *domain.Request, event string) {
	staff, err := s.store.GetStaff(ctx, staffID)
	if err != nil {
		slog.Error("获取员工信息失败，跳过通知", "staffID", staffID, "error", err)
		return
	}
	s.notifier.NotifyRequest(staff, req, event)
}
