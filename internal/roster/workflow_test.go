package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

func TestCreateLeave(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	req, err := f.requests.CreateLeave(context.Background(), 1, assignment.ID, "家里有事")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestLeave, req.Type)
	assert.Equal(t, domain.RequestPending, req.Status)
	assert.Contains(t, f.notifier.events, "request:created")

	// 同一条排班上不允许第二条未处理的申请
	_, err = f.requests.CreateLeave(context.Background(), 1, assignment.ID, "再请一次")
	requireConflict(t, err, CodeDuplicateRequest)
}

func TestCreateLeave_DeadlinePassed(t *testing.T) {
	f := newFixture()
	f.staff(1)
	// 今晚 18:00 的班，距离开始已不足 12 小时
	shift := f.shift(10, 0, "18:00:00", "23:00:00")
	assignment := f.confirmed(1, shift.ID)

	_, err := f.requests.CreateLeave(context.Background(), 1, assignment.ID, "")
	requireConflict(t, err, CodeLeaveDeadlinePassed)
}

func TestCreateLeave_NotOwner(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	_, err := f.requests.CreateLeave(context.Background(), 2, assignment.ID, "")
	requireConflict(t, err, CodeNotAllowed)
}

func TestLeave_ApproveCancelsAssignment(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(100)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	req, err := f.requests.CreateLeave(context.Background(), 1, assignment.ID, "家里有事")
	require.NoError(t, err)

	approved, err := f.requests.Approve(context.Background(), 100, req.ID, "同意")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, approved.Status)
	require.NotNil(t, approved.ReviewerID)
	assert.Equal(t, int64(100), *approved.ReviewerID)
	require.NotNil(t, approved.ReviewedAt)
	assert.Equal(t, testNow, *approved.ReviewedAt)

	cancelled, err := f.store.GetAssignment(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCancelled, cancelled.Status)
}

func TestOvertime_ApproveConfirmsAssignment(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(100)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")

	req, err := f.requests.CreateOvertime(context.Background(), 1, shift.ID, "备货")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestOvertime, req.Type)
	assert.Equal(t, domain.RequestPending, req.Status)
	require.NotZero(t, req.AssignmentID)

	// 临时排班挂在申请上，不占正式名额之外的状态
	temp, err := f.store.GetAssignment(context.Background(), req.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentOvertimePending, temp.Status)
	assert.Equal(t, domain.OriginOvertimeRequest, temp.Origin)

	approved, err := f.requests.Approve(context.Background(), 100, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, approved.Status)

	confirmed, err := f.store.GetAssignment(context.Background(), req.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentConfirmed, confirmed.Status)
	assert.Equal(t, domain.OriginOvertime, confirmed.Origin)
}

func TestOvertime_RejectCancelsTempAssignment(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(100)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")

	req, err := f.requests.CreateOvertime(context.Background(), 1, shift.ID, "")
	require.NoError(t, err)

	rejected, err := f.requests.Reject(context.Background(), 100, req.ID, "人手够了")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejected, rejected.Status)

	temp, err := f.store.GetAssignment(context.Background(), req.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCancelled, temp.Status)
}

func TestCreateSwap(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	_, err := f.requests.CreateSwap(context.Background(), 1, assignment.ID, 1, "")
	requireConflict(t, err, CodeNotAllowed)

	req, err := f.requests.CreateSwap(context.Background(), 1, assignment.ID, 2, "临时有事")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestSwap, req.Type)
	assert.Equal(t, domain.RequestPendingTargetApproval, req.Status)
	require.NotNil(t, req.TargetStaffID)
	assert.Equal(t, int64(2), *req.TargetStaffID)
}

func TestCreateSwap_TargetFullShift(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)
	for i := int64(3); i <= 4; i++ {
		f.staff(i)
		f.confirmed(i, shift.ID)
	}

	// 班次已满编（3/3），但转班不新增占用，名额检查跳过
	_, err := f.requests.CreateSwap(context.Background(), 1, assignment.ID, 2, "")
	require.NoError(t, err)
}

func TestRespondAsTarget(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	f.staff(3)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	req, err := f.requests.CreateSwap(context.Background(), 1, assignment.ID, 2, "")
	require.NoError(t, err)

	// 只有对方员工能表态
	_, err = f.requests.RespondAsTarget(context.Background(), 3, req.ID, true, "")
	requireConflict(t, err, CodeNotAllowed)

	accepted, err := f.requests.RespondAsTarget(context.Background(), 2, req.ID, true, "可以")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPendingManagerApproval, accepted.Status)
	assert.Contains(t, f.notifier.events, "request:target_accepted")

	// 已经表态过的申请不能再表态
	_, err = f.requests.RespondAsTarget(context.Background(), 2, req.ID, false, "")
	requireConflict(t, err, CodeRequestAlreadyProcessed)
}

func TestRespondAsTarget_Reject(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	req, err := f.requests.CreateSwap(context.Background(), 1, assignment.ID, 2, "")
	require.NoError(t, err)

	rejected, err := f.requests.RespondAsTarget(context.Background(), 2, req.ID, false, "那天不行")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejectedByTarget, rejected.Status)
	assert.Equal(t, "那天不行", rejected.ReviewNotes)
}

func TestSwap_ApproveReassigns(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	f.staff(100)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	req, err := f.requests.CreateSwap(context.Background(), 1, assignment.ID, 2, "")
	require.NoError(t, err)
	_, err = f.requests.RespondAsTarget(context.Background(), 2, req.ID, true, "")
	require.NoError(t, err)

	approved, err := f.requests.Approve(context.Background(), 100, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, approved.Status)

	// 原排班取消，对方拿到一条新的已确认排班
	old, err := f.store.GetAssignment(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCancelled, old.Status)

	replacement, err := f.store.FindStaffShiftActiveAssignment(context.Background(), shift.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, replacement)
	assert.Equal(t, domain.AssignmentConfirmed, replacement.Status)
	assert.Equal(t, domain.OriginSwapped, replacement.Origin)
}

func TestSwap_ApproveBeforeTargetAccepts(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	f.staff(100)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	req, err := f.requests.CreateSwap(context.Background(), 1, assignment.ID, 2, "")
	require.NoError(t, err)

	// 对方还没同意，店长不能直接批准
	_, err = f.requests.Approve(context.Background(), 100, req.ID, "")
	requireConflict(t, err, CodeRequestAlreadyProcessed)
}

func TestApprove_AssignmentReassigned(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	f.staff(100)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	req, err := f.requests.CreateSwap(context.Background(), 1, assignment.ID, 2, "")
	require.NoError(t, err)
	_, err = f.requests.RespondAsTarget(context.Background(), 2, req.ID, true, "")
	require.NoError(t, err)

	// 审批前排班被别的流程改走了
	f.store.assignments[assignment.ID].Status = domain.AssignmentCancelled

	_, err = f.requests.Approve(context.Background(), 100, req.ID, "")
	requireConflict(t, err, CodeAssignmentReassigned)
}

func TestCreatePickUp(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	f.staff(100)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	_, err := f.requests.CreatePickUp(context.Background(), 1, assignment.ID, "")
	requireConflict(t, err, CodeNotAllowed)

	req, err := f.requests.CreatePickUp(context.Background(), 2, assignment.ID, "想多排一班")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPickUp, req.Type)
	assert.Equal(t, domain.RequestPendingTargetApproval, req.Status)
	// 接班申请的对方是排班持有人
	require.NotNil(t, req.TargetStaffID)
	assert.Equal(t, int64(1), *req.TargetStaffID)

	_, err = f.requests.RespondAsTarget(context.Background(), 1, req.ID, true, "")
	require.NoError(t, err)
	_, err = f.requests.Approve(context.Background(), 100, req.ID, "")
	require.NoError(t, err)

	old, err := f.store.GetAssignment(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCancelled, old.Status)

	replacement, err := f.store.FindStaffShiftActiveAssignment(context.Background(), shift.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, replacement)
	assert.Equal(t, domain.OriginPickedUp, replacement.Origin)
}

func TestTwoWaySwap(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	f.staff(100)
	myShift := f.shift(10, 1, "09:00:00", "17:00:00")
	theirShift := f.shift(11, 2, "10:00:00", "16:00:00")
	mine := f.confirmed(1, myShift.ID)
	theirs := f.confirmed(2, theirShift.ID)

	_, err := f.requests.CreateTwoWaySwap(context.Background(), 1, mine.ID, mine.ID, "")
	requireConflict(t, err, CodeNotAllowed)

	req, err := f.requests.CreateTwoWaySwap(context.Background(), 1, mine.ID, theirs.ID, "换个时间")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestTwoWaySwap, req.Type)
	require.NotNil(t, req.TargetAssignmentID)
	assert.Equal(t, theirs.ID, *req.TargetAssignmentID)

	_, err = f.requests.RespondAsTarget(context.Background(), 2, req.ID, true, "")
	require.NoError(t, err)
	_, err = f.requests.Approve(context.Background(), 100, req.ID, "")
	require.NoError(t, err)

	// 双方原排班都取消，各自拿到对方班次的新排班
	for _, id := range []int64{mine.ID, theirs.ID} {
		old, err := f.store.GetAssignment(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.AssignmentCancelled, old.Status)
	}

	forTarget, err := f.store.FindStaffShiftActiveAssignment(context.Background(), myShift.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, forTarget)
	assert.Equal(t, domain.OriginSwapped, forTarget.Origin)

	forRequester, err := f.store.FindStaffShiftActiveAssignment(context.Background(), theirShift.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, forRequester)
	assert.Equal(t, domain.OriginSwapped, forRequester.Origin)
}

func TestCancel(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	req, err := f.requests.CreateLeave(context.Background(), 1, assignment.ID, "")
	require.NoError(t, err)

	// 只有申请人自己能撤回
	_, err = f.requests.Cancel(context.Background(), 2, req.ID)
	requireConflict(t, err, CodeNotAllowed)

	cancelled, err := f.requests.Cancel(context.Background(), 1, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestCancelled, cancelled.Status)

	// 撤回后可以重新发起
	_, err = f.requests.CreateLeave(context.Background(), 1, assignment.ID, "重新申请")
	require.NoError(t, err)
}
