package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

func TestSelfRegister(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")

	assignment, err := f.assignments.SelfRegister(context.Background(), 1, shift.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.AssignmentPending, assignment.Status)
	assert.Equal(t, domain.OriginSelfRegistered, assignment.Origin)
	assert.NotZero(t, assignment.ID)
	assert.Contains(t, f.notifier.events, "assignment:created")

	// 重复报名被拒绝
	_, err = f.assignments.SelfRegister(context.Background(), 1, shift.ID)
	requireConflict(t, err, CodeAlreadyRegistered)
}

func TestSelfRegister_ShiftFull(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	for i := int64(2); i <= 4; i++ {
		f.staff(i)
		f.confirmed(i, shift.ID)
	}

	_, err := f.assignments.SelfRegister(context.Background(), 1, shift.ID)
	requireConflict(t, err, CodeShiftFull)
}

func TestManualAssign_RoleOverride(t *testing.T) {
	f := newFixture()
	staff := f.staff(1)
	staff.JobRoleIDs = []int64{9}
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	shift.RoleRequirements = []domain.ShiftRoleRequirement{{RoleID: 1, Quantity: 1, Required: true}}

	// 岗位不匹配必须填写覆盖理由
	_, err := f.assignments.ManualAssign(context.Background(), 1, shift.ID, ManualAssignOptions{})
	requireConflict(t, err, CodeOverrideReasonRequired)

	assignment, err := f.assignments.ManualAssign(context.Background(), 1, shift.ID, ManualAssignOptions{
		RoleOverrideReason: "临时顶班",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentConfirmed, assignment.Status)
	assert.Equal(t, domain.OriginManual, assignment.Origin)
}

func TestManualAssign_CapacityOverride(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	shift.MaxStaff = 5
	for i := int64(2); i <= 6; i++ {
		f.staff(i)
		f.confirmed(i, shift.ID)
	}

	// 已满编（5/5），超编必须填写理由
	_, err := f.assignments.ManualAssign(context.Background(), 1, shift.ID, ManualAssignOptions{})
	requireConflict(t, err, CodeOverrideReasonRequired)

	assignment, err := f.assignments.ManualAssign(context.Background(), 1, shift.ID, ManualAssignOptions{
		CapacityOverrideReason: "周末客流高峰",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentConfirmed, assignment.Status)

	// 6/5 已经达到 20% 的超编上限，继续加人直接拒绝
	f.staff(7)
	_, err = f.assignments.ManualAssign(context.Background(), 7, shift.ID, ManualAssignOptions{
		CapacityOverrideReason: "周末客流高峰",
	})
	requireConflict(t, err, CodeCapacityOverrideExceeded)
}

func TestManualAssign_DuringShiftChecksIn(t *testing.T) {
	f := newFixture()
	f.staff(1)
	// 当前时刻 12:00 已落在班次时间窗内
	shift := f.shift(10, 0, "10:00:00", "18:00:00")

	assignment, err := f.assignments.ManualAssign(context.Background(), 1, shift.ID, ManualAssignOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCheckedIn, assignment.Status)
	require.NotNil(t, assignment.CheckInAt)
	assert.Equal(t, testNow, *assignment.CheckInAt)
}

func TestApprove(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.store.addAssignment(&domain.Assignment{
		ShiftID: shift.ID, StaffID: 1,
		Origin: domain.OriginSelfRegistered, Status: domain.AssignmentPending,
	})

	updated, err := f.assignments.Approve(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentConfirmed, updated.Status)

	// 已确认的排班不能再次确认
	_, err = f.assignments.Approve(context.Background(), assignment.ID)
	requireConflict(t, err, CodeInvalidState)
}

func TestUnregister(t *testing.T) {
	f := newFixture()
	f.staff(1)
	f.staff(2)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	_, err := f.assignments.Unregister(context.Background(), 2, assignment.ID)
	requireConflict(t, err, CodeNotAllowed)

	updated, err := f.assignments.Unregister(context.Background(), 1, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCancelled, updated.Status)
}

func TestDelete_AfterShiftStarted(t *testing.T) {
	f := newFixture()
	f.staff(1)
	// 班次 10:00 开始，当前时刻 12:00
	shift := f.shift(10, 0, "10:00:00", "18:00:00")
	assignment := f.confirmed(1, shift.ID)

	_, err := f.assignments.Delete(context.Background(), assignment.ID, "")
	requireConflict(t, err, CodeShiftAlreadyStarted)
}

func TestCheckIn_Window(t *testing.T) {
	f := newFixture()
	f.staff(1)

	// 班次 14:00 开始，12:00 还在最早签到时刻（13:45）之前
	early := f.shift(10, 0, "14:00:00", "22:00:00")
	a1 := f.confirmed(1, early.ID)
	_, err := f.assignments.CheckIn(context.Background(), 1, a1.ID)
	requireConflict(t, err, CodeCheckInTooEarly)

	// 班次 11:00 结束，签到在 10:50 截止
	late := f.shift(11, 0, "04:00:00", "11:00:00")
	a2 := f.confirmed(1, late.ID)
	_, err = f.assignments.CheckIn(context.Background(), 1, a2.ID)
	requireConflict(t, err, CodeCheckInTooLate)

	// 12:00 落在 [11:55, 19:50] 窗口内
	ok := f.shift(12, 0, "12:10:00", "20:00:00")
	a3 := f.confirmed(1, ok.ID)
	updated, err := f.assignments.CheckIn(context.Background(), 1, a3.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCheckedIn, updated.Status)
	require.NotNil(t, updated.CheckInAt)
	assert.Equal(t, testNow, *updated.CheckInAt)
}

func TestCheckIn_FutureDate(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	_, err := f.assignments.CheckIn(context.Background(), 1, assignment.ID)
	requireConflict(t, err, CodeCheckInTooEarly)
}

func TestCheckOut(t *testing.T) {
	f := newFixture()
	f.staff(1)

	// 班次 14:00 结束，最早 13:55 才能签退
	early := f.shift(10, 0, "06:00:00", "14:00:00")
	checkIn := date(0).Add(6 * time.Hour)
	a1 := f.store.addAssignment(&domain.Assignment{
		ShiftID: early.ID, StaffID: 1,
		Origin: domain.OriginSelfRegistered, Status: domain.AssignmentCheckedIn,
		CheckInAt: &checkIn,
	})
	_, err := f.assignments.CheckOut(context.Background(), 1, a1.ID)
	requireConflict(t, err, CodeCheckOutTooEarly)

	// 班次 12:00 结束，12:00 签退成功
	done := f.shift(11, 0, "04:00:00", "12:00:00")
	checkIn2 := date(0).Add(4 * time.Hour)
	a2 := f.store.addAssignment(&domain.Assignment{
		ShiftID: done.ID, StaffID: 1,
		Origin: domain.OriginSelfRegistered, Status: domain.AssignmentCheckedIn,
		CheckInAt: &checkIn2,
	})
	updated, err := f.assignments.CheckOut(context.Background(), 1, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCheckedOut, updated.Status)
	assert.InDelta(t, 8.0, updated.ActualHours, 0.01)
}

func TestCheckOut_NoShowRecovery(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 0, "04:00:00", "12:00:00")
	// 被标记旷工但其实在岗，补签退后撤销处罚
	assignment := f.store.addAssignment(&domain.Assignment{
		ShiftID: shift.ID, StaffID: 1,
		Origin: domain.OriginSelfRegistered, Status: domain.AssignmentNoShow,
	})

	updated, err := f.assignments.CheckOut(context.Background(), 1, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCheckedOut, updated.Status)
	// 没有签到记录时按班次开始时间计算工时
	assert.InDelta(t, 8.0, updated.ActualHours, 0.01)
	require.Len(t, f.penalties.cancelled, 1)
	assert.Equal(t, [2]int64{1, shift.ID}, f.penalties.cancelled[0])
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	updated, err := f.assignments.MarkNoShow(context.Background(), assignment.ID, "无故缺勤")
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentNoShow, updated.Status)
	require.Len(t, f.penalties.recorded, 1)
	assert.Equal(t, int64(1), f.penalties.recorded[0].StaffID)
	assert.Equal(t, domain.PayrollPeriodOf(shift.Date), f.penalties.recorded[0].Period)
}

func TestMarkNoShow_PayrollLocked(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	f.payroll.status = domain.PayrollApproved
	_, err := f.assignments.MarkNoShow(context.Background(), assignment.ID, "")
	requireConflict(t, err, CodePayrollLocked)
	assert.Empty(t, f.penalties.recorded)
}

func TestMarkNoShow_PayrollUnavailable(t *testing.T) {
	f := newFixture()
	f.staff(1)
	shift := f.shift(10, 1, "09:00:00", "17:00:00")
	assignment := f.confirmed(1, shift.ID)

	// 工资状态查不到时不允许 fail-open
	f.payroll.err = errors.New("payroll service down")
	_, err := f.assignments.MarkNoShow(context.Background(), assignment.ID, "")
	require.Error(t, err)
	_, isConflict := AsConflict(err)
	assert.False(t, isConflict)
}
