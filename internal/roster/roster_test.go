package roster

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// 固定测试时钟：2025-03-10 是周一
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testPolicy() *config.Policy {
	return &config.Policy{
		MaxMonthsAhead:        3,
		MinShiftMinutes:       60,
		MaxShiftMinutes:       720,
		DailyMaxMinutes:       480,
		WeeklyMaxMinutes:      2640,
		DailyOvertimeMinutes:  240,
		WeeklyOvertimeMinutes: 480,
		MaxShiftsPerDay:       3,
		MaxShiftsPerWeek:      6,
		MaxConsecutiveDays:    6,
		MinRestMinutes:        480,
		NightRestMinutes:      660,
		MaxWeekendDaysPerWeek: 2,

		CapacityOverridePercent: 20,
		LeaveDeadlineHours:      12,

		CheckInEarlyMinutes:           15,
		CheckInCloseBeforeEndMinutes:  10,
		CheckOutEarlyBeforeEndMinutes: 5,
	}
}

// fakeStore 是内存版的 Store，行为和仓储层保持一致：
// Get* 查不到返回 sql.ErrNoRows，Find* 查不到返回 (nil, nil)
type fakeStore struct {
	staffs      map[int64]*domain.Staff
	shifts      map[int64]*domain.Shift
	assignments map[int64]*domain.Assignment
	requests    map[int64]*domain.Request

	nextAssignmentID int64
	nextRequestID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		staffs:      make(map[int64]*domain.Staff),
		shifts:      make(map[int64]*domain.Shift),
		assignments: make(map[int64]*domain.Assignment),
		requests:    make(map[int64]*domain.Request),
	}
}

func (f *fakeStore) addStaff(staff *domain.Staff) *domain.Staff {
	f.staffs[staff.ID] = staff
	return staff
}

func (f *fakeStore) addShift(shift *domain.Shift) *domain.Shift {
	f.shifts[shift.ID] = shift
	return shift
}

func (f *fakeStore) addAssignment(a *domain.Assignment) *domain.Assignment {
	if a.ID == 0 {
		f.nextAssignmentID++
		a.ID = f.nextAssignmentID
	} else if a.ID > f.nextAssignmentID {
		f.nextAssignmentID = a.ID
	}
	a.Version = 1
	f.assignments[a.ID] = a
	return a
}

func (f *fakeStore) InTx(ctx context.Context, fn func(Store) error) error {
	return fn(f)
}

func (f *fakeStore) GetStaff(ctx context.Context, id int64) (*domain.Staff, error) {
	staff, ok := f.staffs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *staff
	return &cp, nil
}

func (f *fakeStore) GetShift(ctx context.Context, id int64) (*domain.Shift, error) {
	shift, ok := f.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *shift
	return &cp, nil
}

func (f *fakeStore) GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListStaffActiveAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]*ScheduledShift, error) {
	res := make([]*ScheduledShift, 0)
	for _, a := range f.assignments {
		if a.StaffID != staffID || !a.Status.IsActive() {
			continue
		}
		shift, ok := f.shifts[a.ShiftID]
		if !ok {
			continue
		}
		if shift.Date.Before(from) || shift.Date.After(to) {
			continue
		}
		acp := *a
		scp := *shift
		res = append(res, &ScheduledShift{Assignment: &acp, Shift: &scp})
	}
	return res, nil
}

func (f *fakeStore) CountShiftActiveAssignments(ctx context.Context, shiftID int64) (int, error) {
	count := 0
	for _, a := range f.assignments {
		if a.ShiftID == shiftID && a.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) FindStaffShiftActiveAssignment(ctx context.Context, shiftID, staffID int64) (*domain.Assignment, error) {
	for _, a := range f.assignments {
		if a.ShiftID == shiftID && a.StaffID == staffID && a.Status.IsActive() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	f.nextAssignmentID++
	a.ID = f.nextAssignmentID
	a.CreatedAt = testNow
	a.Version = 1
	cp := *a
	f.assignments[a.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateAssignment(ctx context.Context, a *domain.Assignment) error {
	current, ok := f.assignments[a.ID]
	if !ok || current.Version != a.Version {
		return sql.ErrNoRows
	}
	a.Version++
	cp := *a
	f.assignments[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetRequest(ctx context.Context, id int64) (*domain.Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *req
	return &cp, nil
}

func (f *fakeStore) ListOpenRequestsByAssignment(ctx context.Context, assignmentID int64) ([]*domain.Request, error) {
	res := make([]*domain.Request, 0)
	for _, req := range f.requests {
		if req.Status.IsTerminal() {
			continue
		}
		if req.AssignmentID == assignmentID || (req.TargetAssignmentID != nil && *req.TargetAssignmentID == assignmentID) {
			cp := *req
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (f *fakeStore) FindOpenCounterpart(ctx context.Context, assignmentID int64, types []domain.RequestType, staffA, staffB int64) (*domain.Request, error) {
	for _, req := range f.requests {
		if req.Status.IsTerminal() {
			continue
		}
		if req.AssignmentID != assignmentID && (req.TargetAssignmentID == nil || *req.TargetAssignmentID != assignmentID) {
			continue
		}
		typeMatch := false
		for _, t := range types {
			if req.Type == t {
				typeMatch = true
				break
			}
		}
		if !typeMatch || req.TargetStaffID == nil {
			continue
		}
		if (req.RequesterID == staffA && *req.TargetStaffID == staffB) ||
			(req.RequesterID == staffB && *req.TargetStaffID == staffA) {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateRequest(ctx context.Context, req *domain.Request) error {
	f.nextRequestID++
	req.ID = f.nextRequestID
	req.CreatedAt = testNow
	req.Version = 1
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateRequest(ctx context.Context, req *domain.Request) error {
	current, ok := f.requests[req.ID]
	if !ok || current.Version != req.Version {
		return sql.ErrNoRows
	}
	req.Version++
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

type fakeCalendar struct {
	closed map[string]bool
	err    error
}

func (c *fakeCalendar) IsBranchClosed(ctx context.Context, branchID int64, date time.Time) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.closed[date.Format("2006-01-02")], nil
}

type fakePayroll struct {
	status domain.PayrollStatus
	err    error
}

func (p *fakePayroll) GetPayrollStatus(ctx context.Context, staffID int64, period string) (domain.PayrollStatus, error) {
	if p.err != nil {
		return "", p.err
	}
	if p.status == "" {
		return domain.PayrollDraft, nil
	}
	return p.status, nil
}

type fakePenalties struct {
	recorded  []*domain.AbsenceEvent
	cancelled [][2]int64
}

func (p *fakePenalties) RecordAbsence(ctx context.Context, ev *domain.AbsenceEvent) error {
	p.recorded = append(p.recorded, ev)
	return nil
}

func (p *fakePenalties) CancelAbsence(ctx context.Context, staffID, shiftID int64) error {
	p.cancelled = append(p.cancelled, [2]int64{staffID, shiftID})
	return nil
}

type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) NotifyAssignment(staff *domain.Staff, shift *domain.Shift, event string) {
	n.events = append(n.events, "assignment:"+event)
}

func (n *fakeNotifier) NotifyRequest(staff *domain.Staff, req *domain.Request, event string) {
	n.events = append(n.events, "request:"+event)
}

// fixture 把核心服务装配在内存 Store 上，时钟固定为 testNow
type fixture struct {
	policy      *config.Policy
	store       *fakeStore
	calendar    *fakeCalendar
	payroll     *fakePayroll
	penalties   *fakePenalties
	notifier    *fakeNotifier
	validator   *Validator
	assignments *AssignmentService
	requests    *RequestService
}

func newFixture() *fixture {
	policy := testPolicy()
	store := newFakeStore()
	calendar := &fakeCalendar{closed: make(map[string]bool)}
	payroll := &fakePayroll{}
	penalties := &fakePenalties{}
	notifier := &fakeNotifier{}

	validator := NewValidator(policy, store, calendar)
	validator.now = func() time.Time { return testNow }

	assignments := NewAssignmentService(policy, store, validator, payroll, penalties, notifier)
	assignments.now = func() time.Time { return testNow }

	resolver := NewResolver()
	requests := NewRequestService(policy, store, validator, resolver, notifier)
	requests.now = func() time.Time { return testNow }

	return &fixture{
		policy:      policy,
		store:       store,
		calendar:    calendar,
		payroll:     payroll,
		penalties:   penalties,
		notifier:    notifier,
		validator:   validator,
		assignments: assignments,
		requests:    requests,
	}
}

// date 返回 testNow 之后第 n 天的零点
func date(n int) time.Time {
	return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func (f *fixture) staff(id int64) *domain.Staff {
	return f.store.addStaff(&domain.Staff{
		ID:             id,
		Username:       "staff",
		FullName:       "测试员工",
		Email:          "staff@example.com",
		Role:           domain.RoleStaff,
		EmploymentType: domain.EmploymentFullTime,
		BranchID:       1,
		IsActive:       true,
		Version:        1,
	})
}

func (f *fixture) shift(id int64, day int, start, end string) *domain.Shift {
	return f.store.addShift(&domain.Shift{
		ID:             id,
		BranchID:       1,
		Date:           date(day),
		StartTime:      start,
		EndTime:        end,
		Status:         domain.ShiftPublished,
		MaxStaff:       3,
		EmploymentType: domain.EmploymentAny,
		Version:        1,
	})
}

func (f *fixture) confirmed(staffID, shiftID int64) *domain.Assignment {
	return f.store.addAssignment(&domain.Assignment{
		ShiftID: shiftID,
		StaffID: staffID,
		Origin:  domain.OriginSelfRegistered,
		Status:  domain.AssignmentConfirmed,
	})
}
