package domain

import "time"

type PayrollStatus string

const (
	PayrollDraft    PayrollStatus = "DRAFT"
	PayrollApproved PayrollStatus = "APPROVED"
	PayrollPaid     PayrollStatus = "PAID"
)

// IsLocked 表示该结算周期的工资已经定稿，相关考勤不允许再改动
func (s PayrollStatus) IsLocked() bool {
	return s == PayrollApproved || s == PayrollPaid
}

// PayrollPeriodOf 返回某个日期所属的结算周期（按自然月）
func PayrollPeriodOf(date time.Time) string {
	return date.Format("2006-01")
}

// AbsenceEvent 是缺勤扣罚事件，旷工时发给处罚模块
type AbsenceEvent struct {
	StaffID  int64     `json:"staffID"`
	ShiftID  int64     `json:"shiftID"`
	BranchID int64     `json:"branchID"`
	Date     time.Time `json:"date"`
	Period   string    `json:"period"`
}
