package domain

import (
	"time"
)

type AssignmentStatus string

const (
	AssignmentPending         AssignmentStatus = "PENDING"
	AssignmentConfirmed       AssignmentStatus = "CONFIRMED"
	AssignmentCheckedIn       AssignmentStatus = "CHECKED_IN"
	AssignmentCheckedOut      AssignmentStatus = "CHECKED_OUT"
	AssignmentCancelled       AssignmentStatus = "CANCELLED"
	AssignmentNoShow          AssignmentStatus = "NO_SHOW"
	AssignmentOvertimePending AssignmentStatus = "OVERTIME_PENDING"
)

// IsActive 表示这个排班仍然占用员工的工时（未被取消）
func (s AssignmentStatus) IsActive() bool {
	return s != AssignmentCancelled
}

type AssignmentOrigin string

const (
	OriginSelfRegistered  AssignmentOrigin = "SELF_REGISTERED"
	OriginManual          AssignmentOrigin = "MANUAL"
	OriginSwapped         AssignmentOrigin = "SWAPPED"
	OriginPickedUp        AssignmentOrigin = "PICKED_UP"
	OriginOvertime        AssignmentOrigin = "OVERTIME"
	OriginOvertimeRequest AssignmentOrigin = "OVERTIME_REQUEST"
)

type Assignment struct {
	ID          int64            `json:"id"`
	ShiftID     int64            `json:"shiftID"`
	StaffID     int64            `json:"staffID"`
	Origin      AssignmentOrigin `json:"origin"`
	Status      AssignmentStatus `json:"status"`
	CheckInAt   *time.Time       `json:"checkInAt"`
	CheckOutAt  *time.Time       `json:"checkOutAt"`
	ActualHours float64          `json:"actualHours"`
	Notes       string           `json:"notes"`
	CreatedAt   time.Time        `json:"createdAt"`
	Version     int32            `json:"-"`
}
