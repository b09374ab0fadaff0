package domain

import (
	"time"
)

type ShiftStatus string

const (
	ShiftDraft     ShiftStatus = "DRAFT"
	ShiftPublished ShiftStatus = "PUBLISHED"
	ShiftCancelled ShiftStatus = "CANCELLED"
)

type ShiftRoleRequirement struct {
	RoleID   int64 `json:"roleID"`
	Quantity int32 `json:"quantity"`
	Required bool  `json:"required"`
}

type Shift struct {
	ID       int64       `json:"id"`
	BranchID int64       `json:"branchID"`
	Date     time.Time   `json:"date"`
	// 开始和结束时间只保存时刻（格式 15:04:05），结束时刻不晚于开始时刻表示跨天班次
	StartTime        string                 `json:"startTime"`
	EndTime          string                 `json:"endTime"`
	Status           ShiftStatus            `json:"status"`
	MaxStaff         int32                  `json:"maxStaff"`
	EmploymentType   EmploymentType         `json:"employmentType"`
	RoleRequirements []ShiftRoleRequirement `json:"roleRequirements"`
	CreatedAt        time.Time              `json:"createdAt"`
	Version          int32                  `json:"-"`
}

// clockOn 把 15:04:05 格式的时刻挂到指定日期上
func clockOn(date time.Time, clock string) time.Time {
	t, _ := time.Parse("15:04:05", clock)
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, date.Location())
}

func (s *Shift) StartsAt() time.Time {
	return clockOn(s.Date, s.StartTime)
}

func (s *Shift) EndsAt() time.Time {
	end := clockOn(s.Date, s.EndTime)
	if !end.After(s.StartsAt()) {
		end = end.Add(24 * time.Hour)
	}
	return end
}

func (s *Shift) DurationMinutes() int {
	return int(s.EndsAt().Sub(s.StartsAt()) / time.Minute)
}

// IsNight 表示夜班：22 点后开始或 6 点前结束
func (s *Shift) IsNight() bool {
	start := s.StartsAt()
	end := s.EndsAt()
	if start.Hour() >= 22 {
		return true
	}
	endClock := end.Hour()*60 + end.Minute()
	return endClock > 0 && endClock <= 6*60
}

// IsMorning 表示早班：6 点至 14 点之间开始
func (s *Shift) IsMorning() bool {
	h := s.StartsAt().Hour()
	return h >= 6 && h < 14
}

// IsAfternoon 表示午后班：14 点至 22 点之间开始
func (s *Shift) IsAfternoon() bool {
	h := s.StartsAt().Hour()
	return h >= 14 && h < 22
}

func (s *Shift) IsWeekend() bool {
	wd := s.Date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
