package domain

import (
	"time"
)

type Role string

const (
	RoleStaff   Role = "员工"
	RoleManager Role = "店长"
	RoleAdmin   Role = "管理员"
)

type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "FULL_TIME"
	EmploymentPartTime EmploymentType = "PART_TIME"
	// EmploymentAny 只用于班次的用工类型筛选，不会出现在员工档案上
	EmploymentAny EmploymentType = "ANY"
)

type Staff struct {
	ID             int64          `json:"id"`
	Username       string         `json:"username"`
	PasswordHash   string         `json:"-"`
	FullName       string         `json:"fullName"`
	Email          string         `json:"email"`
	Role           Role           `json:"role"`
	EmploymentType EmploymentType `json:"employmentType"`
	BranchID       int64          `json:"branchID"`
	JobRoleIDs     []int64        `json:"jobRoleIDs"`
	IsActive       bool           `json:"isActive"`
	CreatedAt      time.Time      `json:"createdAt"`
	Version        int32          `json:"-"`
}
