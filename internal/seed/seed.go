package seed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/utils"
)

// 门店一天的固定班次结构：早班、午后班、晚班
var dailyShiftPatterns = []struct {
	StartTime string
	EndTime   string
	MaxStaff  int32
}{
	{"09:00:00", "13:00:00", 4},
	{"13:00:00", "18:00:00", 5},
	{"18:00:00", "23:00:00", 3},
}

// SeedStaffs 插入 n 个随机员工
func SeedStaffs(cfg *config.Config, repo *repository.Repository, branchID int64, n int) {
	jobRolePool := []int64{1, 2, 3}

	cnt := 0
	for i := 0; i < n; i++ {
		staff, err := utils.GenerateRandomStaff(cfg.Seed.User.Password, cfg.Email.UserDomain, branchID, jobRolePool)
		if err != nil {
			slog.Error("无法生成随机员工", "error", err)
			continue
		}

		if err := repo.CreateStaff(context.Background(), staff); err != nil {
			slog.Error("无法插入员工", "error", err)
			continue
		}
		cnt++
	}

	slog.Info("插入员工成功", "count", cnt)
}

// SeedShifts 按固定的班次结构为门店生成从明天开始 days 天的已发布班次
func SeedShifts(repo *repository.Repository, branchID int64, days int) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	cnt := 0
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		for _, pattern := range dailyShiftPatterns {
			shift := &domain.Shift{
				BranchID:       branchID,
				Date:           date,
				StartTime:      pattern.StartTime,
				EndTime:        pattern.EndTime,
				Status:         domain.ShiftPublished,
				MaxStaff:       pattern.MaxStaff,
				EmploymentType: domain.EmploymentAny,
			}

			if err := repo.CreateShift(context.Background(), shift); err != nil {
				slog.Error("无法插入班次", "error", err, "date", date.Format("2006-01-02"))
				continue
			}
			cnt++
		}
	}

	slog.Info("插入班次成功", "count", cnt)
}

// SeedAssignments 把在职员工随机排到未来的班次上，方便本地联调
func SeedAssignments(repo *repository.Repository, branchID int64, days int) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, days)

	shifts, err := repo.ListShifts(context.Background(), branchID, from, to)
	if err != nil {
		slog.Error("无法获取班次列表", "error", err)
		return
	}

	staffs, err := repo.GetAllStaffs(context.Background())
	if err != nil {
		slog.Error("无法获取员工列表", "error", err)
		return
	}

	candidates := make([]*domain.Staff, 0, len(staffs))
	for _, staff := range staffs {
		if staff.IsActive && staff.BranchID == branchID && staff.Role == domain.RoleStaff {
			candidates = append(candidates, staff)
		}
	}
	if len(candidates) == 0 {
		slog.Error("门店没有可排班的在职员工", "branchID", branchID)
		return
	}

	cnt := 0
	for _, shift := range shifts {
		if shift.Status != domain.ShiftPublished {
			continue
		}

		// 每个班次随机挑不超过半编的员工，留出名额给报名和换班流程
		n := rand.Intn(int(shift.MaxStaff)/2 + 1)
		perm := rand.Perm(len(candidates))
		for i := 0; i < n && i < len(perm); i++ {
			assignment := &domain.Assignment{
				ShiftID: shift.ID,
				StaffID: candidates[perm[i]].ID,
				Origin:  domain.OriginManual,
				Status:  domain.AssignmentConfirmed,
			}
			if err := repo.CreateAssignment(context.Background(), assignment); err != nil {
				slog.Error("无法插入排班", "error", err)
				continue
			}
			cnt++
		}
	}

	slog.Info("插入排班成功", "count", cnt)
}
