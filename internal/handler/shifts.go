package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/roster"
)

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BranchID       int64  `json:"branchID" validate:"required"`
		Date           string `json:"date" validate:"required,datetime=2006-01-02"`
		StartTime      string `json:"startTime" validate:"required,datetime=15:04:05"`
		EndTime        string `json:"endTime" validate:"required,datetime=15:04:05"`
		MaxStaff       int32  `json:"maxStaff" validate:"required,min=1"`
		EmploymentType string `json:"employmentType" validate:"required,oneof=FULL_TIME PART_TIME ANY"`
		RoleRequirements []struct {
			RoleID   int64 `json:"roleID" validate:"required"`
			Quantity int32 `json:"quantity" validate:"required,min=1"`
			Required bool  `json:"required"`
		} `json:"roleRequirements"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.badRequest(w, r, errors.New("日期格式错误"))
		return
	}

	shift := &domain.Shift{
		BranchID:       req.BranchID,
		Date:           date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         domain.ShiftDraft,
		MaxStaff:       req.MaxStaff,
		EmploymentType: domain.EmploymentType(req.EmploymentType),
	}
	for _, rr := range req.RoleRequirements {
		shift.RoleRequirements = append(shift.RoleRequirements, domain.ShiftRoleRequirement{
			RoleID:   rr.RoleID,
			Quantity: rr.Quantity,
			Required: rr.Required,
		})
	}

	// 时长约束在创建时就拦住，不用等到有人报名才暴露
	duration := shift.DurationMinutes()
	if duration < h.config.Policy.MinShiftMinutes || duration > h.config.Policy.MaxShiftMinutes {
		h.conflictResponse(w, r, roster.Conflictf(roster.CodeInvalidShiftDuration,
			"班次时长必须在 %d 到 %d 分钟之间", h.config.Policy.MinShiftMinutes, h.config.Policy.MaxShiftMinutes))
		return
	}

	if err := h.repository.CreateShift(r.Context(), shift); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "shifts_branch_id_fkey":
				h.badRequest(w, r, errors.New("门店不存在"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "班次创建成功", shift)
}

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	branchID, err := strconv.ParseInt(r.URL.Query().Get("branchID"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "门店ID无效")
		return
	}

	// 默认查当前月
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, -1)

	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			h.errorResponse(w, r, "开始日期格式错误")
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			h.errorResponse(w, r, "结束日期格式错误")
			return
		}
	}

	shifts, err := h.repository.ListShifts(r.Context(), branchID, from, to)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)
	h.successResponse(w, r, "获取班次成功", shift)
}

func (h *Handler) PublishShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	if shift.Status != domain.ShiftDraft {
		h.errorResponse(w, r, "只有草稿状态的班次才能发布")
		return
	}

	shift.Status = domain.ShiftPublished
	if err := h.repository.UpdateShiftStatus(r.Context(), shift); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "班次已被其他人修改，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "班次发布成功", shift)
}

func (h *Handler) CancelShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	if shift.Status == domain.ShiftCancelled {
		h.errorResponse(w, r, "班次已经是取消状态")
		return
	}

	shift.Status = domain.ShiftCancelled
	if err := h.repository.UpdateShiftStatus(r.Context(), shift); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "班次已被其他人修改，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "班次取消成功", shift)
}

func (h *Handler) ListShiftAssignments(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	assignments, err := h.repository.ListShiftAssignments(r.Context(), shift.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次排班列表成功", assignments)
}

func (h *Handler) SelfRegister(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	assignment, err := h.assignments.SelfRegister(r.Context(), myInfo.ID, shift.ID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "报名成功，等待店长确认", assignment)
}

func (h *Handler) ManualAssign(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	var req struct {
		StaffID                int64  `json:"staffID" validate:"required"`
		RoleOverrideReason     string `json:"roleOverrideReason"`
		CapacityOverrideReason string `json:"capacityOverrideReason"`
		Notes                  string `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	assignment, err := h.assignments.ManualAssign(r.Context(), req.StaffID, shift.ID, roster.ManualAssignOptions{
		RoleOverrideReason:     req.RoleOverrideReason,
		CapacityOverrideReason: req.CapacityOverrideReason,
		Notes:                  req.Notes,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "排班成功", assignment)
}
