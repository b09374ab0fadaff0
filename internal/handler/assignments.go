package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)
	h.successResponse(w, r, "获取排班成功", assignment)
}

func (h *Handler) ApproveAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	updated, err := h.assignments.Approve(r.Context(), assignment.ID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "排班已确认", updated)
}

func (h *Handler) RejectAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		Notes string `json:"notes"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.assignments.Reject(r.Context(), assignment.ID, req.Notes)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "排班已驳回", updated)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	updated, err := h.assignments.Delete(r.Context(), assignment.ID, "店长删除排班")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "排班已删除", updated)
}

func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		Notes string `json:"notes"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.assignments.MarkNoShow(r.Context(), assignment.ID, req.Notes)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "已标记旷工", updated)
}

func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	updated, err := h.assignments.Unregister(r.Context(), myInfo.ID, assignment.ID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "已取消报名", updated)
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	updated, err := h.assignments.CheckIn(r.Context(), myInfo.ID, assignment.ID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "签到成功", updated)
}

func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	updated, err := h.assignments.CheckOut(r.Context(), myInfo.ID, assignment.ID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "签退成功", updated)
}
