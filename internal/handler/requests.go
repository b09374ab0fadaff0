package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// CreateRequest 统一的申请入口，按类型分发到各自的创建逻辑
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)

	var req struct {
		Type               string `json:"type" validate:"required,oneof=LEAVE OVERTIME SWAP PICK_UP TWO_WAY_SWAP"`
		AssignmentID       int64  `json:"assignmentID"`
		ShiftID            int64  `json:"shiftID"`
		TargetStaffID      int64  `json:"targetStaffID"`
		TargetAssignmentID int64  `json:"targetAssignmentID"`
		Reason             string `json:"reason"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var created *domain.Request
	var err error
	switch domain.RequestType(req.Type) {
	case domain.RequestLeave:
		created, err = h.requests.CreateLeave(r.Context(), myInfo.ID, req.AssignmentID, req.Reason)
	case domain.RequestOvertime:
		created, err = h.requests.CreateOvertime(r.Context(), myInfo.ID, req.ShiftID, req.Reason)
	case domain.RequestSwap:
		created, err = h.requests.CreateSwap(r.Context(), myInfo.ID, req.AssignmentID, req.TargetStaffID, req.Reason)
	case domain.RequestPickUp:
		created, err = h.requests.CreatePickUp(r.Context(), myInfo.ID, req.AssignmentID, req.Reason)
	case domain.RequestTwoWaySwap:
		created, err = h.requests.CreateTwoWaySwap(r.Context(), myInfo.ID, req.AssignmentID, req.TargetAssignmentID, req.Reason)
	}
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "申请提交成功", created)
}

func (h *Handler) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)

	requests, err := h.repository.ListRequestsByRequester(r.Context(), myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取申请列表成功", requests)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req := r.Context().Value(RequestInfoCtx).(*domain.Request)
	h.successResponse(w, r, "获取申请成功", req)
}

func (h *Handler) respondAsTarget(w http.ResponseWriter, r *http.Request, accept bool) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)
	req := r.Context().Value(RequestInfoCtx).(*domain.Request)

	var body struct {
		Notes string `json:"notes"`
	}
	if err := h.readJSON(r, &body); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.requests.RespondAsTarget(r.Context(), myInfo.ID, req.ID, accept, body.Notes)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	msg := "已同意，等待店长审批"
	if !accept {
		msg = "已拒绝该申请"
	}
	h.successResponse(w, r, msg, updated)
}

func (h *Handler) TargetAccept(w http.ResponseWriter, r *http.Request) {
	h.respondAsTarget(w, r, true)
}

func (h *Handler) TargetReject(w http.ResponseWriter, r *http.Request) {
	h.respondAsTarget(w, r, false)
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)
	req := r.Context().Value(RequestInfoCtx).(*domain.Request)

	var body struct {
		Notes string `json:"notes"`
	}
	if err := h.readJSON(r, &body); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.requests.Approve(r.Context(), myInfo.ID, req.ID, body.Notes)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "申请已批准", updated)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)
	req := r.Context().Value(RequestInfoCtx).(*domain.Request)

	var body struct {
		Notes string `json:"notes"`
	}
	if err := h.readJSON(r, &body); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.requests.Reject(r.Context(), myInfo.ID, req.ID, body.Notes)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "申请已驳回", updated)
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Staff)
	req := r.Context().Value(RequestInfoCtx).(*domain.Request)

	updated, err := h.requests.Cancel(r.Context(), myInfo.ID, req.ID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "申请已撤回", updated)
}
