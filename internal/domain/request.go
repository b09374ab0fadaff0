package domain

import (
	"time"
)

type RequestType string

const (
	RequestLeave      RequestType = "LEAVE"
	RequestOvertime   RequestType = "OVERTIME"
	RequestSwap       RequestType = "SWAP"
	RequestPickUp     RequestType = "PICK_UP"
	RequestTwoWaySwap RequestType = "TWO_WAY_SWAP"
)

// NeedsTargetApproval 表示这类申请需要对方员工先同意，之后才轮到店长审批
func (t RequestType) NeedsTargetApproval() bool {
	switch t {
	case RequestSwap, RequestPickUp, RequestTwoWaySwap:
		return true
	default:
		return false
	}
}

type RequestStatus string

const (
	RequestPending                RequestStatus = "PENDING"
	RequestPendingTargetApproval  RequestStatus = "PENDING_TARGET_APPROVAL"
	RequestPendingManagerApproval RequestStatus = "PENDING_MANAGER_APPROVAL"
	RequestApproved               RequestStatus = "APPROVED"
	RequestRejected               RequestStatus = "REJECTED"
	RequestRejectedByTarget       RequestStatus = "REJECTED_BY_TARGET"
	RequestCancelled              RequestStatus = "CANCELLED"
)

func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestApproved, RequestRejected, RequestRejectedByTarget, RequestCancelled:
		return true
	default:
		return false
	}
}

type Request struct {
	ID           int64       `json:"id"`
	AssignmentID int64       `json:"assignmentID"`
	RequesterID  int64       `json:"requesterID"`
	Type         RequestType `json:"type"`
	// TargetStaffID 在 SWAP / PICK_UP / TWO_WAY_SWAP 中表示对方员工
	TargetStaffID *int64 `json:"targetStaffID"`
	// TargetAssignmentID 只在 TWO_WAY_SWAP 中使用，表示对方被交换的排班
	TargetAssignmentID *int64        `json:"targetAssignmentID"`
	Status             RequestStatus `json:"status"`
	Reason             string        `json:"reason"`
	ReviewerID         *int64        `json:"reviewerID"`
	ReviewedAt         *time.Time    `json:"reviewedAt"`
	ReviewNotes        string        `json:"reviewNotes"`
	CreatedAt          time.Time     `json:"createdAt"`
	Version            int32         `json:"-"`
}
