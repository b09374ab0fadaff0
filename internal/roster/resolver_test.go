package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

func TestCheckCircular_Symmetric(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver()
	target := int64(2)
	require.NoError(t, store.CreateRequest(context.Background(), &domain.Request{
		AssignmentID:  7,
		RequesterID:   1,
		Type:          domain.RequestSwap,
		TargetStaffID: &target,
		Status:        domain.RequestPendingTargetApproval,
	}))

	// 不管从哪个方向查，这对员工之间的互补申请都要被发现
	err := resolver.CheckCircular(context.Background(), store, 7, 1, 2, domain.RequestSwap, domain.RequestPickUp)
	requireConflict(t, err, CodeCircularRequestDetected)

	err = resolver.CheckCircular(context.Background(), store, 7, 2, 1, domain.RequestSwap, domain.RequestPickUp)
	requireConflict(t, err, CodeCircularRequestDetected)

	// 类型不在候选里就不算循环
	err = resolver.CheckCircular(context.Background(), store, 7, 1, 2, domain.RequestTwoWaySwap)
	assert.NoError(t, err)

	// 换一对员工也不算
	err = resolver.CheckCircular(context.Background(), store, 7, 1, 3, domain.RequestSwap)
	assert.NoError(t, err)
}

func TestCancelStale(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver()
	target := int64(2)

	keep := &domain.Request{AssignmentID: 7, RequesterID: 1, Type: domain.RequestLeave, Status: domain.RequestPendingManagerApproval}
	require.NoError(t, store.CreateRequest(context.Background(), keep))
	stale := &domain.Request{AssignmentID: 7, RequesterID: 3, Type: domain.RequestPickUp, TargetStaffID: &target, Status: domain.RequestPendingTargetApproval}
	require.NoError(t, store.CreateRequest(context.Background(), stale))
	// 通过 TargetAssignmentID 引用的双向换班同样要被作废
	other := int64(7)
	staleMirror := &domain.Request{AssignmentID: 9, RequesterID: 4, Type: domain.RequestTwoWaySwap, TargetStaffID: &target, TargetAssignmentID: &other, Status: domain.RequestPendingTargetApproval}
	require.NoError(t, store.CreateRequest(context.Background(), staleMirror))

	err := resolver.CancelStale(context.Background(), store, []int64{7}, keep.ID, "关联排班已变更，申请自动取消")
	require.NoError(t, err)

	assert.Equal(t, domain.RequestPendingManagerApproval, store.requests[keep.ID].Status)
	assert.Equal(t, domain.RequestCancelled, store.requests[stale.ID].Status)
	assert.Equal(t, "关联排班已变更，申请自动取消", store.requests[stale.ID].ReviewNotes)
	assert.Equal(t, domain.RequestCancelled, store.requests[staleMirror.ID].Status)
}

func TestEnsureNoOpenRequest_IgnoresTerminal(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver()

	require.NoError(t, store.CreateRequest(context.Background(), &domain.Request{
		AssignmentID: 7,
		RequesterID:  1,
		Type:         domain.RequestLeave,
		Status:       domain.RequestRejected,
	}))

	// 已终结的申请不挡新申请
	assert.NoError(t, resolver.EnsureNoOpenRequest(context.Background(), store, 7))
}
