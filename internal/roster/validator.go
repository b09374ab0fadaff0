package roster

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Validator 回答“员工 X 能否上班次 Y”，
// 规则分组并发求值，结构性规则的失败优先于行为性规则
type Validator struct {
	policy   *config.Policy
	store    Store
	calendar BranchCalendar
	now      func() time.Time
}

func NewValidator(policy *config.Policy, store Store, calendar BranchCalendar) *Validator {
	return &Validator{
		policy:   policy,
		store:    store,
		calendar: calendar,
		now:      time.Now,
	}
}

type Options struct {
	AllowToday        bool
	AllowRoleOverride bool
	SkipCapacityCheck bool
}

type Result struct {
	// Warnings 记录被覆盖的软性违规（目前只有岗位不匹配）
	Warnings []string
}

// Validate 用完整规则集校验。返回 *ConflictError 表示违反了某条约束，
// 其他错误表示依赖不可用。
func (v *Validator) Validate(ctx context.Context, staffID int64, shift *domain.Shift, opts Options) (*Result, error) {
	snap, err := v.buildSnapshot(ctx, staffID, shift)
	if err != nil {
		return nil, err
	}
	return v.run(snap, opts, behavioralRules)
}

// ValidateOvertime 用加班申请的放宽规则集校验
func (v *Validator) ValidateOvertime(ctx context.Context, staffID int64, shift *domain.Shift) (*Result, error) {
	snap, err := v.buildSnapshot(ctx, staffID, shift)
	if err != nil {
		return nil, err
	}
	return v.run(snap, Options{}, overtimeBehavioralRules)
}

// run 把两组规则放到并发任务里求值，join 后按组优先级取第一个失败。
// 规则都是快照上的纯函数，不需要取消传播，落后的一组跑完即弃。
func (v *Validator) run(snap *Snapshot, opts Options, behavioral []rule) (*Result, error) {
	res := &Result{}
	var structuralConflict, behavioralConflict *ConflictError

	var g errgroup.Group
	g.Go(func() error {
		for _, r := range structuralRules {
			if ce := r(v.policy, opts, snap); ce != nil {
				if ce.Code == CodeRoleNotQualified && opts.AllowRoleOverride {
					// 允许岗位覆盖时降级为警告，由调用方决定是否强制要求覆盖理由
					res.Warnings = append(res.Warnings, ce.Message)
					continue
				}
				structuralConflict = ce
				return nil
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, r := range behavioral {
			if ce := r(v.policy, opts, snap); ce != nil {
				behavioralConflict = ce
				return nil
			}
		}
		return nil
	})
	_ = g.Wait()

	if structuralConflict != nil {
		return nil, structuralConflict
	}
	if behavioralConflict != nil {
		return nil, behavioralConflict
	}
	return res, nil
}
