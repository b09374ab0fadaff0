package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

const requestColumns = `
	id, assignment_id, requester_id, type, target_staff_id, target_assignment_id,
	status, reason, reviewer_id, reviewed_at, review_notes, created_at, version
`

func scanRequest(row interface{ Scan(dst ...any) error }) (*domain.Request, error) {
	req := &domain.Request{}
	dst := []any{
		&req.ID, &req.AssignmentID, &req.RequesterID, &req.Type, &req.TargetStaffID, &req.TargetAssignmentID,
		&req.Status, &req.Reason, &req.ReviewerID, &req.ReviewedAt, &req.ReviewNotes, &req.CreatedAt, &req.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *Repository) GetRequest(ctx context.Context, id int64) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	return scanRequest(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) ListOpenRequestsByAssignment(ctx context.Context, assignmentID int64) ([]*domain.Request, error) {
	// 未终结申请也可能通过 target_assignment_id 引用这条排班（双向换班）
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE (assignment_id = $1 OR target_assignment_id = $1)
			AND status IN ('PENDING', 'PENDING_TARGET_APPROVAL', 'PENDING_MANAGER_APPROVAL')
		ORDER BY id
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]*domain.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (r *Repository) FindOpenCounterpart(ctx context.Context, assignmentID int64, types []domain.RequestType, staffA, staffB int64) (*domain.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE (assignment_id = $1 OR target_assignment_id = $1)
			AND status IN ('PENDING', 'PENDING_TARGET_APPROVAL', 'PENDING_MANAGER_APPROVAL')
			AND type = ANY($2)
			AND (
				(requester_id = $3 AND target_staff_id = $4)
				OR (requester_id = $4 AND target_staff_id = $3)
			)
		LIMIT 1
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	typeNames := make([]string, 0, len(types))
	for _, t := range types {
		typeNames = append(typeNames, string(t))
	}

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, assignmentID, typeNames, staffA, staffB))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return req, nil
}

func (r *Repository) ListRequestsByRequester(ctx context.Context, requesterID int64) ([]*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE requester_id = $1 ORDER BY created_at DESC`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]*domain.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (r *Repository) CreateRequest(ctx context.Context, req *domain.Request) error {
	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO requests (assignment_id, requester_id, type, target_staff_id, target_assignment_id, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	args := []any{req.AssignmentID, req.RequesterID, req.Type, req.TargetStaffID, req.TargetAssignmentID, req.Status, req.Reason}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&req.ID, &req.CreatedAt, &req.Version); err != nil {
		return err
	}

	return nil
}

// UpdateRequest 带乐观版本号更新，版本不匹配时返回 sql.ErrNoRows
func (r *Repository) UpdateRequest(ctx context.Context, req *domain.Request) error {
	query := `
		UPDATE requests
		SET
			status = $1,
			reviewer_id = $2,
			reviewed_at = $3,
			review_notes = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	args := []any{req.Status, req.ReviewerID, req.ReviewedAt, req.ReviewNotes, req.ID, req.Version}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&req.Version); err != nil {
		return err
	}

	return nil
}
