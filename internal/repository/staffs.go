package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

func (r *Repository) loadJobRoles(ctx context.Context, staffID int64) ([]int64, error) {
	query := `
		SELECT role_id FROM staff_job_roles WHERE staff_id = $1 ORDER BY role_id
	`

	rows, err := r.db.QueryContext(ctx, query, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roleIDs := make([]int64, 0)
	for rows.Next() {
		var roleID int64
		if err := rows.Scan(&roleID); err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, roleID)
	}

	return roleIDs, rows.Err()
}

func (r *Repository) GetStaff(ctx context.Context, id int64) (*domain.Staff, error) {
	query := `
		SELECT username, password_hash, full_name, email, role, employment_type, branch_id, is_active, created_at, version
		FROM staffs WHERE id = $1
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	staff := &domain.Staff{
		ID: id,
	}

	dst := []any{&staff.Username, &staff.PasswordHash, &staff.FullName, &staff.Email, &staff.Role, &staff.EmploymentType, &staff.BranchID, &staff.IsActive, &staff.CreatedAt, &staff.Version}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	roleIDs, err := r.loadJobRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	staff.JobRoleIDs = roleIDs

	return staff, nil
}

func (r *Repository) GetStaffByUsername(ctx context.Context, username string) (*domain.Staff, error) {
	query := `
		SELECT id, password_hash, full_name, email, role, employment_type, branch_id, is_active, created_at, version
		FROM staffs WHERE username = $1
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	staff := &domain.Staff{
		Username: username,
	}

	dst := []any{&staff.ID, &staff.PasswordHash, &staff.FullName, &staff.Email, &staff.Role, &staff.EmploymentType, &staff.BranchID, &staff.IsActive, &staff.CreatedAt, &staff.Version}
	if err := r.db.QueryRowContext(ctx, query, username).Scan(dst...); err != nil {
		return nil, err
	}

	roleIDs, err := r.loadJobRoles(ctx, staff.ID)
	if err != nil {
		return nil, err
	}
	staff.JobRoleIDs = roleIDs

	return staff, nil
}

func (r *Repository) GetAllStaffs(ctx context.Context) ([]*domain.Staff, error) {
	query := `
		SELECT id, username, full_name, email, role, employment_type, branch_id, is_active, created_at, version
		FROM staffs ORDER BY id
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	staffs := make([]*domain.Staff, 0)
	for rows.Next() {
		staff := &domain.Staff{}
		dst := []any{&staff.ID, &staff.Username, &staff.FullName, &staff.Email, &staff.Role, &staff.EmploymentType, &staff.BranchID, &staff.IsActive, &staff.CreatedAt, &staff.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		staffs = append(staffs, staff)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, staff := range staffs {
		roleIDs, err := r.loadJobRoles(ctx, staff.ID)
		if err != nil {
			return nil, err
		}
		staff.JobRoleIDs = roleIDs
	}

	return staffs, nil
}

func (r *Repository) CreateStaff(ctx context.Context, staff *domain.Staff) error {
	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO staffs (username, password_hash, full_name, email, role, employment_type, branch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, version
	`

	args := []any{staff.Username, staff.PasswordHash, staff.FullName, staff.Email, staff.Role, staff.EmploymentType, staff.BranchID}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&staff.ID, &staff.IsActive, &staff.CreatedAt, &staff.Version); err != nil {
		return err
	}

	for _, roleID := range staff.JobRoleIDs {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO staff_job_roles (staff_id, role_id) VALUES ($1, $2)`, staff.ID, roleID); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) UpdateStaff(ctx context.Context, staff *domain.Staff) error {
	query := `
		UPDATE staffs
		SET
			password_hash = $1,
			email = $2,
			role = $3,
			employment_type = $4,
			is_active = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING username, full_name, created_at, version
	`

	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	args := []any{staff.PasswordHash, staff.Email, staff.Role, staff.EmploymentType, staff.IsActive, staff.ID, staff.Version}
	dst := []any{&staff.Username, &staff.FullName, &staff.CreatedAt, &staff.Version}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}
