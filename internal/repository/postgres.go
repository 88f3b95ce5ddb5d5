// internal/repository/postgres.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// ============================================
// PostgreSQL Organization Repository
// ============================================

type pgOrganizationRepository struct {
	pool *pgxpool.Pool
}

func (r *pgOrganizationRepository) Create(ctx context.Context, org *Organization, owner *Member) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if org.Settings == nil {
		org.Settings = map[string]interface{}{}
	}

	query := `
		INSERT INTO organizations (name, slug, owner_id, settings)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query, org.Name, org.Slug, org.OwnerID, org.Settings).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return err
	}

	memberQuery := `
		INSERT INTO members (organization_id, user_id, role, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING id, joined_at
	`
	owner.OrganizationID = org.ID
	if err := tx.QueryRow(ctx, memberQuery,
		org.ID, owner.UserID, owner.Role, owner.Permissions,
	).Scan(&owner.ID, &owner.JoinedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgOrganizationRepository) FindByID(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, slug, owner_id, settings, created_at, updated_at
		FROM organizations WHERE id = $1
	`
	org := &Organization{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.Settings,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (r *pgOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*Organization, error) {
	query := `
		SELECT id, name, slug, owner_id, settings, created_at, updated_at
		FROM organizations WHERE slug = $1
	`
	org := &Organization{}
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.Settings,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (r *pgOrganizationRepository) FindByUserID(ctx context.Context, userID string) ([]*Organization, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.owner_id, o.settings, o.created_at, o.updated_at
		FROM organizations o
		JOIN members m ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY o.name
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(
			&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.Settings,
			&org.CreatedAt, &org.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}

func (r *pgOrganizationRepository) Update(ctx context.Context, org *Organization) error {
	query := `
		UPDATE organizations SET name = $2, slug = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, org.ID, org.Name, org.Slug)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

func (r *pgOrganizationRepository) UpdateSettings(ctx context.Context, id string, settings map[string]interface{}) error {
	query := `UPDATE organizations SET settings = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, settings)
	return err
}

func (r *pgOrganizationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM organizations WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ============================================
// PostgreSQL Member Repository
// ============================================

type pgMemberRepository struct {
	pool *pgxpool.Pool
}

func (r *pgMemberRepository) Add(ctx context.Context, member *Member) error {
	query := `
		INSERT INTO members (organization_id, user_id, role, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING id, joined_at
	`
	err := r.pool.QueryRow(ctx, query,
		member.OrganizationID, member.UserID, member.Role, member.Permissions,
	).Scan(&member.ID, &member.JoinedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateMember
	}
	return err
}

func (r *pgMemberRepository) FindByOrgAndUser(ctx context.Context, orgID, userID string) (*Member, error) {
	query := `
		SELECT id, organization_id, user_id, role, permissions, joined_at
		FROM members WHERE organization_id = $1 AND user_id = $2
	`
	m := &Member{}
	err := r.pool.QueryRow(ctx, query, orgID, userID).Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.Permissions, &m.JoinedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgMemberRepository) FindByOrganization(ctx context.Context, orgID string) ([]*Member, error) {
	query := `
		SELECT id, organization_id, user_id, role, permissions, joined_at
		FROM members WHERE organization_id = $1
		ORDER BY joined_at
	`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.Permissions, &m.JoinedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (r *pgMemberRepository) CountOwners(ctx context.Context, orgID string) (int, error) {
	query := `SELECT COUNT(*) FROM members WHERE organization_id = $1 AND role = 'owner'`
	var count int
	err := r.pool.QueryRow(ctx, query, orgID).Scan(&count)
	return count, err
}

func (r *pgMemberRepository) UpdateRole(ctx context.Context, orgID, userID, role string) error {
	query := `UPDATE members SET role = $3 WHERE organization_id = $1 AND user_id = $2`
	ct, err := r.pool.Exec(ctx, query, orgID, userID, role)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DemoteOwner locks the organization's member rows for the duration of the
// owner-count check so two concurrent demotions cannot both pass it.
func (r *pgMemberRepository) DemoteOwner(ctx context.Context, orgID, userID, newRole string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	owners, err := lockAndCountOwners(ctx, tx, orgID)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return ErrOwnerRequired
	}

	ct, err := tx.Exec(ctx,
		`UPDATE members SET role = $3 WHERE organization_id = $1 AND user_id = $2 AND role = 'owner'`,
		orgID, userID, newRole,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *pgMemberRepository) UpdatePermissions(ctx context.Context, orgID, userID string, perms PermissionSet) error {
	query := `UPDATE members SET permissions = $3 WHERE organization_id = $1 AND user_id = $2`
	ct, err := r.pool.Exec(ctx, query, orgID, userID, perms)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgMemberRepository) Remove(ctx context.Context, orgID, userID string) error {
	query := `DELETE FROM members WHERE organization_id = $1 AND user_id = $2`
	ct, err := r.pool.Exec(ctx, query, orgID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgMemberRepository) RemoveOwner(ctx context.Context, orgID, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	owners, err := lockAndCountOwners(ctx, tx, orgID)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return ErrOwnerRequired
	}

	ct, err := tx.Exec(ctx,
		`DELETE FROM members WHERE organization_id = $1 AND user_id = $2 AND role = 'owner'`,
		orgID, userID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func lockAndCountOwners(ctx context.Context, tx pgx.Tx, orgID string) (int, error) {
	rows, err := tx.Query(ctx,
		`SELECT role FROM members WHERE organization_id = $1 FOR UPDATE`, orgID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	owners := 0
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return 0, err
		}
		if role == "owner" {
			owners++
		}
	}
	return owners, rows.Err()
}

// ============================================
// PostgreSQL Project Repository
// ============================================

type pgProjectRepository struct {
	pool *pgxpool.Pool
}

func (r *pgProjectRepository) Create(ctx context.Context, project *Project) error {
	if project.Status == "" {
		project.Status = "planning"
	}
	if project.Settings == nil {
		project.Settings = map[string]interface{}{}
	}
	if project.Tags == nil {
		project.Tags = []string{}
	}
	query := `
		INSERT INTO projects (organization_id, name, status, progress, budget, settings, tags, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		project.OrganizationID, project.Name, project.Status, project.Progress,
		project.Budget, project.Settings, project.Tags, project.CreatedBy,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
}

func (r *pgProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	query := `
		SELECT id, organization_id, name, status, progress, budget, settings, tags, created_by, created_at, updated_at
		FROM projects WHERE id = $1
	`
	p := &Project{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OrganizationID, &p.Name, &p.Status, &p.Progress, &p.Budget,
		&p.Settings, &p.Tags, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgProjectRepository) FindByOrganization(ctx context.Context, orgID string) ([]*Project, error) {
	query := `
		SELECT id, organization_id, name, status, progress, budget, settings, tags, created_by, created_at, updated_at
		FROM projects WHERE organization_id = $1 ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *pgProjectRepository) Search(ctx context.Context, orgID, query string, tags []string, limit, offset int) ([]*Project, error) {
	sql := `
		SELECT id, organization_id, name, status, progress, budget, settings, tags, created_by, created_at, updated_at
		FROM projects WHERE organization_id = $1
	`
	args := []interface{}{orgID}
	argNum := 1

	if query != "" {
		argNum++
		sql += fmt.Sprintf(" AND LOWER(name) LIKE LOWER($%d)", argNum)
		args = append(args, "%"+query+"%")
	}
	if len(tags) > 0 {
		argNum++
		sql += fmt.Sprintf(" AND tags @> $%d", argNum)
		args = append(args, tags)
	}

	sql += " ORDER BY name"
	if limit > 0 {
		argNum++
		sql += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, limit)
	}
	if offset > 0 {
		argNum++
		sql += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func scanProjects(rows pgx.Rows) ([]*Project, error) {
	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(
			&p.ID, &p.OrganizationID, &p.Name, &p.Status, &p.Progress, &p.Budget,
			&p.Settings, &p.Tags, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *pgProjectRepository) Update(ctx context.Context, project *Project) error {
	query := `
		UPDATE projects SET name = $2, status = $3, progress = $4, budget = $5, settings = $6, tags = $7, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		project.ID, project.Name, project.Status, project.Progress,
		project.Budget, project.Settings, project.Tags,
	)
	return err
}

func (r *pgProjectRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM projects WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *pgProjectRepository) RecomputeProgress(ctx context.Context) (int, error) {
	query := `
		UPDATE projects p SET progress = sub.pct, updated_at = NOW()
		FROM (
			SELECT project_id,
			       (COUNT(*) FILTER (WHERE status = 'done') * 100 / COUNT(*))::int AS pct
			FROM tasks
			WHERE status != 'cancelled'
			GROUP BY project_id
		) sub
		WHERE p.id = sub.project_id AND p.progress != sub.pct
	`
	ct, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

// ============================================
// PostgreSQL Task Repository
// ============================================

type pgTaskRepository struct {
	pool *pgxpool.Pool
}

// Create locks the parent project row, then derives organization_id and the
// next position inside the same transaction. The lock serializes concurrent
// creates so no two tasks in a project get the same default position.
func (r *pgTaskRepository) Create(ctx context.Context, task *Task) error {
	if task.Status == "" {
		task.Status = "todo"
	}
	if task.Priority == "" {
		task.Priority = "medium"
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if task.Metadata == nil {
		task.Metadata = map[string]interface{}{}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var orgID string
	err = tx.QueryRow(ctx,
		`SELECT organization_id FROM projects WHERE id = $1 FOR UPDATE`, task.ProjectID,
	).Scan(&orgID)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	task.OrganizationID = orgID

	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE project_id = $1`, task.ProjectID,
	).Scan(&task.Position)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (project_id, organization_id, title, description, status, priority,
		                   due_date, estimated_hours, actual_hours, assignee_id, created_by,
		                   position, tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		task.ProjectID, task.OrganizationID, task.Title, task.Description,
		task.Status, task.Priority, task.DueDate, task.EstimatedHours,
		task.ActualHours, task.AssigneeID, task.CreatedBy, task.Position,
		task.Tags, task.Metadata,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	query := taskSelect + ` WHERE id = $1`
	t := &Task{}
	err := r.pool.QueryRow(ctx, query, id).Scan(taskFields(t)...)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

const taskSelect = `
	SELECT id, project_id, organization_id, title, description, status, priority,
	       due_date, estimated_hours, actual_hours, assignee_id, created_by,
	       position, tags, metadata, created_at, updated_at
	FROM tasks
`

func taskFields(t *Task) []interface{} {
	return []interface{}{
		&t.ID, &t.ProjectID, &t.OrganizationID, &t.Title, &t.Description,
		&t.Status, &t.Priority, &t.DueDate, &t.EstimatedHours, &t.ActualHours,
		&t.AssigneeID, &t.CreatedBy, &t.Position, &t.Tags, &t.Metadata,
		&t.CreatedAt, &t.UpdatedAt,
	}
}

func (r *pgTaskRepository) FindByProject(ctx context.Context, projectID string, filters *TaskFilters) ([]*Task, error) {
	sql := taskSelect + ` WHERE project_id = $1`
	args := []interface{}{projectID}
	argNum := 1

	if filters != nil {
		if len(filters.Status) > 0 {
			argNum++
			sql += fmt.Sprintf(" AND status = ANY($%d)", argNum)
			args = append(args, filters.Status)
		}
		if len(filters.Priority) > 0 {
			argNum++
			sql += fmt.Sprintf(" AND priority = ANY($%d)", argNum)
			args = append(args, filters.Priority)
		}
		if filters.AssigneeID != nil {
			argNum++
			sql += fmt.Sprintf(" AND assignee_id = $%d", argNum)
			args = append(args, *filters.AssigneeID)
		}
		if len(filters.Tags) > 0 {
			argNum++
			sql += fmt.Sprintf(" AND tags @> $%d", argNum)
			args = append(args, filters.Tags)
		}
		if filters.Search != "" {
			argNum++
			sql += fmt.Sprintf(" AND (LOWER(title) LIKE LOWER($%d) OR LOWER(COALESCE(description, '')) LIKE LOWER($%d))", argNum, argNum)
			args = append(args, "%"+filters.Search+"%")
		}
	}

	sql += " ORDER BY position, created_at"

	if filters != nil && filters.Limit > 0 {
		argNum++
		sql += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
	}
	if filters != nil && filters.Offset > 0 {
		argNum++
		sql += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *pgTaskRepository) Search(ctx context.Context, orgID, query string, tags []string, limit, offset int) ([]*Task, error) {
	sql := taskSelect + ` WHERE organization_id = $1`
	args := []interface{}{orgID}
	argNum := 1

	if query != "" {
		argNum++
		sql += fmt.Sprintf(" AND (LOWER(title) LIKE LOWER($%d) OR LOWER(COALESCE(description, '')) LIKE LOWER($%d))", argNum, argNum)
		args = append(args, "%"+query+"%")
	}
	if len(tags) > 0 {
		argNum++
		sql += fmt.Sprintf(" AND tags @> $%d", argNum)
		args = append(args, tags)
	}

	sql += " ORDER BY created_at DESC"
	if limit > 0 {
		argNum++
		sql += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, limit)
	}
	if offset > 0 {
		argNum++
		sql += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows pgx.Rows) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(taskFields(t)...); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update never writes organization_id or project_id; the denormalized pair is
// fixed at creation and re-derivable only through the parent project.
func (r *pgTaskRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks SET
			title = $2, description = $3, status = $4, priority = $5,
			due_date = $6, estimated_hours = $7, actual_hours = $8,
			tags = $9, metadata = $10, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		task.DueDate, task.EstimatedHours, task.ActualHours, task.Tags, task.Metadata,
	)
	return err
}

func (r *pgTaskRepository) UpdatePosition(ctx context.Context, id string, position int) error {
	query := `UPDATE tasks SET position = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, position)
	return err
}

func (r *pgTaskRepository) UpdateAssignee(ctx context.Context, id string, assigneeID *string) error {
	query := `UPDATE tasks SET assignee_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, assigneeID)
	return err
}

func (r *pgTaskRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tasks WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
