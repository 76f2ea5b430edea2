package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"zapdesk_backend/platform/apperr"
)

const uniqueViolationCode = "23505"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new workspaces repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// Create inserts a workspace.
func (r *Repo) Create(ctx context.Context, name, slug string) (Workspace, error) {
	var w Workspace
	err := r.pool.QueryRow(ctx,
		`INSERT INTO workspaces (name, slug) VALUES ($1, $2)
		 RETURNING id, name, slug, created_at, updated_at`,
		name, slug,
	).Scan(&w.ID, &w.Name, &w.Slug, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Workspace{}, apperr.Conflict("workspace slug already in use")
		}
		return Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	return w, nil
}

// GetByID retrieves one workspace.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Workspace, error) {
	var w Workspace
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM workspaces WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.Slug, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Workspace{}, apperr.NotFound("workspace not found")
		}
		return Workspace{}, fmt.Errorf("get workspace: %w", err)
	}
	return w, nil
}

// ListForUser retrieves the workspaces a user actively belongs to.
func (r *Repo) ListForUser(ctx context.Context, userID uuid.UUID) ([]Workspace, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT w.id, w.name, w.slug, w.created_at, w.updated_at
		 FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 WHERE m.user_id = $1 AND m.is_active
		 ORDER BY w.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list workspaces for user: %w", err)
	}
	defer rows.Close()

	var result []Workspace
	for rows.Next() {
		var w Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// AddMember inserts a membership row.
func (r *Repo) AddMember(ctx context.Context, workspaceID, userID uuid.UUID, role string) (Member, error) {
	var m Member
	err := r.pool.QueryRow(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, workspace_id, user_id, role, is_active, created_at`,
		workspaceID, userID, role,
	).Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Member{}, apperr.Conflict("user is already a member of this workspace")
		}
		return Member{}, fmt.Errorf("add workspace member: %w", err)
	}
	return m, nil
}

// ListMembers retrieves a workspace's members with user identity joined in.
func (r *Repo) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.workspace_id, m.user_id, u.name, u.email, m.role, m.is_active, m.created_at
		 FROM workspace_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.workspace_id = $1
		 ORDER BY m.created_at ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list workspace members: %w", err)
	}
	defer rows.Close()

	var result []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.UserName, &m.UserEmail, &m.Role, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace member: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// SetMemberActive toggles a membership.
func (r *Repo) SetMemberActive(ctx context.Context, workspaceID, userID uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE workspace_members SET is_active = $3 WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID, active)
	if err != nil {
		return fmt.Errorf("set member active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("member not found")
	}
	return nil
}

// SetMemberRole changes a member's role.
func (r *Repo) SetMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE workspace_members SET role = $3 WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID, role)
	if err != nil {
		return fmt.Errorf("set member role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("member not found")
	}
	return nil
}

// IsActiveMember checks an active membership.
func (r *Repo) IsActiveMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM workspace_members
			WHERE workspace_id = $1 AND user_id = $2 AND is_active)`,
		workspaceID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check workspace membership: %w", err)
	}
	return exists, nil
}

// MemberRole returns the member's role.
func (r *Repo) MemberRole(ctx context.Context, workspaceID, userID uuid.UUID) (string, error) {
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2 AND is_active`,
		workspaceID, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("member not found")
		}
		return "", fmt.Errorf("get member role: %w", err)
	}
	return role, nil
}

// CreateQueue inserts a routing queue.
func (r *Repo) CreateQueue(ctx context.Context, workspaceID uuid.UUID, name, color string) (Queue, error) {
	var q Queue
	err := r.pool.QueryRow(ctx,
		`INSERT INTO queues (workspace_id, name, color) VALUES ($1, $2, $3)
		 RETURNING id, workspace_id, name, color, created_at`,
		workspaceID, name, color,
	).Scan(&q.ID, &q.WorkspaceID, &q.Name, &q.Color, &q.CreatedAt)
	if err != nil {
		return Queue{}, fmt.Errorf("insert queue: %w", err)
	}
	return q, nil
}

// ListQueues retrieves a workspace's queues.
func (r *Repo) ListQueues(ctx context.Context, workspaceID uuid.UUID) ([]Queue, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, name, color, created_at
		 FROM queues WHERE workspace_id = $1 ORDER BY created_at ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	var result []Queue
	for rows.Next() {
		var q Queue
		if err := rows.Scan(&q.ID, &q.WorkspaceID, &q.Name, &q.Color, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan queue: %w", err)
		}
		result = append(result, q)
	}
	return result, rows.Err()
}

// DeleteQueue removes a queue; connections referencing it fall back to NULL.
func (r *Repo) DeleteQueue(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM queues WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete queue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("queue not found")
	}
	return nil
}
