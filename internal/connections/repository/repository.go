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

const connectionColumns = `id, workspace_id, name, provider, instance_id, status, phone_number, default_queue_id, created_at, updated_at`

// getByInstanceQuery is not workspace scoped: webhooks identify the tenant
// through the (provider, instance_id) pair.
const getByInstanceQuery = `SELECT ` + connectionColumns + `
FROM connections WHERE provider = $1 AND instance_id = $2`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new connections repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func scanConnection(row pgx.Row) (Connection, error) {
	var c Connection
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Provider, &c.InstanceID,
		&c.Status, &c.PhoneNumber, &c.DefaultQueueID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a connection. Instance collisions map to Conflict.
func (r *Repo) Create(ctx context.Context, c Connection) (Connection, error) {
	created, err := scanConnection(r.pool.QueryRow(ctx,
		`INSERT INTO connections (workspace_id, name, provider, instance_id, default_queue_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+connectionColumns,
		c.WorkspaceID, c.Name, c.Provider, c.InstanceID, c.DefaultQueueID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Connection{}, apperr.Conflict("this gateway instance is already connected")
		}
		return Connection{}, fmt.Errorf("insert connection: %w", err)
	}
	return created, nil
}

// GetByID retrieves one connection within the workspace.
func (r *Repo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Connection, error) {
	c, err := scanConnection(r.pool.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Connection{}, apperr.NotFound("connection not found")
		}
		return Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return c, nil
}

// GetByInstance retrieves the connection serving a gateway instance.
func (r *Repo) GetByInstance(ctx context.Context, provider, instanceID string) (Connection, error) {
	c, err := scanConnection(r.pool.QueryRow(ctx, getByInstanceQuery, provider, instanceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Connection{}, apperr.NotFound("connection not found")
		}
		return Connection{}, fmt.Errorf("get connection by instance: %w", err)
	}
	return c, nil
}

// List retrieves a workspace's connections.
func (r *Repo) List(ctx context.Context, workspaceID uuid.UUID) ([]Connection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE workspace_id = $1 ORDER BY created_at ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	connections := make([]Connection, 0)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		connections = append(connections, c)
	}
	return connections, rows.Err()
}

// Update changes a connection's name and default queue.
func (r *Repo) Update(ctx context.Context, workspaceID, id uuid.UUID, name string, defaultQueueID *uuid.UUID) (Connection, error) {
	c, err := scanConnection(r.pool.QueryRow(ctx,
		`UPDATE connections SET name = $3, default_queue_id = $4, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING `+connectionColumns,
		id, workspaceID, name, defaultQueueID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Connection{}, apperr.NotFound("connection not found")
		}
		return Connection{}, fmt.Errorf("update connection: %w", err)
	}
	return c, nil
}

// SetStatus records the gateway session state and the paired phone number.
func (r *Repo) SetStatus(ctx context.Context, workspaceID, id uuid.UUID, status string, phoneNumber *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE connections
		 SET status = $3, phone_number = COALESCE($4, phone_number), updated_at = now()
		 WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID, status, phoneNumber)
	if err != nil {
		return fmt.Errorf("set connection status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("connection not found")
	}
	return nil
}

// Delete removes a connection.
func (r *Repo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM connections WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("connection not found")
	}
	return nil
}
