// Package agents manages AI agent definitions. Response generation runs in
// external tooling; conversations only reference an agent and an active flag.
package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zapdesk_backend/platform/apperr"
)

// Agent is an AI agent definition scoped to a workspace.
type Agent struct {
	ID           uuid.UUID `json:"id"`
	WorkspaceID  uuid.UUID `json:"workspaceId"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"systemPrompt"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const agentColumns = `id, workspace_id, name, model, system_prompt, is_active, created_at, updated_at`

// Repo persists agents with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo creates a new agents repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.WorkspaceID, &a.Name, &a.Model, &a.SystemPrompt,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Create inserts an agent definition.
func (r *Repo) Create(ctx context.Context, workspaceID uuid.UUID, name, model, systemPrompt string) (Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx,
		`INSERT INTO ai_agents (workspace_id, name, model, system_prompt)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+agentColumns,
		workspaceID, name, model, systemPrompt,
	))
	if err != nil {
		return Agent{}, fmt.Errorf("insert agent: %w", err)
	}
	return a, nil
}

// GetByID retrieves one agent within the workspace.
func (r *Repo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM ai_agents WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, apperr.NotFound("agent not found")
		}
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// List retrieves a workspace's agents.
func (r *Repo) List(ctx context.Context, workspaceID uuid.UUID) ([]Agent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM ai_agents
		 WHERE workspace_id = $1 ORDER BY created_at ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	agents := make([]Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// Update changes an agent definition.
func (r *Repo) Update(ctx context.Context, workspaceID, id uuid.UUID, name, model, systemPrompt string, isActive bool) (Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx,
		`UPDATE ai_agents
		 SET name = $3, model = $4, system_prompt = $5, is_active = $6, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING `+agentColumns,
		id, workspaceID, name, model, systemPrompt, isActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, apperr.NotFound("agent not found")
		}
		return Agent{}, fmt.Errorf("update agent: %w", err)
	}
	return a, nil
}

// Delete removes an agent. Conversations referencing it fall back to no
// active agent via the FK's ON DELETE SET NULL.
func (r *Repo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM ai_agents WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("agent not found")
	}
	return nil
}
