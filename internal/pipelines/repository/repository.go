package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"zapdesk_backend/platform/apperr"
)

const (
	pipelineNotFoundMessage = "pipeline not found"
	cardNotFoundMessage     = "card not found"

	// Postgres unique_violation, raised by the partial open-card index when
	// the advisory lock path is bypassed (e.g., a direct insert).
	uniqueViolationCode = "23505"
)

const cardColumns = `
	id, workspace_id, pipeline_id, column_id, conversation_id, contact_id,
	title, status, value, tags, created_at, updated_at`

// firstColumnQuery resolves the entry stage deterministically even when
// positions collide.
const firstColumnQuery = `
	SELECT id, pipeline_id, name, position, created_at
	FROM pipeline_columns
	WHERE pipeline_id = $1
	ORDER BY position ASC, created_at ASC
	LIMIT 1`

const findOpenCardQuery = `
	SELECT` + cardColumns + `
	FROM pipeline_cards
	WHERE workspace_id = $1 AND contact_id = $2 AND pipeline_id = $3 AND status = 'aberto'`

// ErrDuplicateOpenCard reports that the contact already has an open deal in
// the pipeline.
var ErrDuplicateOpenCard = apperr.Conflict("contact already has an open card in this pipeline").WithCode("duplicate_open_card")

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new pipelines repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// CreatePipeline inserts a pipeline and its ordered columns in one transaction.
func (r *Repo) CreatePipeline(ctx context.Context, workspaceID uuid.UUID, name string, columns []string) (Pipeline, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Pipeline{}, fmt.Errorf("begin create pipeline: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Pipeline
	err = tx.QueryRow(ctx,
		`INSERT INTO pipelines (workspace_id, name) VALUES ($1, $2)
		 RETURNING id, workspace_id, name, created_at`,
		workspaceID, name,
	).Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.CreatedAt)
	if err != nil {
		return Pipeline{}, fmt.Errorf("insert pipeline: %w", err)
	}

	for i, colName := range columns {
		var col Column
		err = tx.QueryRow(ctx,
			`INSERT INTO pipeline_columns (pipeline_id, name, position) VALUES ($1, $2, $3)
			 RETURNING id, pipeline_id, name, position, created_at`,
			p.ID, colName, i,
		).Scan(&col.ID, &col.PipelineID, &col.Name, &col.Position, &col.CreatedAt)
		if err != nil {
			return Pipeline{}, fmt.Errorf("insert pipeline column: %w", err)
		}
		p.Columns = append(p.Columns, col)
	}

	if err := tx.Commit(ctx); err != nil {
		return Pipeline{}, fmt.Errorf("commit create pipeline: %w", err)
	}
	return p, nil
}

// GetPipeline retrieves a pipeline with its ordered columns.
func (r *Repo) GetPipeline(ctx context.Context, workspaceID, id uuid.UUID) (Pipeline, error) {
	var p Pipeline
	err := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, name, created_at FROM pipelines WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	).Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pipeline{}, apperr.NotFound(pipelineNotFoundMessage)
		}
		return Pipeline{}, fmt.Errorf("get pipeline: %w", err)
	}

	columns, err := r.listColumns(ctx, p.ID)
	if err != nil {
		return Pipeline{}, err
	}
	p.Columns = columns
	return p, nil
}

// ListPipelines retrieves the workspace's pipelines, oldest first.
func (r *Repo) ListPipelines(ctx context.Context, workspaceID uuid.UUID) ([]Pipeline, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, name, created_at FROM pipelines WHERE workspace_id = $1 ORDER BY created_at ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	var result []Pipeline
	for rows.Next() {
		var p Pipeline
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// FirstPipeline returns the workspace's oldest pipeline.
func (r *Repo) FirstPipeline(ctx context.Context, workspaceID uuid.UUID) (Pipeline, error) {
	var p Pipeline
	err := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, name, created_at FROM pipelines
		 WHERE workspace_id = $1 ORDER BY created_at ASC LIMIT 1`,
		workspaceID,
	).Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pipeline{}, apperr.NotFound("workspace has no pipelines")
		}
		return Pipeline{}, fmt.Errorf("first pipeline: %w", err)
	}
	return p, nil
}

// DeletePipeline removes a pipeline; columns and cards cascade.
func (r *Repo) DeletePipeline(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM pipelines WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(pipelineNotFoundMessage)
	}
	return nil
}

func (r *Repo) listColumns(ctx context.Context, pipelineID uuid.UUID) ([]Column, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, pipeline_id, name, position, created_at
		 FROM pipeline_columns WHERE pipeline_id = $1
		 ORDER BY position ASC, created_at ASC`,
		pipelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pipeline columns: %w", err)
	}
	defer rows.Close()

	var result []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.ID, &c.PipelineID, &c.Name, &c.Position, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline column: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// FirstColumn resolves the pipeline's entry stage.
func (r *Repo) FirstColumn(ctx context.Context, pipelineID uuid.UUID) (Column, error) {
	var c Column
	err := r.pool.QueryRow(ctx, firstColumnQuery, pipelineID).Scan(
		&c.ID, &c.PipelineID, &c.Name, &c.Position, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Column{}, apperr.NotFound("pipeline has no columns")
		}
		return Column{}, fmt.Errorf("first pipeline column: %w", err)
	}
	return c, nil
}

// ColumnBelongsToPipeline checks a move target is on the same board.
func (r *Repo) ColumnBelongsToPipeline(ctx context.Context, pipelineID, columnID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pipeline_columns WHERE id = $1 AND pipeline_id = $2)`,
		columnID, pipelineID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check column membership: %w", err)
	}
	return exists, nil
}

// GetCardByConversation finds the card already linked to a conversation.
func (r *Repo) GetCardByConversation(ctx context.Context, workspaceID, conversationID uuid.UUID) (Card, error) {
	var c Card
	err := r.pool.QueryRow(ctx,
		`SELECT`+cardColumns+` FROM pipeline_cards WHERE workspace_id = $1 AND conversation_id = $2`,
		workspaceID, conversationID,
	).Scan(cardFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, apperr.NotFound(cardNotFoundMessage)
		}
		return Card{}, fmt.Errorf("get card by conversation: %w", err)
	}
	return c, nil
}

// FindOpenCard finds the contact's open deal in a pipeline, if any.
func (r *Repo) FindOpenCard(ctx context.Context, workspaceID, contactID, pipelineID uuid.UUID) (Card, error) {
	var c Card
	err := r.pool.QueryRow(ctx, findOpenCardQuery, workspaceID, contactID, pipelineID).Scan(cardFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, apperr.NotFound(cardNotFoundMessage)
		}
		return Card{}, fmt.Errorf("find open card: %w", err)
	}
	return c, nil
}

// InsertCardLocked serializes concurrent check-then-insert on the same
// (contact, pipeline) pair with a transaction advisory lock. The partial
// unique index remains the backstop and maps to the same conflict error.
func (r *Repo) InsertCardLocked(ctx context.Context, card NewCard) (Card, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Card{}, fmt.Errorf("begin insert card: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, openCardLockKey(card.ContactID, card.PipelineID)); err != nil {
		return Card{}, fmt.Errorf("acquire card lock: %w", err)
	}

	// Re-check under the lock: a concurrent transaction may have inserted
	// between the caller's check and our lock acquisition.
	if card.Status == CardStatusOpen {
		var existing uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM pipeline_cards
			 WHERE workspace_id = $1 AND contact_id = $2 AND pipeline_id = $3 AND status = 'aberto'`,
			card.WorkspaceID, card.ContactID, card.PipelineID,
		).Scan(&existing)
		if err == nil {
			return Card{}, ErrDuplicateOpenCard
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Card{}, fmt.Errorf("recheck open card: %w", err)
		}
	}

	tags := card.Tags
	if tags == nil {
		tags = []string{}
	}

	var c Card
	err = tx.QueryRow(ctx,
		`INSERT INTO pipeline_cards
			(workspace_id, pipeline_id, column_id, conversation_id, contact_id, title, status, value, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING`+cardColumns,
		card.WorkspaceID, card.PipelineID, card.ColumnID, card.ConversationID,
		card.ContactID, card.Title, card.Status, card.Value, tags,
	).Scan(cardFields(&c)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Card{}, ErrDuplicateOpenCard
		}
		return Card{}, fmt.Errorf("insert card: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Card{}, fmt.Errorf("commit insert card: %w", err)
	}
	return c, nil
}

// TouchCard bumps updated_at, used when an existing card absorbs new activity.
func (r *Repo) TouchCard(ctx context.Context, workspaceID, id uuid.UUID) (Card, error) {
	var c Card
	err := r.pool.QueryRow(ctx,
		`UPDATE pipeline_cards SET updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING`+cardColumns,
		id, workspaceID,
	).Scan(cardFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, apperr.NotFound(cardNotFoundMessage)
		}
		return Card{}, fmt.Errorf("touch card: %w", err)
	}
	return c, nil
}

// ListCards retrieves a pipeline's cards for the board view.
func (r *Repo) ListCards(ctx context.Context, workspaceID, pipelineID uuid.UUID) ([]Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+cardColumns+`
		 FROM pipeline_cards
		 WHERE workspace_id = $1 AND pipeline_id = $2
		 ORDER BY created_at ASC`,
		workspaceID, pipelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var result []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(cardFields(&c)...); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetCard retrieves one card.
func (r *Repo) GetCard(ctx context.Context, workspaceID, id uuid.UUID) (Card, error) {
	var c Card
	err := r.pool.QueryRow(ctx,
		`SELECT`+cardColumns+` FROM pipeline_cards WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	).Scan(cardFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, apperr.NotFound(cardNotFoundMessage)
		}
		return Card{}, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// MoveCard drags a card to another column.
func (r *Repo) MoveCard(ctx context.Context, workspaceID, id, columnID uuid.UUID) (Card, error) {
	var c Card
	err := r.pool.QueryRow(ctx,
		`UPDATE pipeline_cards SET column_id = $3, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING`+cardColumns,
		id, workspaceID, columnID,
	).Scan(cardFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, apperr.NotFound(cardNotFoundMessage)
		}
		return Card{}, fmt.Errorf("move card: %w", err)
	}
	return c, nil
}

// SetCardStatus closes or reopens a deal. Reopening can collide with the
// one-open-card index, mapped to the duplicate conflict.
func (r *Repo) SetCardStatus(ctx context.Context, workspaceID, id uuid.UUID, status string) (Card, error) {
	var c Card
	err := r.pool.QueryRow(ctx,
		`UPDATE pipeline_cards SET status = $3, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING`+cardColumns,
		id, workspaceID, status,
	).Scan(cardFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, apperr.NotFound(cardNotFoundMessage)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Card{}, ErrDuplicateOpenCard
		}
		return Card{}, fmt.Errorf("set card status: %w", err)
	}
	return c, nil
}

// UpdateCard applies a full card edit.
func (r *Repo) UpdateCard(ctx context.Context, workspaceID, id uuid.UUID, update CardUpdate) (Card, error) {
	tags := update.Tags
	if tags == nil {
		tags = []string{}
	}

	var c Card
	err := r.pool.QueryRow(ctx,
		`UPDATE pipeline_cards
		 SET title = $3, value = $4, tags = $5, status = $6, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING`+cardColumns,
		id, workspaceID, update.Title, update.Value, tags, update.Status,
	).Scan(cardFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, apperr.NotFound(cardNotFoundMessage)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Card{}, ErrDuplicateOpenCard
		}
		return Card{}, fmt.Errorf("update card: %w", err)
	}
	return c, nil
}

// DeleteCard removes a card.
func (r *Repo) DeleteCard(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM pipeline_cards WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(cardNotFoundMessage)
	}
	return nil
}

func cardFields(c *Card) []interface{} {
	return []interface{}{
		&c.ID, &c.WorkspaceID, &c.PipelineID, &c.ColumnID, &c.ConversationID,
		&c.ContactID, &c.Title, &c.Status, &c.Value, &c.Tags, &c.CreatedAt, &c.UpdatedAt,
	}
}

// openCardLockKey derives the advisory lock key for a (contact, pipeline)
// pair. FNV over both UUIDs keeps the key stable across processes.
func openCardLockKey(contactID, pipelineID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(contactID[:])
	h.Write(pipelineID[:])
	return int64(h.Sum64())
}
