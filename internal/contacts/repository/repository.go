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

const contactColumns = `id, workspace_id, name, phone, avatar_url, created_at, updated_at`

const listContactsQuery = `SELECT ` + contactColumns + `
FROM contacts
WHERE workspace_id = $1
  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR phone LIKE '%' || $2 || '%')
  AND ($3::uuid IS NULL OR id IN (SELECT contact_id FROM contact_tag_links WHERE tag_id = $3))
ORDER BY updated_at DESC
LIMIT $4 OFFSET $5`

// upsertByPhoneQuery keeps an existing non-empty name; webhook payloads often
// carry only the phone number.
const upsertByPhoneQuery = `INSERT INTO contacts (workspace_id, phone, name)
VALUES ($1, $2, $3)
ON CONFLICT (workspace_id, phone) DO UPDATE
SET name = CASE WHEN contacts.name = '' THEN EXCLUDED.name ELSE contacts.name END,
    updated_at = now()
RETURNING ` + contactColumns

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new contacts repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.Workspace, &c.Name, &c.Phone, &c.AvatarURL, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a contact. Phone collisions map to Conflict.
func (r *Repo) Create(ctx context.Context, workspaceID uuid.UUID, name, phone string, avatarURL *string) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx,
		`INSERT INTO contacts (workspace_id, name, phone, avatar_url)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+contactColumns,
		workspaceID, name, phone, avatarURL,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Contact{}, apperr.Conflict("contact with this phone already exists")
		}
		return Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// GetByID retrieves one contact within the workspace.
func (r *Repo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found")
		}
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// GetByPhone retrieves a contact by normalized phone.
func (r *Repo) GetByPhone(ctx context.Context, workspaceID uuid.UUID, phone string) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE workspace_id = $1 AND phone = $2`,
		workspaceID, phone,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found")
		}
		return Contact{}, fmt.Errorf("get contact by phone: %w", err)
	}
	return c, nil
}

// List retrieves contacts with optional search and tag filter.
func (r *Repo) List(ctx context.Context, workspaceID uuid.UUID, filter ListFilter) ([]Contact, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	rows, err := r.pool.Query(ctx, listContactsQuery,
		workspaceID, filter.Search, filter.TagID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Update changes a contact's name and avatar.
func (r *Repo) Update(ctx context.Context, workspaceID, id uuid.UUID, name string, avatarURL *string) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx,
		`UPDATE contacts SET name = $3, avatar_url = $4, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING `+contactColumns,
		id, workspaceID, name, avatarURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found")
		}
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

// UpsertByPhone inserts or refreshes a contact keyed by phone.
func (r *Repo) UpsertByPhone(ctx context.Context, workspaceID uuid.UUID, phone, name string) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, upsertByPhoneQuery, workspaceID, phone, name))
	if err != nil {
		return Contact{}, fmt.Errorf("upsert contact: %w", err)
	}
	return c, nil
}

// Delete removes a contact.
func (r *Repo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM contacts WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contact not found")
	}
	return nil
}

// CreateTag inserts a workspace tag. Name collisions map to Conflict.
func (r *Repo) CreateTag(ctx context.Context, workspaceID uuid.UUID, name, color string) (Tag, error) {
	var t Tag
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_tags (workspace_id, name, color)
		 VALUES ($1, $2, $3)
		 RETURNING id, workspace_id, name, color, created_at`,
		workspaceID, name, color,
	).Scan(&t.ID, &t.Workspace, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Tag{}, apperr.Conflict("tag with this name already exists")
		}
		return Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	return t, nil
}

// ListTags retrieves a workspace's tags.
func (r *Repo) ListTags(ctx context.Context, workspaceID uuid.UUID) ([]Tag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, name, color, created_at
		 FROM contact_tags WHERE workspace_id = $1 ORDER BY name ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Workspace, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeleteTag removes a tag and its links via cascade.
func (r *Repo) DeleteTag(ctx context.Context, workspaceID, tagID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM contact_tags WHERE id = $1 AND workspace_id = $2`, tagID, workspaceID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("tag not found")
	}
	return nil
}

// AttachTag links a tag to a contact. Both must belong to the workspace.
func (r *Repo) AttachTag(ctx context.Context, workspaceID, contactID, tagID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO contact_tag_links (contact_id, tag_id)
		 SELECT c.id, t.id
		 FROM contacts c, contact_tags t
		 WHERE c.id = $2 AND c.workspace_id = $1 AND t.id = $3 AND t.workspace_id = $1
		 ON CONFLICT DO NOTHING`,
		workspaceID, contactID, tagID)
	if err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Zero rows means either an existing link or an unknown contact/tag.
		// Existing links are fine; verify the pair exists before reporting ok.
		var exists bool
		err = r.pool.QueryRow(ctx,
			`SELECT EXISTS (
			   SELECT 1 FROM contacts c, contact_tags t
			   WHERE c.id = $2 AND c.workspace_id = $1 AND t.id = $3 AND t.workspace_id = $1)`,
			workspaceID, contactID, tagID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("attach tag: %w", err)
		}
		if !exists {
			return apperr.NotFound("contact or tag not found")
		}
	}
	return nil
}

// DetachTag removes a tag link.
func (r *Repo) DetachTag(ctx context.Context, workspaceID, contactID, tagID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM contact_tag_links l
		 USING contacts c
		 WHERE l.contact_id = c.id AND c.workspace_id = $1
		   AND l.contact_id = $2 AND l.tag_id = $3`,
		workspaceID, contactID, tagID)
	if err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}
	return nil
}

// TagsForContact retrieves the tags linked to one contact.
func (r *Repo) TagsForContact(ctx context.Context, contactID uuid.UUID) ([]Tag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.workspace_id, t.name, t.color, t.created_at
		 FROM contact_tags t
		 JOIN contact_tag_links l ON l.tag_id = t.id
		 WHERE l.contact_id = $1
		 ORDER BY t.name ASC`,
		contactID)
	if err != nil {
		return nil, fmt.Errorf("tags for contact: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Workspace, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
