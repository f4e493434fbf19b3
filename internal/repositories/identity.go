// Package repositories implements persistence for identity records.
//
// Two [models.IdentityStore] implementations are provided:
//   - [IdentityRepository] : SQLite-backed, used by the running dashboard
//   - [MemoryIdentityStore] : process-local map, used by tests and --memory mode
//
// Token and profile blobs are stored as JSON columns; the upsert is a single
// INSERT ... ON CONFLICT statement so a race between two logins for the same id
// resolves last-writer-wins with no partial field overwrite.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gangwalrachit/SpotiSpy/internal/models"
)

// IdentityRepository implements [models.IdentityStore] backed by SQLite.
type IdentityRepository struct {
	db *sql.DB
}

// NewIdentityRepository creates a new [IdentityRepository] with the given database connection
func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Upsert inserts or replaces the record for identity.ID in a single statement.
func (r *IdentityRepository) Upsert(ctx context.Context, identity *models.Identity) error {
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tokenBlob, err := json.Marshal(identity.TokenInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal token info: %w", err)
	}

	profileBlob, err := json.Marshal(identity.ProfileInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal profile info: %w", err)
	}

	now := time.Now().UTC()
	identity.UpdatedAt = now

	query := `
		INSERT INTO identities (id, token_info, profile_info, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token_info = excluded.token_info,
			profile_info = excluded.profile_info,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, identity.ID, tokenBlob, profileBlob, identity.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to upsert identity: %w", err)
	}

	return nil
}

// Get retrieves an identity by id, returning (nil, nil) when no record exists.
func (r *IdentityRepository) Get(ctx context.Context, id string) (*models.Identity, error) {
	query := `
		SELECT id, token_info, profile_info, created_at, updated_at
		FROM identities
		WHERE id = ?
	`

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query identity: %w", err)
	}

	return identity, nil
}

// List retrieves all identities ordered by creation time.
func (r *IdentityRepository) List(ctx context.Context) ([]*models.Identity, error) {
	query := `
		SELECT id, token_info, profile_info, created_at, updated_at
		FROM identities
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer rows.Close()

	var identities []*models.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return identities, nil
}

// scanner covers both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (*models.Identity, error) {
	var (
		id          string
		tokenBlob   []byte
		profileBlob []byte
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := row.Scan(&id, &tokenBlob, &profileBlob, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	identity := &models.Identity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt}

	if err := json.Unmarshal(tokenBlob, &identity.TokenInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token info: %w", err)
	}
	if err := json.Unmarshal(profileBlob, &identity.ProfileInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile info: %w", err)
	}

	return identity, nil
}
