package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-letters/pkg/letters"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements letters.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) letters.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) letters.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("letter already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) Create(ctx context.Context, letter *letters.Letter) error {
	query := `
		INSERT INTO letter (
			id, owner_id, title, content, open_date,
			image_key, category, mood, detailed_mood, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		letter.ID, letter.OwnerID, letter.Title, letter.Content, letter.OpenDate,
		letter.ImageKey, letter.Category, letter.Mood, letter.DetailedMood, letter.CreatedAt)

	if err != nil {
		return handlePostgresError("create letter", err)
	}

	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID, ownerID int64) (*letters.Letter, error) {
	query := `
        SELECT id, owner_id, title, content, open_date,
               image_key, category, mood, detailed_mood, created_at
        FROM letter WHERE id = $1 AND owner_id = $2`

	var letter letters.Letter
	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&letter.ID, &letter.OwnerID, &letter.Title, &letter.Content, &letter.OpenDate,
		&letter.ImageKey, &letter.Category, &letter.Mood, &letter.DetailedMood, &letter.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, letters.ErrLetterNotFound
		}
		return nil, handlePostgresError("get letter", err)
	}

	return &letter, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]*letters.Letter, error) {
	query := `
        SELECT id, owner_id, title, content, open_date,
               image_key, category, mood, detailed_mood, created_at
        FROM letter WHERE owner_id = $1
        ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, handlePostgresError("list letters", err)
	}
	defer rows.Close()

	var list []*letters.Letter
	for rows.Next() {
		var letter letters.Letter
		if err := rows.Scan(
			&letter.ID, &letter.OwnerID, &letter.Title, &letter.Content, &letter.OpenDate,
			&letter.ImageKey, &letter.Category, &letter.Mood, &letter.DetailedMood, &letter.CreatedAt); err != nil {
			return nil, handlePostgresError("list letters", err)
		}
		list = append(list, &letter)
	}

	return list, rows.Err()
}

func (r *Repository) UpdateCategory(ctx context.Context, id uuid.UUID, ownerID int64, category letters.Category) error {
	return r.updateScoped(ctx, "update category",
		`UPDATE letter SET category = $3 WHERE id = $1 AND owner_id = $2`,
		id, ownerID, category)
}

func (r *Repository) SetImageKey(ctx context.Context, id uuid.UUID, ownerID int64, objectKey string) error {
	return r.updateScoped(ctx, "set image key",
		`UPDATE letter SET image_key = $3 WHERE id = $1 AND owner_id = $2`,
		id, ownerID, objectKey)
}

func (r *Repository) SetMood(ctx context.Context, id uuid.UUID, ownerID int64, mood, detailedMood string) error {
	return r.updateScoped(ctx, "set mood",
		`UPDATE letter SET mood = $3, detailed_mood = $4 WHERE id = $1 AND owner_id = $2`,
		id, ownerID, mood, detailedMood)
}

func (r *Repository) updateScoped(ctx context.Context, operation, query string, args ...interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return handlePostgresError(operation, err)
	}
	if tag.RowsAffected() == 0 {
		return letters.ErrLetterNotFound
	}
	return nil
}

// Delete removes the letter only when the owner predicate matches. The
// predicate lives in the statement itself so concurrent deletes for the same
// id cannot both succeed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, ownerID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM letter WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, handlePostgresError("delete letter", err)
	}

	return tag.RowsAffected() > 0, nil
}
