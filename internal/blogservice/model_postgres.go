package blogservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sushihentaime/bloglist/internal/common"
)

// PostgresBlogStore keeps blogs in the "blogs" table.
type PostgresBlogStore struct {
	db *sql.DB
}

func NewPostgresBlogStore(db *sql.DB) *PostgresBlogStore {
	return &PostgresBlogStore{db: db}
}

// ForeignKeyError is a helper function to check if the error is a foreign key constraint error.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

func parseUUID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", common.ErrInvalidID
	}

	return parsed.String(), nil
}

// nullableUser maps an empty owner to SQL NULL.
func nullableUser(userID string) (any, error) {
	if userID == "" {
		return nil, nil
	}

	return parseUUID(userID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (*Blog, error) {
	var (
		b    Blog
		user sql.NullString
	)

	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.URL, &b.Likes, &user)
	if err != nil {
		return nil, err
	}

	b.UserID = user.String

	return &b, nil
}

func (m *PostgresBlogStore) FindAll(ctx context.Context) ([]Blog, error) {
	query := `
		SELECT id, title, author, url, likes, user_id
		FROM blogs
		ORDER BY seq`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

func (m *PostgresBlogStore) FindByID(ctx context.Context, id string) (*Blog, error) {
	id, err := parseUUID(id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, title, author, url, likes, user_id
		FROM blogs
		WHERE id = $1`

	b, err := scanBlog(m.db.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return b, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBlog(ctx context.Context, db execer, b *Blog) error {
	query := `
		INSERT INTO blogs (id, title, author, url, likes, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	user, err := nullableUser(b.UserID)
	if err != nil {
		return err
	}

	id := uuid.NewString()

	_, err = db.ExecContext(ctx, query, id, b.Title, b.Author, b.URL, b.Likes, user)
	if err != nil {
		switch {
		case ForeignKeyError(err, "blogs_user_id_fkey"):
			return ErrUserNotFound
		default:
			return err
		}
	}

	b.ID = id

	return nil
}

func (m *PostgresBlogStore) Insert(ctx context.Context, b *Blog) error {
	return insertBlog(ctx, m.db, b)
}

// InsertMany inserts every blog in one transaction.
func (m *PostgresBlogStore) InsertMany(ctx context.Context, blogs []Blog) ([]Blog, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	inserted := make([]Blog, len(blogs))
	copy(inserted, blogs)

	for i := range inserted {
		err = insertBlog(ctx, tx, &inserted[i])
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return inserted, nil
}

func (m *PostgresBlogStore) UpdateByID(ctx context.Context, b *Blog) error {
	id, err := parseUUID(b.ID)
	if err != nil {
		return err
	}

	query := `
		UPDATE blogs
		SET title = $1, author = $2, url = $3, likes = $4
		WHERE id = $5
		RETURNING id, title, author, url, likes, user_id`

	updated, err := scanBlog(m.db.QueryRowContext(ctx, query, b.Title, b.Author, b.URL, b.Likes, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrRecordNotFound
		default:
			return err
		}
	}

	*b = *updated

	return nil
}

func (m *PostgresBlogStore) DeleteByID(ctx context.Context, id string) error {
	id, err := parseUUID(id)
	if err != nil {
		return err
	}

	query := `
		DELETE FROM blogs
		WHERE id = $1`

	_, err = m.db.ExecContext(ctx, query, id)
	return err
}
