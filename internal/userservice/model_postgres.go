package userservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sushihentaime/bloglist/internal/common"
)

// PostgresUserStore keeps users in the "users" table; the blogs column is a
// uuid[] so the stored shape matches the document layout.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// uniqueViolation reports whether err is a unique constraint violation on the named constraint.
func uniqueViolation(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" && pqErr.Constraint == name {
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

func (m *PostgresUserStore) FindAll(ctx context.Context) ([]User, error) {
	query := `
		SELECT id, username, name, password_hash, blogs
		FROM users
		ORDER BY seq`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u := User{Blogs: []string{}}
		err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Password.hash, pq.Array(&u.Blogs))
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (m *PostgresUserStore) findOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `
		SELECT id, username, name, password_hash, blogs
		FROM users
		WHERE ` + where

	u := User{Blogs: []string{}}
	err := m.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Name, &u.Password.hash, pq.Array(&u.Blogs))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

func (m *PostgresUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	id, err := parseUUID(id)
	if err != nil {
		return nil, err
	}

	return m.findOne(ctx, "id = $1", id)
}

func (m *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return m.findOne(ctx, "username = $1", username)
}

func (m *PostgresUserStore) Insert(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, username, name, password_hash)
		VALUES ($1, $2, $3, $4)`

	id := uuid.NewString()

	_, err := m.db.ExecContext(ctx, query, id, u.Username, u.Name, u.Password.hash)
	if err != nil {
		switch {
		case uniqueViolation(err, "users_username_key"):
			return ErrDuplicateUsername
		default:
			return err
		}
	}

	u.ID = id

	return nil
}

func (m *PostgresUserStore) AddBlog(ctx context.Context, userID, blogID string) error {
	userID, err := parseUUID(userID)
	if err != nil {
		return err
	}

	blogID, err = parseUUID(blogID)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET blogs = array_append(blogs, $1::uuid)
		WHERE id = $2`

	res, err := m.db.ExecContext(ctx, query, blogID, userID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (m *PostgresUserStore) RemoveBlog(ctx context.Context, blogID string) error {
	blogID, err := parseUUID(blogID)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET blogs = array_remove(blogs, $1::uuid)
		WHERE $1::uuid = ANY(blogs)`

	_, err = m.db.ExecContext(ctx, query, blogID)
	return err
}
