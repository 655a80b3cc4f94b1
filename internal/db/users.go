// internal/db/users.go
package db

import (
	"context"
	"database/sql"
	"time"
)

type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     NullString `json:"email"`
	Phone     NullString `json:"phone"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateUserParams struct {
	Name  string
	Email sql.NullString
	Phone sql.NullString
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	const stmt = `INSERT INTO users (name, email, phone) VALUES (?, ?, ?)`
	result, err := q.db.ExecContext(ctx, stmt, arg.Name, arg.Email, arg.Phone)
	if err != nil {
		return User{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	const query = `SELECT id, name, email, phone, created_at, updated_at FROM users WHERE id = ?`
	var u User
	err := q.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
