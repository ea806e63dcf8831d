package db

import "context"

const upsertUser = `
INSERT INTO "User" (id, email, name, picture, created_at, last_login_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    email = excluded.email,
    name = excluded.name,
    picture = excluded.picture,
    last_login_at = excluded.last_login_at
`

// UpsertUserParams は UpsertUser の引数。
type UpsertUserParams struct {
	ID      string
	Email   string
	Name    string
	Picture string
	Now     int64
}

// UpsertUser はログインしたユーザーを作成、または最新のプロフィールで更新する。
func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) error {
	_, err := q.db.ExecContext(ctx, upsertUser, arg.ID, arg.Email, arg.Name, arg.Picture, arg.Now, arg.Now)
	return err
}

const getUserByID = `
SELECT id, email, name, picture, created_at, last_login_at
FROM "User"
WHERE id = ?
`

// GetUserByID はIDでユーザーを取得する。
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByID, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.Picture, &u.CreatedAt, &u.LastLoginAt,
	)
	return u, err
}
