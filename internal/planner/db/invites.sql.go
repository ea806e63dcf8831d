package db

import "context"

const createInvite = `
INSERT INTO "InviteTokens" (token, room_id, created_by, expires_at, max_uses, uses, active, created_at)
VALUES (?, ?, ?, ?, ?, 0, 1, ?)
`

// CreateInviteParams は CreateInvite の引数。
type CreateInviteParams struct {
	Token     string
	RoomID    string
	CreatedBy string
	ExpiresAt int64
	MaxUses   int64
	Now       int64
}

// CreateInvite は招待トークンを作成する。
func (q *Queries) CreateInvite(ctx context.Context, arg CreateInviteParams) error {
	_, err := q.db.ExecContext(ctx, createInvite,
		arg.Token, arg.RoomID, arg.CreatedBy, arg.ExpiresAt, arg.MaxUses, arg.Now,
	)
	return err
}

const getInvite = `
SELECT token, room_id, created_by, expires_at, max_uses, uses, active, created_at
FROM "InviteTokens"
WHERE token = ?
`

// GetInvite はトークンで招待を取得する。
func (q *Queries) GetInvite(ctx context.Context, token string) (InviteToken, error) {
	var i InviteToken
	err := q.db.QueryRowContext(ctx, getInvite, token).Scan(
		&i.Token, &i.RoomID, &i.CreatedBy, &i.ExpiresAt, &i.MaxUses, &i.Uses, &i.Active, &i.CreatedAt,
	)
	return i, err
}

// consumeInvite は判定と加算を1文で行う。同時に実行されても uses は max_uses を超えない。
const consumeInvite = `
UPDATE "InviteTokens"
SET uses = uses + 1
WHERE token = ? AND active = 1 AND expires_at > ? AND uses < max_uses
`

// ConsumeInvite は招待トークンの使用回数を1つ進める。
// 有効・期限内・上限未満のいずれかを満たさない場合は false を返す。
func (q *Queries) ConsumeInvite(ctx context.Context, token string, now int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, consumeInvite, token, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const deactivateInvite = `
UPDATE "InviteTokens" SET active = 0 WHERE token = ? AND room_id = ?
`

// DeactivateInvite はルームの招待トークンを無効化する。該当が無ければ false を返す。
func (q *Queries) DeactivateInvite(ctx context.Context, token, roomID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, deactivateInvite, token, roomID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
