package db

import "context"

const insertActivity = `
INSERT INTO "Activity" (id, room_id, user_id, type, data, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

// InsertActivityParams は InsertActivity の引数。
type InsertActivityParams struct {
	ID        string
	RoomID    string
	UserID    string
	Type      string
	Data      string
	CreatedAt int64
}

// InsertActivity はアクティビティを追記する。
func (q *Queries) InsertActivity(ctx context.Context, arg InsertActivityParams) error {
	_, err := q.db.ExecContext(ctx, insertActivity,
		arg.ID, arg.RoomID, arg.UserID, arg.Type, arg.Data, arg.CreatedAt,
	)
	return err
}

const listActivitiesByRoom = `
SELECT id, room_id, user_id, type, data, created_at
FROM "Activity"
WHERE room_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

// ListActivitiesByRoom はルームのアクティビティを新しい順に最大limit件返す。
func (q *Queries) ListActivitiesByRoom(ctx context.Context, roomID string, limit int64) ([]Activity, error) {
	rows, err := q.db.QueryContext(ctx, listActivitiesByRoom, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.RoomID, &a.UserID, &a.Type, &a.Data, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
