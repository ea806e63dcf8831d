package db

import "context"

const createCard = `
INSERT INTO "Card" (id, room_id, author_id, title, content, color, position, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// CreateCardParams は CreateCard の引数。
type CreateCardParams struct {
	ID       string
	RoomID   string
	AuthorID string
	Title    string
	Content  string
	Color    string
	Position int64
	Now      int64
}

// CreateCard はカードを作成する。
func (q *Queries) CreateCard(ctx context.Context, arg CreateCardParams) error {
	_, err := q.db.ExecContext(ctx, createCard,
		arg.ID, arg.RoomID, arg.AuthorID, arg.Title, arg.Content, arg.Color, arg.Position, arg.Now, arg.Now,
	)
	return err
}

const getCardByID = `
SELECT id, room_id, author_id, title, content, color, position, created_at, updated_at
FROM "Card"
WHERE id = ?
`

// GetCardByID はIDでカードを取得する。
func (q *Queries) GetCardByID(ctx context.Context, id string) (Card, error) {
	var c Card
	err := q.db.QueryRowContext(ctx, getCardByID, id).Scan(
		&c.ID, &c.RoomID, &c.AuthorID, &c.Title, &c.Content, &c.Color, &c.Position, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

const listCardsByRoom = `
SELECT id, room_id, author_id, title, content, color, position, created_at, updated_at
FROM "Card"
WHERE room_id = ?
ORDER BY position, created_at, rowid
`

// ListCardsByRoom はルームのカードを表示位置順に返す。
func (q *Queries) ListCardsByRoom(ctx context.Context, roomID string) ([]Card, error) {
	rows, err := q.db.QueryContext(ctx, listCardsByRoom, roomID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(
			&c.ID, &c.RoomID, &c.AuthorID, &c.Title, &c.Content, &c.Color, &c.Position, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const nextCardPosition = `
SELECT COALESCE(MAX(position) + 1, 0) FROM "Card" WHERE room_id = ?
`

// NextCardPosition はルーム末尾に追加するカードの表示位置を返す。
func (q *Queries) NextCardPosition(ctx context.Context, roomID string) (int64, error) {
	var pos int64
	err := q.db.QueryRowContext(ctx, nextCardPosition, roomID).Scan(&pos)
	return pos, err
}
