package db

import "context"

const createRoom = `
INSERT INTO "PlanningRoom" (id, name, owner_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`

// CreateRoomParams は CreateRoom の引数。
type CreateRoomParams struct {
	ID      string
	Name    string
	OwnerID string
	Now     int64
}

// CreateRoom はルームを作成する。IDが重複する場合は制約違反のエラーを返す。
func (q *Queries) CreateRoom(ctx context.Context, arg CreateRoomParams) error {
	_, err := q.db.ExecContext(ctx, createRoom, arg.ID, arg.Name, arg.OwnerID, arg.Now, arg.Now)
	return err
}

const getRoomByID = `
SELECT id, name, owner_id, created_at, updated_at
FROM "PlanningRoom"
WHERE id = ?
`

// GetRoomByID はIDでルームを取得する。
func (q *Queries) GetRoomByID(ctx context.Context, id string) (PlanningRoom, error) {
	var r PlanningRoom
	err := q.db.QueryRowContext(ctx, getRoomByID, id).Scan(
		&r.ID, &r.Name, &r.OwnerID, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

const touchRoom = `
UPDATE "PlanningRoom" SET updated_at = ? WHERE id = ?
`

// TouchRoom はルームの更新日時を進める。
func (q *Queries) TouchRoom(ctx context.Context, id string, now int64) error {
	_, err := q.db.ExecContext(ctx, touchRoom, now, id)
	return err
}

const listRoomsForUser = `
SELECT r.id, r.name, r.owner_id, r.created_at, r.updated_at, m.role,
    (SELECT COUNT(*) FROM "RoomMember" mm WHERE mm.room_id = r.id) AS member_count
FROM "PlanningRoom" r
JOIN "RoomMember" m ON m.room_id = r.id
WHERE m.user_id = ?
ORDER BY r.updated_at DESC, r.id
`

// RoomForUser はユーザーが参加しているルームと、そのユーザーのロール。
type RoomForUser struct {
	PlanningRoom
	Role        string
	MemberCount int64
}

// ListRoomsForUser はユーザーが所有または参加しているルームを更新日時の降順で返す。
func (q *Queries) ListRoomsForUser(ctx context.Context, userID string) ([]RoomForUser, error) {
	rows, err := q.db.QueryContext(ctx, listRoomsForUser, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []RoomForUser
	for rows.Next() {
		var i RoomForUser
		if err := rows.Scan(
			&i.ID, &i.Name, &i.OwnerID, &i.CreatedAt, &i.UpdatedAt, &i.Role, &i.MemberCount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const addRoomMember = `
INSERT OR IGNORE INTO "RoomMember" (room_id, user_id, role, joined_at)
VALUES (?, ?, ?, ?)
`

// AddRoomMemberParams は AddRoomMember の引数。
type AddRoomMemberParams struct {
	RoomID string
	UserID string
	Role   string
	Now    int64
}

// AddRoomMember はメンバーを追加する。既にメンバーの場合は何もせず false を返す。
func (q *Queries) AddRoomMember(ctx context.Context, arg AddRoomMemberParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, addRoomMember, arg.RoomID, arg.UserID, arg.Role, arg.Now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const getRoomMember = `
SELECT room_id, user_id, role, joined_at
FROM "RoomMember"
WHERE room_id = ? AND user_id = ?
`

// GetRoomMember はルームのメンバーシップを取得する。
func (q *Queries) GetRoomMember(ctx context.Context, roomID, userID string) (RoomMember, error) {
	var m RoomMember
	err := q.db.QueryRowContext(ctx, getRoomMember, roomID, userID).Scan(
		&m.RoomID, &m.UserID, &m.Role, &m.JoinedAt,
	)
	return m, err
}

const listRoomMembers = `
SELECT m.room_id, m.user_id, m.role, m.joined_at,
    COALESCE(u.email, ''), COALESCE(u.name, ''), COALESCE(u.picture, '')
FROM "RoomMember" m
LEFT JOIN "User" u ON u.id = m.user_id
WHERE m.room_id = ?
ORDER BY m.joined_at, m.user_id
`

// RoomMemberWithUser はメンバーシップとユーザーのプロフィール。
type RoomMemberWithUser struct {
	RoomMember
	Email   string
	Name    string
	Picture string
}

// ListRoomMembers はルームのメンバーを参加順に返す。
func (q *Queries) ListRoomMembers(ctx context.Context, roomID string) ([]RoomMemberWithUser, error) {
	rows, err := q.db.QueryContext(ctx, listRoomMembers, roomID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []RoomMemberWithUser
	for rows.Next() {
		var i RoomMemberWithUser
		if err := rows.Scan(
			&i.RoomID, &i.UserID, &i.Role, &i.JoinedAt, &i.Email, &i.Name, &i.Picture,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
