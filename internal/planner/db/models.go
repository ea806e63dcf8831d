package db

// 日時はすべてunix秒で保持する。

// User は User テーブルの行。
type User struct {
	ID          string
	Email       string
	Name        string
	Picture     string
	CreatedAt   int64
	LastLoginAt int64
}

// PlanningRoom は PlanningRoom テーブルの行。
type PlanningRoom struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt int64
	UpdatedAt int64
}

// RoomMember は RoomMember テーブルの行。
type RoomMember struct {
	RoomID   string
	UserID   string
	Role     string
	JoinedAt int64
}

// Card は Card テーブルの行。
type Card struct {
	ID        string
	RoomID    string
	AuthorID  string
	Title     string
	Content   string
	Color     string
	Position  int64
	CreatedAt int64
	UpdatedAt int64
}

// InviteToken は InviteTokens テーブルの行。
type InviteToken struct {
	Token     string
	RoomID    string
	CreatedBy string
	ExpiresAt int64
	MaxUses   int64
	Uses      int64
	Active    bool
	CreatedAt int64
}

// Activity は Activity テーブルの行。
type Activity struct {
	ID        string
	RoomID    string
	UserID    string
	Type      string
	Data      string
	CreatedAt int64
}

const (
	// RoleOwner はルームの作成者。
	RoleOwner = "owner"
	// RoleMember は招待などで参加したメンバー。
	RoleMember = "member"
)
