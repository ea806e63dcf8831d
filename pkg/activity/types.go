// Package activity はプランニングルームのアクティビティログを表す型を提供する。
//
// ルーム作成・カード追加・招待・参加といった操作はすべて Activity として
// Activity テーブルに追記される。Data には種類ごとの構造体をJSONで保持する。
package activity

import (
	"encoding/json"
	"time"
)

// Type はアクティビティの種類を表す。
type Type string

const (
	// TypeRoomCreated はルームが作成されたことを表す。
	TypeRoomCreated Type = "RoomCreated"
	// TypeCardCreated はカードが追加されたことを表す。
	TypeCardCreated Type = "CardCreated"
	// TypeInviteCreated は招待トークンが発行されたことを表す。
	TypeInviteCreated Type = "InviteCreated"
	// TypeInviteRevoked は招待トークンが無効化されたことを表す。
	TypeInviteRevoked Type = "InviteRevoked"
	// TypeMemberJoined はメンバーが招待経由で参加したことを表す。
	TypeMemberJoined Type = "MemberJoined"
)

// Activity はルームに紐づく追記専用の操作記録。
type Activity struct {
	// ID はアクティビティの一意識別子（UUID）。
	ID string `json:"id"`
	// RoomID は対象ルームのID。
	RoomID string `json:"roomId"`
	// UserID は操作したユーザーのID。
	UserID string `json:"userId"`
	// Type はアクティビティの種類。
	Type Type `json:"type"`
	// Data は種類固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt は記録日時。
	CreatedAt time.Time `json:"createdAt"`
}

// RoomCreatedData はRoomCreatedのデータ。
type RoomCreatedData struct {
	Name string `json:"name"`
}

// CardCreatedData はCardCreatedのデータ。
type CardCreatedData struct {
	CardID string `json:"cardId"`
	Title  string `json:"title"`
}

// InviteCreatedData はInviteCreatedのデータ。トークン本体は記録しない。
type InviteCreatedData struct {
	MaxUses   int64     `json:"maxUses"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// InviteRevokedData はInviteRevokedのデータ。
type InviteRevokedData struct {
	// TokenPrefix はトークン先頭の数文字。どの招待かを識別するためだけに使う。
	TokenPrefix string `json:"tokenPrefix"`
}

// MemberJoinedData はMemberJoinedのデータ。
type MemberJoinedData struct {
	// Via は参加経路（現在は "invite" のみ）。
	Via string `json:"via"`
}
