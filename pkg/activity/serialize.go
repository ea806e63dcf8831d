package activity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New は新しいアクティビティを生成する。
// dataには種類固有のデータ構造体を渡す。JSON形式にシリアライズされる。
func New(roomID, userID string, activityType Type, data any) (*Activity, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("アクティビティデータのシリアライズに失敗: %w", err)
	}

	return &Activity{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		UserID:    userID,
		Type:      activityType,
		Data:      jsonData,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DecodeData はアクティビティのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](a *Activity) (*T, error) {
	var data T
	if err := json.Unmarshal(a.Data, &data); err != nil {
		return nil, fmt.Errorf("アクティビティデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}
