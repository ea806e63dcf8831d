package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	plannerdb "github.com/unifyplan/unifyplan/internal/planner/db"
	"github.com/unifyplan/unifyplan/pkg/activity"
	"github.com/unifyplan/unifyplan/pkg/middleware"
)

// inTx はfnを1つのトランザクション内で実行する。fnがエラーを返した場合はロールバックする。
func (s *Server) inTx(ctx context.Context, fn func(q *plannerdb.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}

// recordActivity はアクティビティを追記する。
func (s *Server) recordActivity(ctx context.Context, q *plannerdb.Queries, roomID, userID string, activityType activity.Type, data any) error {
	a, err := activity.New(roomID, userID, activityType, data)
	if err != nil {
		return err
	}
	if err := q.InsertActivity(ctx, plannerdb.InsertActivityParams{
		ID:        a.ID,
		RoomID:    a.RoomID,
		UserID:    a.UserID,
		Type:      string(a.Type),
		Data:      string(a.Data),
		CreatedAt: s.now().Unix(),
	}); err != nil {
		return fmt.Errorf("アクティビティ %s の記録に失敗: %w", activityType, err)
	}
	return nil
}

// loadRoomMembership はパスの groupId のルームと、呼び出し元のメンバーシップを取得する。
// ルームが存在しなければ404、メンバーでなければ403を書き込み、ok=false を返す。
func (s *Server) loadRoomMembership(c *gin.Context) (plannerdb.PlanningRoom, plannerdb.RoomMember, bool) {
	ctx := c.Request.Context()
	roomID := c.Param("groupId")

	room, err := s.queries.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return room, plannerdb.RoomMember{}, false
		}
		internalError(c, "ルームの取得に失敗", err)
		return room, plannerdb.RoomMember{}, false
	}

	member, err := s.queries.GetRoomMember(ctx, roomID, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this room"})
			return room, member, false
		}
		internalError(c, "メンバーシップの取得に失敗", err)
		return room, member, false
	}
	return room, member, true
}

// internalError はエラーをログに出し、内容を伏せた500を返す。
func internalError(c *gin.Context, msg string, err error) {
	log.Printf("[Planner] %s: %s %s: %v", msg, c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// badRequest はバインドエラーの詳細付きで400を返す。
func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// unixTime はunix秒をUTCの time.Time に変換する。
func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
