package planner

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	plannerdb "github.com/unifyplan/unifyplan/internal/planner/db"
	"github.com/unifyplan/unifyplan/pkg/activity"
	"github.com/unifyplan/unifyplan/pkg/middleware"
)

// errRoomExists はルームIDが既に使われていることを表す。
var errRoomExists = errors.New("ルームIDが既に存在します")

// createRoomRequest はルーム作成リクエストのJSON構造。
type createRoomRequest struct {
	// ID はクライアントが採番したルームID。
	ID string `json:"id" binding:"required"`
	// Name はルーム名。
	Name string `json:"name" binding:"required"`
}

// roomResponse はルームのJSONレスポンス構造。
type roomResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerID     string    `json:"ownerId"`
	Role        string    `json:"role,omitempty"`
	MemberCount int64     `json:"memberCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// toRoomResponse はDB行をJSONレスポンスに変換する。
func toRoomResponse(r plannerdb.PlanningRoom) roomResponse {
	return roomResponse{
		ID:        r.ID,
		Name:      r.Name,
		OwnerID:   r.OwnerID,
		CreatedAt: unixTime(r.CreatedAt),
		UpdatedAt: unixTime(r.UpdatedAt),
	}
}

// handleListRooms は呼び出し元が所有・参加しているルームの一覧を返すハンドラを返す。
func (s *Server) handleListRooms() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := s.queries.ListRoomsForUser(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			internalError(c, "ルーム一覧の取得に失敗", err)
			return
		}

		rooms := make([]roomResponse, 0, len(rows))
		for _, row := range rows {
			r := toRoomResponse(row.PlanningRoom)
			r.Role = row.Role
			r.MemberCount = row.MemberCount
			rooms = append(rooms, r)
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	}
}

// handleCreateRoom はルームを作成するハンドラを返す。
// 作成者はオーナーとしてメンバーに登録され、RoomCreatedアクティビティが記録される。
func (s *Server) handleCreateRoom() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "id and name are required", err)
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		req.Name = strings.TrimSpace(req.Name)
		if req.ID == "" || req.Name == "" {
			badRequest(c, "id and name are required", nil)
			return
		}

		userID := middleware.GetUserID(c)
		err := s.inTx(c.Request.Context(), func(q *plannerdb.Queries) error {
			return s.createRoom(c.Request.Context(), q, req, userID)
		})
		if errors.Is(err, errRoomExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Room already exists"})
			return
		}
		if err != nil {
			internalError(c, "ルームの作成に失敗", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"roomId":  req.ID,
			"name":    req.Name,
		})
	}
}

// createRoom はルーム・オーナーのメンバーシップ・アクティビティを作成する。
func (s *Server) createRoom(ctx context.Context, q *plannerdb.Queries, req createRoomRequest, userID string) error {
	now := s.now().Unix()
	if err := q.CreateRoom(ctx, plannerdb.CreateRoomParams{
		ID:      req.ID,
		Name:    req.Name,
		OwnerID: userID,
		Now:     now,
	}); err != nil {
		if plannerdb.IsConstraintViolation(err) {
			return errRoomExists
		}
		return err
	}

	if _, err := q.AddRoomMember(ctx, plannerdb.AddRoomMemberParams{
		RoomID: req.ID,
		UserID: userID,
		Role:   plannerdb.RoleOwner,
		Now:    now,
	}); err != nil {
		return err
	}

	return s.recordActivity(ctx, q, req.ID, userID, activity.TypeRoomCreated, activity.RoomCreatedData{Name: req.Name})
}
