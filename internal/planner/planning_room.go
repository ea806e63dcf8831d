package planner

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	plannerdb "github.com/unifyplan/unifyplan/internal/planner/db"
)

// memberResponse はルームメンバーのJSONレスポンス構造。
type memberResponse struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Picture  string    `json:"picture"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// handleGetPlanningRoom はルーム本体・メンバー・カードをまとめて返すハンドラを返す。
func (s *Server) handleGetPlanningRoom() gin.HandlerFunc {
	return func(c *gin.Context) {
		room, member, ok := s.loadRoomMembership(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		memberRows, err := s.queries.ListRoomMembers(ctx, room.ID)
		if err != nil {
			internalError(c, "メンバー一覧の取得に失敗", err)
			return
		}
		members := make([]memberResponse, 0, len(memberRows))
		for _, m := range memberRows {
			members = append(members, memberResponse{
				UserID:   m.UserID,
				Email:    m.Email,
				Name:     m.Name,
				Picture:  m.Picture,
				Role:     m.Role,
				JoinedAt: unixTime(m.JoinedAt),
			})
		}

		cardRows, err := s.queries.ListCardsByRoom(ctx, room.ID)
		if err != nil {
			internalError(c, "カード一覧の取得に失敗", err)
			return
		}

		resp := toRoomResponse(room)
		resp.Role = member.Role
		resp.MemberCount = int64(len(members))
		c.JSON(http.StatusOK, gin.H{
			"room":    resp,
			"members": members,
			"cards":   toCardResponses(cardRows),
			"isOwner": member.Role == plannerdb.RoleOwner,
		})
	}
}
