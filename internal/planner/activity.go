package planner

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unifyplan/unifyplan/pkg/activity"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// activityItem はアクティビティに表示用の要約を付けたレスポンス要素。
type activityItem struct {
	activity.Activity
	Summary string `json:"summary"`
}

// handleListActivity はルームのアクティビティを新しい順に返すハンドラを返す。
func (s *Server) handleListActivity() gin.HandlerFunc {
	return func(c *gin.Context) {
		room, _, ok := s.loadRoomMembership(c)
		if !ok {
			return
		}

		limit := int64(defaultActivityLimit)
		if v := c.Query("limit"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 1 {
				badRequest(c, "limit must be a positive integer", nil)
				return
			}
			limit = min(n, maxActivityLimit)
		}

		rows, err := s.queries.ListActivitiesByRoom(c.Request.Context(), room.ID, limit)
		if err != nil {
			internalError(c, "アクティビティの取得に失敗", err)
			return
		}

		activities := make([]activityItem, 0, len(rows))
		for _, row := range rows {
			item := activityItem{Activity: activity.Activity{
				ID:        row.ID,
				RoomID:    row.RoomID,
				UserID:    row.UserID,
				Type:      activity.Type(row.Type),
				Data:      json.RawMessage(row.Data),
				CreatedAt: unixTime(row.CreatedAt),
			}}
			summary, err := activity.Summary(&item.Activity)
			if err != nil {
				// 要約できなくても一覧は返す
				log.Printf("[Activity] アクティビティ %s の要約に失敗: %v", row.ID, err)
				summary = string(item.Type)
			}
			item.Summary = summary
			activities = append(activities, item)
		}
		c.JSON(http.StatusOK, gin.H{"activities": activities})
	}
}
