package planner

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	plannerdb "github.com/unifyplan/unifyplan/internal/planner/db"
	"github.com/unifyplan/unifyplan/pkg/activity"
	"github.com/unifyplan/unifyplan/pkg/middleware"
)

// createCardRequest はカード作成リクエストのJSON構造。
type createCardRequest struct {
	// Title はカードのタイトル。
	Title string `json:"title" binding:"required,max=200"`
	// Content はカードの本文。
	Content string `json:"content" binding:"max=10000"`
	// Color はカードの表示色。
	Color string `json:"color" binding:"max=32"`
	// Position は表示位置。省略時は末尾に追加する。
	Position *int64 `json:"position" binding:"omitempty,min=0"`
}

// cardResponse はカードのJSONレスポンス構造。
type cardResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	AuthorID  string    `json:"authorId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Color     string    `json:"color"`
	Position  int64     `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// toCardResponse はDB行をJSONレスポンスに変換する。
func toCardResponse(card plannerdb.Card) cardResponse {
	return cardResponse{
		ID:        card.ID,
		RoomID:    card.RoomID,
		AuthorID:  card.AuthorID,
		Title:     card.Title,
		Content:   card.Content,
		Color:     card.Color,
		Position:  card.Position,
		CreatedAt: unixTime(card.CreatedAt),
		UpdatedAt: unixTime(card.UpdatedAt),
	}
}

func toCardResponses(rows []plannerdb.Card) []cardResponse {
	cards := make([]cardResponse, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, toCardResponse(row))
	}
	return cards
}

// handleListCards はルームのカード一覧を表示位置順に返すハンドラを返す。
func (s *Server) handleListCards() gin.HandlerFunc {
	return func(c *gin.Context) {
		room, _, ok := s.loadRoomMembership(c)
		if !ok {
			return
		}

		rows, err := s.queries.ListCardsByRoom(c.Request.Context(), room.ID)
		if err != nil {
			internalError(c, "カード一覧の取得に失敗", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cards": toCardResponses(rows)})
	}
}

// handleCreateCard はカードを作成するハンドラを返す。
// CardCreatedアクティビティを記録し、ルームの更新日時を進める。
func (s *Server) handleCreateCard() gin.HandlerFunc {
	return func(c *gin.Context) {
		room, _, ok := s.loadRoomMembership(c)
		if !ok {
			return
		}

		var req createCardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "title is required", err)
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			badRequest(c, "title is required", nil)
			return
		}

		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)
		var card plannerdb.Card
		err := s.inTx(ctx, func(q *plannerdb.Queries) error {
			var position int64
			if req.Position != nil {
				position = *req.Position
			} else {
				next, err := q.NextCardPosition(ctx, room.ID)
				if err != nil {
					return err
				}
				position = next
			}

			now := s.now().Unix()
			card = plannerdb.Card{
				ID:        uuid.NewString(),
				RoomID:    room.ID,
				AuthorID:  userID,
				Title:     req.Title,
				Content:   req.Content,
				Color:     req.Color,
				Position:  position,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := q.CreateCard(ctx, plannerdb.CreateCardParams{
				ID:       card.ID,
				RoomID:   card.RoomID,
				AuthorID: card.AuthorID,
				Title:    card.Title,
				Content:  card.Content,
				Color:    card.Color,
				Position: card.Position,
				Now:      now,
			}); err != nil {
				return err
			}
			if err := q.TouchRoom(ctx, room.ID, now); err != nil {
				return err
			}
			return s.recordActivity(ctx, q, room.ID, userID, activity.TypeCardCreated, activity.CardCreatedData{
				CardID: card.ID,
				Title:  card.Title,
			})
		})
		if err != nil {
			internalError(c, "カードの作成に失敗", err)
			return
		}

		c.JSON(http.StatusCreated, toCardResponse(card))
	}
}
