package planner

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	plannerdb "github.com/unifyplan/unifyplan/internal/planner/db"
	"github.com/unifyplan/unifyplan/pkg/activity"
	"github.com/unifyplan/unifyplan/pkg/middleware"
)

const (
	// defaultInviteMaxUses は招待トークンの既定の利用上限。
	defaultInviteMaxUses = 10
	// defaultInviteTTL は招待トークンの既定の有効期間。
	defaultInviteTTL = 7 * 24 * time.Hour
	// inviteTokenBytes は招待トークンの乱数バイト数。
	inviteTokenBytes = 32
)

// 招待トークンが利用できない理由。
var (
	errInviteNotFound  = errors.New("招待トークンが存在しません")
	errInviteRevoked   = errors.New("招待トークンは無効化されています")
	errInviteExpired   = errors.New("招待トークンの有効期限が切れています")
	errInviteExhausted = errors.New("招待トークンの利用上限に達しています")
)

// createInviteRequest は招待作成リクエストのJSON構造。ボディは省略できる。
type createInviteRequest struct {
	// MaxUses は利用上限回数。
	MaxUses *int64 `json:"maxUses" binding:"omitempty,min=1,max=1000"`
	// ExpiresInHours は有効期間（時間）。
	ExpiresInHours *int64 `json:"expiresInHours" binding:"omitempty,min=1,max=720"`
}

// inviteResponse は招待作成のJSONレスポンス構造。
type inviteResponse struct {
	Token     string    `json:"token"`
	InviteURL string    `json:"inviteUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
	MaxUses   int64     `json:"maxUses"`
}

// newInviteToken は推測不能な招待トークンを生成する。
func newInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("乱数の生成に失敗: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// handleCreateInvite は招待トークンを発行するハンドラを返す。ルームのメンバーのみ実行できる。
func (s *Server) handleCreateInvite() gin.HandlerFunc {
	return func(c *gin.Context) {
		room, _, ok := s.loadRoomMembership(c)
		if !ok {
			return
		}

		var req createInviteRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "invalid invite options", err)
			return
		}
		maxUses := int64(defaultInviteMaxUses)
		if req.MaxUses != nil {
			maxUses = *req.MaxUses
		}
		ttl := defaultInviteTTL
		if req.ExpiresInHours != nil {
			ttl = time.Duration(*req.ExpiresInHours) * time.Hour
		}

		token, err := newInviteToken()
		if err != nil {
			internalError(c, "招待トークンの生成に失敗", err)
			return
		}

		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)
		now := s.now()
		expiresAt := now.Add(ttl).Truncate(time.Second).UTC()
		err = s.inTx(ctx, func(q *plannerdb.Queries) error {
			if err := q.CreateInvite(ctx, plannerdb.CreateInviteParams{
				Token:     token,
				RoomID:    room.ID,
				CreatedBy: userID,
				ExpiresAt: expiresAt.Unix(),
				MaxUses:   maxUses,
				Now:       now.Unix(),
			}); err != nil {
				return err
			}
			return s.recordActivity(ctx, q, room.ID, userID, activity.TypeInviteCreated, activity.InviteCreatedData{
				MaxUses:   maxUses,
				ExpiresAt: expiresAt,
			})
		})
		if err != nil {
			internalError(c, "招待トークンの作成に失敗", err)
			return
		}

		c.JSON(http.StatusCreated, inviteResponse{
			Token:     token,
			InviteURL: s.cfg.PublicURL + "/api/invite/" + token,
			ExpiresAt: expiresAt,
			MaxUses:   maxUses,
		})
	}
}

// handleRevokeInvite は招待トークンを無効化するハンドラを返す。ルームのオーナーのみ実行できる。
func (s *Server) handleRevokeInvite() gin.HandlerFunc {
	return func(c *gin.Context) {
		room, member, ok := s.loadRoomMembership(c)
		if !ok {
			return
		}
		if member.Role != plannerdb.RoleOwner {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the room owner can revoke invites"})
			return
		}

		ctx := c.Request.Context()
		token := c.Param("token")
		err := s.inTx(ctx, func(q *plannerdb.Queries) error {
			found, err := q.DeactivateInvite(ctx, token, room.ID)
			if err != nil {
				return err
			}
			if !found {
				return errInviteNotFound
			}
			return s.recordActivity(ctx, q, room.ID, member.UserID, activity.TypeInviteRevoked, activity.InviteRevokedData{
				TokenPrefix: tokenPrefix(token),
			})
		})
		if errors.Is(err, errInviteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
			return
		}
		if err != nil {
			internalError(c, "招待トークンの無効化に失敗", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// handleRedeemInvite は招待トークンを利用してルームに参加するハンドラを返す。
// 成功するとルームのページへ303でリダイレクトする。既にメンバーの場合は利用回数を消費しない。
func (s *Server) handleRedeemInvite() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		userID := middleware.GetUserID(c)

		roomID, joined, err := s.redeemInvite(c.Request.Context(), token, userID)
		switch {
		case errors.Is(err, errInviteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
			return
		case errors.Is(err, errInviteRevoked):
			c.JSON(http.StatusGone, gin.H{"error": "Invite is no longer valid", "reason": "revoked"})
			return
		case errors.Is(err, errInviteExpired):
			c.JSON(http.StatusGone, gin.H{"error": "Invite is no longer valid", "reason": "expired"})
			return
		case errors.Is(err, errInviteExhausted):
			c.JSON(http.StatusGone, gin.H{"error": "Invite is no longer valid", "reason": "exhausted"})
			return
		case err != nil:
			internalError(c, "招待トークンの利用に失敗", err)
			return
		}

		if joined {
			log.Printf("[Invite] ルームに参加しました: room=%s user=%s", roomID, userID)
		}
		c.Redirect(http.StatusSeeOther, "/planning-room/"+roomID)
	}
}

// redeemInvite は1つのトランザクション内で招待を検証・消費し、メンバーを追加する。
// 利用回数の加算は条件付きUPDATEで行うため、同時に利用されても上限を超えない。
// 既にメンバーの場合は joined=false で成功を返す。
func (s *Server) redeemInvite(ctx context.Context, token, userID string) (roomID string, joined bool, err error) {
	err = s.inTx(ctx, func(q *plannerdb.Queries) error {
		invite, err := q.GetInvite(ctx, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errInviteNotFound
			}
			return err
		}
		roomID = invite.RoomID

		if _, err := q.GetRoomMember(ctx, invite.RoomID, userID); err == nil {
			return nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		now := s.now().Unix()
		consumed, err := q.ConsumeInvite(ctx, token, now)
		if err != nil {
			return err
		}
		if !consumed {
			return inviteUnavailable(invite, now)
		}

		if _, err := q.AddRoomMember(ctx, plannerdb.AddRoomMemberParams{
			RoomID: invite.RoomID,
			UserID: userID,
			Role:   plannerdb.RoleMember,
			Now:    now,
		}); err != nil {
			return err
		}
		if err := q.TouchRoom(ctx, invite.RoomID, now); err != nil {
			return err
		}
		joined = true
		return s.recordActivity(ctx, q, invite.RoomID, userID, activity.TypeMemberJoined, activity.MemberJoinedData{
			Via: "invite",
		})
	})
	return roomID, joined, err
}

// inviteUnavailable は招待が利用できない理由を返す。
func inviteUnavailable(invite plannerdb.InviteToken, now int64) error {
	switch {
	case !invite.Active:
		return errInviteRevoked
	case invite.ExpiresAt <= now:
		return errInviteExpired
	default:
		return errInviteExhausted
	}
}

// tokenPrefix はログやアクティビティに残すためのトークン先頭部分を返す。
func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
