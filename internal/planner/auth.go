package planner

import (
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	plannerdb "github.com/unifyplan/unifyplan/internal/planner/db"
	"github.com/unifyplan/unifyplan/pkg/identity"
	"github.com/unifyplan/unifyplan/pkg/middleware"
	"github.com/unifyplan/unifyplan/pkg/session"
)

const (
	// oauthStateCookie は認可コードフローのstateと戻り先を保持するCookie名。
	oauthStateCookie = "oauth_state"
	// oauthStateMaxAge は oauthStateCookie の有効秒数。
	oauthStateMaxAge = 10 * 60
	// googleCallbackPath はGoogleからのリダイレクトを受けるパス。
	googleCallbackPath = "/api/auth/google/callback"
)

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Credential はGoogle Identity Servicesが返したIDトークン。
	Credential string `json:"credential" binding:"required"`
}

// userResponse はユーザー情報のJSONレスポンス構造。
type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// handleLogin はGoogleのIDトークンでログインするハンドラを返す。
// 検証に成功したらユーザーを保存し、セッションCookieを設定する。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Credential) == "" {
			badRequest(c, "credential is required", err)
			return
		}

		if s.verifier == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google login is not configured"})
			return
		}

		ident, err := s.verifier.Verify(c.Request.Context(), req.Credential)
		if err != nil {
			log.Printf("[Auth] IDトークンの検証に失敗: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credential"})
			return
		}

		user, err := s.startSession(c, ident)
		if err != nil {
			internalError(c, "セッションの開始に失敗", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// startSession はユーザーを保存し、セッショントークンを発行してCookieに設定する。
func (s *Server) startSession(c *gin.Context, ident *identity.Identity) (userResponse, error) {
	user := userResponse{
		ID:      ident.Subject,
		Email:   ident.Email,
		Name:    ident.Name,
		Picture: ident.Picture,
	}

	if err := s.queries.UpsertUser(c.Request.Context(), plannerdb.UpsertUserParams{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
		Now:     s.now().Unix(),
	}); err != nil {
		return user, fmt.Errorf("ユーザーの保存に失敗: %w", err)
	}

	token, err := s.sessions.Issue(session.Profile{
		Subject: user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	})
	if err != nil {
		return user, err
	}
	s.sessions.SetCookie(c.Writer, token)
	log.Printf("[Auth] ログインしました: user=%s", user.ID)
	return user, nil
}

// handleLogout はセッションCookieを期限切れで上書きするハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.sessions.ClearCookie(c.Writer)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// handleMe はセッションのユーザー情報を返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.GetClaims(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": userResponse{
			ID:      claims.UserID(),
			Email:   claims.Email,
			Name:    claims.Name,
			Picture: claims.Picture,
		}})
	}
}

// handleGoogleStart はGoogleの認可コードフローを開始するハンドラを返す。
// stateと戻り先を短命のCookieに保存し、Googleの認可画面へリダイレクトする。
func (s *Server) handleGoogleStart() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.GoogleEnabled() || s.exchanger == nil || s.verifier == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google login is not configured"})
			return
		}

		state := uuid.NewString()
		value := url.Values{
			"state":    {state},
			"callback": {safeCallback(c.Query("callbackUrl"))},
		}.Encode()

		http.SetCookie(c.Writer, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    value,
			Path:     googleCallbackPath,
			MaxAge:   oauthStateMaxAge,
			HttpOnly: true,
			Secure:   s.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		c.Redirect(http.StatusFound, identity.GoogleAuthURL(s.cfg.GoogleClientID, s.googleRedirectURI(), state))
	}
}

// handleGoogleCallback はGoogleからのリダイレクトを処理するハンドラを返す。
// 認可コードをIDトークンに交換して検証し、/login と同じ手順でセッションを開始する。
func (s *Server) handleGoogleCallback() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.GoogleEnabled() || s.exchanger == nil || s.verifier == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google login is not configured"})
			return
		}

		// gin の c.Cookie は値をアンエスケープするため、生の値を読む
		stored, err := c.Request.Cookie(oauthStateCookie)
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    "",
			Path:     googleCallbackPath,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing OAuth state"})
			return
		}
		values, err := url.ParseQuery(stored.Value)
		state := c.Query("state")
		if err != nil || state == "" ||
			subtle.ConstantTimeCompare([]byte(values.Get("state")), []byte(state)) != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
			return
		}
		if e := c.Query("error"); e != "" {
			log.Printf("[Auth] Googleが認可を拒否しました: %s", e)
			c.Redirect(http.StatusFound, s.cfg.LoginPath)
			return
		}

		ctx := c.Request.Context()
		idToken, err := s.exchanger.Exchange(ctx, c.Query("code"), s.googleRedirectURI())
		if err != nil {
			log.Printf("[Auth] 認可コードの交換に失敗: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization code"})
			return
		}
		ident, err := s.verifier.Verify(ctx, idToken)
		if err != nil {
			log.Printf("[Auth] IDトークンの検証に失敗: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credential"})
			return
		}

		if _, err := s.startSession(c, ident); err != nil {
			internalError(c, "セッションの開始に失敗", err)
			return
		}
		c.Redirect(http.StatusFound, safeCallback(values.Get("callback")))
	}
}

// googleRedirectURI はGoogleに登録するリダイレクトURIを返す。
func (s *Server) googleRedirectURI() string {
	return s.cfg.PublicURL + googleCallbackPath
}

// safeCallback はログイン後の戻り先として同一サイトの相対パスだけを許可する。
// それ以外は "/" を返す。
func safeCallback(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}
