package planner

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	plannerdb "github.com/unifyplan/unifyplan/internal/planner/db"
	"github.com/unifyplan/unifyplan/pkg/identity"
	"github.com/unifyplan/unifyplan/pkg/middleware"
	"github.com/unifyplan/unifyplan/pkg/session"
)

// apiPrefix はAPIルートの共通プレフィックス。
const apiPrefix = "/api/"

// Server はUnifyPlanのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg Config
	// db はSQLiteデータベース接続。トランザクションの開始に使う。
	db *sql.DB
	// queries はクエリ実行オブジェクト。
	queries *plannerdb.Queries
	// sessions はセッショントークンの発行・検証を行う。
	sessions *session.Manager
	// verifier はGoogleのIDトークンを検証する。nilならGoogleログインは無効。
	verifier identity.Verifier
	// exchanger は認可コードをIDトークンに交換する。nilなら認可コードフローは無効。
	exchanger identity.CodeExchanger
	// routes はゲートが参照するルート能力表。
	routes *middleware.RouteTable
	// limiter はログインと招待利用に適用するIP単位のレートリミッター。
	limiter *middleware.IPRateLimiter
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// route はルート登録とゲートの能力表を1か所で宣言するための定義。
type route struct {
	method     string
	pattern    string
	capability middleware.Capability
	handlers   []gin.HandlerFunc
}

// NewServer は新しいサーバーを生成する。
// verifier と exchanger はGoogleログインが未設定の場合nilでよい。
func NewServer(cfg Config, sqlDB *sql.DB, sessions *session.Manager, verifier identity.Verifier, exchanger identity.CodeExchanger) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))

	s := &Server{
		router:    router,
		cfg:       cfg,
		db:        sqlDB,
		queries:   plannerdb.New(sqlDB),
		sessions:  sessions,
		verifier:  verifier,
		exchanger: exchanger,
		routes:    middleware.NewRouteTable(apiPrefix),
		limiter:   middleware.NewIPRateLimiter(cfg.RateLimitPerMin, max(cfg.RateLimitPerMin/6, 1), 10*time.Minute),
		now:       time.Now,
	}
	s.setupRoutes()

	return s
}

// Handler はHTTPハンドラとしてのルーターを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされたらグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("[Server] シャットダウンを開始します")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("シャットダウンに失敗: %w", err)
		}
		return nil
	}
}

// routeTable はすべてのAPIルートと、その能力を返す。
func (s *Server) routeTable() []route {
	limit := middleware.RateLimitByIP(s.limiter)
	return []route{
		// ヘルスチェック
		{http.MethodGet, "/health", middleware.PublicAPI, []gin.HandlerFunc{s.handleHealth()}},

		// 認証
		{http.MethodPost, "/api/auth/login", middleware.PublicAPI, []gin.HandlerFunc{limit, s.handleLogin()}},
		{http.MethodPost, "/api/auth/logout", middleware.PublicAPI, []gin.HandlerFunc{s.handleLogout()}},
		{http.MethodGet, "/api/auth/me", middleware.SessionAPI, []gin.HandlerFunc{s.handleMe()}},
		{http.MethodGet, "/api/auth/google", middleware.PublicAPI, []gin.HandlerFunc{s.handleGoogleStart()}},
		{http.MethodGet, "/api/auth/google/callback", middleware.PublicAPI, []gin.HandlerFunc{limit, s.handleGoogleCallback()}},

		// ルーム
		{http.MethodGet, "/api/rooms", middleware.SessionAPI, []gin.HandlerFunc{s.handleListRooms()}},
		{http.MethodPost, "/api/rooms", middleware.SessionAPI, []gin.HandlerFunc{s.handleCreateRoom()}},

		// プランニングルーム
		{http.MethodGet, "/api/planning-room/:groupId", middleware.SessionAPI, []gin.HandlerFunc{s.handleGetPlanningRoom()}},
		{http.MethodPost, "/api/planning-room/:groupId/invite", middleware.SessionAPI, []gin.HandlerFunc{s.handleCreateInvite()}},
		{http.MethodDelete, "/api/planning-room/:groupId/invite/:token", middleware.SessionAPI, []gin.HandlerFunc{s.handleRevokeInvite()}},
		{http.MethodGet, "/api/planning-room/:groupId/cards", middleware.SessionAPI, []gin.HandlerFunc{s.handleListCards()}},
		{http.MethodPost, "/api/planning-room/:groupId/cards", middleware.SessionAPI, []gin.HandlerFunc{s.handleCreateCard()}},
		{http.MethodGet, "/api/planning-room/:groupId/activity", middleware.SessionAPI, []gin.HandlerFunc{s.handleListActivity()}},

		// 招待の利用はブラウザで開かれるため、未認証ならログインへリダイレクトする
		{http.MethodGet, "/api/invite/:token", middleware.SessionPage, []gin.HandlerFunc{limit, s.handleRedeemInvite()}},
	}
}

// setupRoutes はゲートとルーティングを設定する。
func (s *Server) setupRoutes() {
	s.routes.Page("/", middleware.PublicPage)
	s.routes.Page(s.cfg.LoginPath, middleware.PublicPage)
	s.routes.Page("/favicon.ico", middleware.PublicPage)
	s.routes.PublicAssets("/_next/")
	s.routes.PublicAssets("/static/")

	s.router.Use(middleware.Gate(s.routes, s.sessions, s.cfg.LoginPath))

	for _, r := range s.routeTable() {
		s.routes.Route(r.method, r.pattern, r.capability)
		s.router.Handle(r.method, r.pattern, r.handlers...)
	}

	s.router.NoRoute(s.handleNoRoute())
}

// handleHealth はヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "unifyplan"})
	}
}

// handleNoRoute は未登録パスのハンドラを返す。
// STATIC_DIR が設定されていればビルド済みフロントエンドを配信する。
func (s *Server) handleNoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqPath := c.Request.URL.Path
		if strings.HasPrefix(reqPath, apiPrefix) || s.cfg.StaticDir == "" ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		if file, ok := s.staticFile(reqPath); ok {
			c.File(file)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}
}

// staticFile はリクエストパスに対応する静的ファイルを探す。
// /planning-room/abc のような拡張子なしのパスは .html と index.html も試す。
func (s *Server) staticFile(reqPath string) (string, bool) {
	clean := path.Clean("/" + reqPath)
	base := filepath.Join(s.cfg.StaticDir, filepath.FromSlash(clean))
	candidates := []string{base}
	if path.Ext(clean) == "" {
		candidates = append(candidates, base+".html", filepath.Join(base, "index.html"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
