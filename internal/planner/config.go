package planner

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/unifyplan/unifyplan/pkg/session"
)

// devJWTSecret は JWT_SECRET 未設定時に使う開発用の署名鍵。
const devJWTSecret = "dev-secret-key"

// Config はサーバーの設定。環境変数から LoadConfig で読み込む。
type Config struct {
	// Port はリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string
	// JWTSecret はセッショントークンの署名鍵。
	JWTSecret string
	// SessionTTL はセッショントークンとCookieの有効期間。
	SessionTTL time.Duration
	// CookieSecure はセッションCookieにSecure属性を付けるかどうか。
	CookieSecure bool
	// GoogleClientID はGoogle OAuthのクライアントID。空ならGoogleログインは無効。
	GoogleClientID string
	// GoogleClientSecret は認可コードフローで使うクライアントシークレット。
	GoogleClientSecret string
	// PublicURL はこのサービスの外部公開URL。招待URLとOAuthのリダイレクト先に使う。
	PublicURL string
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string
	// StaticDir はビルド済みフロントエンドのディレクトリ。空なら配信しない。
	StaticDir string
	// LoginPath は未認証のページアクセスをリダイレクトするログインページのパス。
	LoginPath string
	// RateLimitPerMin はログインと招待利用のIPごとの1分あたり上限。0以下で無効。
	RateLimitPerMin int
}

// LoadConfig は環境変数から設定を読み込む。
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:               getEnvOr("PORT", "8080"),
		DatabasePath:       getEnvOr("DATABASE_PATH", "/data/unifyplan.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		FrontendURL:        getEnvOr("FRONTEND_URL", "http://localhost:3000"),
		StaticDir:          os.Getenv("STATIC_DIR"),
		LoginPath:          getEnvOr("LOGIN_PATH", "/login"),
	}

	if cfg.JWTSecret == "" {
		log.Printf("[Config] JWT_SECRET が未設定のため開発用の署名鍵を使用します")
		cfg.JWTSecret = devJWTSecret
	}

	ttl, err := time.ParseDuration(getEnvOr("SESSION_TTL", session.DefaultTTL.String()))
	if err != nil {
		return Config{}, fmt.Errorf("SESSION_TTL の解析に失敗: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL は正の値で指定してください: %s", ttl)
	}
	cfg.SessionTTL = ttl

	secure, err := strconv.ParseBool(getEnvOr("COOKIE_SECURE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("COOKIE_SECURE の解析に失敗: %w", err)
	}
	cfg.CookieSecure = secure

	limit, err := strconv.Atoi(getEnvOr("RATE_LIMIT_PER_MIN", "30"))
	if err != nil {
		return Config{}, fmt.Errorf("RATE_LIMIT_PER_MIN の解析に失敗: %w", err)
	}
	cfg.RateLimitPerMin = limit

	cfg.PublicURL = strings.TrimSuffix(getEnvOr("PUBLIC_URL", "http://localhost:"+cfg.Port), "/")

	if !strings.HasPrefix(cfg.LoginPath, "/") {
		return Config{}, fmt.Errorf("LOGIN_PATH は / で始まる必要があります: %q", cfg.LoginPath)
	}

	return cfg, nil
}

// GoogleEnabled はGoogleログインが設定されているかを返す。
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
