package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName はセッショントークンを格納するCookie名。
	CookieName = "token"
	// DefaultIssuer はセッショントークンの発行者（iss）。
	DefaultIssuer = "unifyplan"
	// DefaultAudience はセッショントークンの対象者（aud）。
	DefaultAudience = "unifyplan-web"
	// DefaultTTL はセッショントークンの既定の有効期間。
	DefaultTTL = 7 * 24 * time.Hour
)

var (
	// ErrNoToken はリクエストにセッショントークンが含まれていないことを表す。
	ErrNoToken = errors.New("セッショントークンがありません")
	// ErrExpired はセッショントークンの有効期限が切れていることを表す。
	ErrExpired = errors.New("セッショントークンの有効期限が切れています")
	// ErrInvalidToken は署名やクレームの検証に失敗したことを表す。
	ErrInvalidToken = errors.New("セッショントークンが無効です")
)

// Claims はセッショントークンのクレーム（ペイロード）を表す。
// sub にはGoogleのユーザー識別子が入る。
type Claims struct {
	jwt.RegisteredClaims
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Name はユーザーの表示名。
	Name string `json:"name"`
	// Picture はユーザーのアバター画像URL。
	Picture string `json:"picture"`
}

// UserID は認証済みユーザーの識別子（sub）を返す。
func (c *Claims) UserID() string {
	return c.Subject
}

// Profile はセッショントークンに埋め込むユーザー情報。
type Profile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Manager はセッショントークンの発行・検証とCookie操作をまとめて扱う。
// 署名鍵・有効期間・iss/aud はここで一元管理する。
type Manager struct {
	secret       []byte
	ttl          time.Duration
	issuer       string
	audience     string
	secureCookie bool
	now          func() time.Time
}

// Option は Manager の設定を変更する関数。
type Option func(*Manager)

// WithTTL はトークンの有効期間を設定する。
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSecureCookie はCookieにSecure属性を付けるかどうかを設定する。
func WithSecureCookie(secure bool) Option {
	return func(m *Manager) {
		m.secureCookie = secure
	}
}

// WithClock は現在時刻の取得関数を差し替える。テストで使用する。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager は新しい Manager を生成する。secretが空の場合はエラーを返す。
func NewManager(secret string, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("JWTシークレットが空です")
	}
	m := &Manager{
		secret:   []byte(secret),
		ttl:      DefaultTTL,
		issuer:   DefaultIssuer,
		audience: DefaultAudience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL はトークンの有効期間を返す。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue はユーザー情報から署名済みセッショントークンを生成する。
func (m *Manager) Issue(p Profile) (string, error) {
	if p.Subject == "" {
		return "", errors.New("subjectが空のトークンは発行できません")
	}

	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email:   p.Email,
		Name:    p.Name,
		Picture: p.Picture,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("セッショントークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はセッショントークンの署名と標準クレーム（iss, aud, exp）を検証し、
// デコードしたクレームを返す。HS256以外のアルゴリズムは拒否する。
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SetCookie はセッショントークンを HTTP-only / SameSite=Lax のCookieとして設定する。
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		Expires:  m.now().Add(m.ttl),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie は期限切れのCookieで上書きしてセッションを無効化する。
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest はリクエストからセッショントークンを取り出す。
// Cookieを優先し、なければ Authorization: Bearer ヘッダーを参照する。
func TokenFromRequest(r *http.Request) string {
	if ck, err := r.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	if v, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		return strings.TrimSpace(v)
	}
	return ""
}
