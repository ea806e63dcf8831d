package middleware

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unifyplan/unifyplan/pkg/session"
)

// Access はルートへのアクセスに必要な認証レベル。
type Access int

const (
	// AccessSession は有効なセッションが必要なことを表す。ゼロ値。
	AccessSession Access = iota
	// AccessPublic は認証不要なことを表す。
	AccessPublic
)

// DenyAction は認証に失敗したときの応答方法。
type DenyAction int

const (
	// DenyUnauthorized は401のJSONを返す。APIルート向け。
	DenyUnauthorized DenyAction = iota
	// DenyRedirect はログインページにリダイレクトする。ページ向け。
	DenyRedirect
)

// Capability はルートごとのアクセス要件。
type Capability struct {
	Access Access
	OnDeny DenyAction
}

var (
	// PublicAPI は認証不要のAPIルート。
	PublicAPI = Capability{Access: AccessPublic, OnDeny: DenyUnauthorized}
	// SessionAPI はセッション必須のAPIルート。未認証なら401。
	SessionAPI = Capability{Access: AccessSession, OnDeny: DenyUnauthorized}
	// SessionPage はセッション必須のページ。未認証ならログインへリダイレクト。
	SessionPage = Capability{Access: AccessSession, OnDeny: DenyRedirect}
	// PublicPage は認証不要のページ。
	PublicPage = Capability{Access: AccessPublic, OnDeny: DenyRedirect}
)

// ctxKeyClaims はGinコンテキストにセッションクレームを格納するキー。
const ctxKeyClaims = "session_claims"

// RouteTable はルートごとの Capability を宣言的に保持する表。
//
// 登録済みルートはGinのルートパターン（例: "/api/planning-room/:groupId"）で引くため、
// ルート登録と同じ表から引けばハンドラとゲートの設定がずれることはない。
// 表にない登録済みルートはセッション必須として扱う。
type RouteTable struct {
	routes        map[string]Capability
	pages         map[string]Capability
	assetPrefixes []string
	apiPrefix     string
}

// NewRouteTable は新しい RouteTable を生成する。
// apiPrefix 配下の未登録パスはページではなくAPIとして扱う（401を返す）。
func NewRouteTable(apiPrefix string) *RouteTable {
	return &RouteTable{
		routes:    make(map[string]Capability),
		pages:     make(map[string]Capability),
		apiPrefix: apiPrefix,
	}
}

// Route は登録済みルート（メソッド + ルートパターン）の Capability を設定する。
func (t *RouteTable) Route(method, pattern string, capability Capability) {
	t.routes[method+" "+pattern] = capability
}

// Page はルーターに登録されていないページパス（完全一致）の Capability を設定する。
func (t *RouteTable) Page(path string, capability Capability) {
	t.pages[path] = capability
}

// PublicAssets は認証不要な静的ファイルのディレクトリを追加する。
func (t *RouteTable) PublicAssets(prefix string) {
	t.assetPrefixes = append(t.assetPrefixes, prefix)
}

// Lookup はリクエストの Capability を返す。
// patternはGinがマッチしたルートパターンで、未マッチの場合は空文字列。
func (t *RouteTable) Lookup(method, pattern, path string) Capability {
	if pattern != "" {
		if capability, ok := t.routes[method+" "+pattern]; ok {
			return capability
		}
		return SessionAPI
	}
	if capability, ok := t.pages[path]; ok {
		return capability
	}
	for _, prefix := range t.assetPrefixes {
		if strings.HasPrefix(path, prefix) {
			return PublicPage
		}
	}
	if t.apiPrefix != "" && strings.HasPrefix(path, t.apiPrefix) {
		return SessionAPI
	}
	return SessionPage
}

// SessionVerifier はセッショントークンを検証する。session.Manager が実装する。
type SessionVerifier interface {
	Verify(token string) (*session.Claims, error)
}

// Gate はルート能力表に従ってリクエストを通過させるかを判定するGinミドルウェアを返す。
// 有効なセッションがあれば公開ルートでもクレームをコンテキストに設定する。
func Gate(table *RouteTable, verifier SessionVerifier, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		capability := table.Lookup(c.Request.Method, c.FullPath(), c.Request.URL.Path)

		claims, err := verifier.Verify(session.TokenFromRequest(c.Request))
		if err == nil {
			c.Set(ctxKeyClaims, claims)
			c.Next()
			return
		}
		if capability.Access == AccessPublic {
			c.Next()
			return
		}

		if !errors.Is(err, session.ErrNoToken) {
			log.Printf("[Gate] セッション検証に失敗: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}

		if capability.OnDeny == DenyRedirect {
			c.Redirect(http.StatusTemporaryRedirect, LoginRedirectURL(loginPath, c.Request.URL.Path))
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

// LoginRedirectURL は元のパスを callbackUrl として付けたログインページのURLを返す。
func LoginRedirectURL(loginPath, callback string) string {
	return loginPath + "?" + url.Values{"callbackUrl": {callback}}.Encode()
}

// GetClaims はGinコンテキストからセッションクレームを取得する。
// Gateが事前に適用されていない場合や未認証の場合はnilを返す。
func GetClaims(c *gin.Context) *session.Claims {
	v, ok := c.Get(ctxKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*session.Claims)
	return claims
}

// GetUserID はGinコンテキストから認証済みユーザーのIDを取得する。
func GetUserID(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.UserID()
	}
	return ""
}
