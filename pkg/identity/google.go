package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"google.golang.org/api/idtoken"
)

const (
	// GoogleAuthEndpoint はGoogleの認可エンドポイント。
	GoogleAuthEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	// GoogleTokenBaseURL はGoogleのトークンエンドポイントのベースURL。
	GoogleTokenBaseURL = "https://oauth2.googleapis.com"
)

// ErrInvalidCredential はIDトークンの検証に失敗したことを表す。
var ErrInvalidCredential = errors.New("IDトークンの検証に失敗しました")

// Identity はIDプロバイダが保証するユーザー情報。
type Identity struct {
	// Subject はプロバイダ内でのユーザー識別子。
	Subject string
	// Email はメールアドレス。
	Email string
	// EmailVerified はメールアドレスが確認済みかどうか。
	EmailVerified bool
	// Name は表示名。
	Name string
	// Picture はアバター画像URL。
	Picture string
}

// Verifier はIDプロバイダの認証情報を検証する。
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// tokenValidator は idtoken.Validator のうち使用するメソッドだけを切り出したもの。
type tokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier はGoogleのIDトークンを検証する Verifier 実装。
type GoogleVerifier struct {
	validator tokenValidator
	clientID  string
}

// NewGoogleVerifier は新しい GoogleVerifier を生成する。
// clientIDはIDトークンのaudとして期待するOAuthクライアントID。
func NewGoogleVerifier(ctx context.Context, clientID string, opts ...idtoken.ClientOption) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("GoogleクライアントIDが設定されていません")
	}
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("IDトークン検証器の生成に失敗: %w", err)
	}
	return &GoogleVerifier{validator: v, clientID: clientID}, nil
}

// Verify はIDトークンを検証し、ユーザー情報を返す。
func (g *GoogleVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: 認証情報が空です", ErrInvalidCredential)
	}

	payload, err := g.validator.Validate(ctx, credential, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("%w: 想定外のissuer %q", ErrInvalidCredential, payload.Issuer)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: subがありません", ErrInvalidCredential)
	}

	id := &Identity{
		Subject: payload.Subject,
		Email:   stringClaim(payload.Claims, "email"),
		Name:    stringClaim(payload.Claims, "name"),
		Picture: stringClaim(payload.Claims, "picture"),
	}
	if v, ok := payload.Claims["email_verified"].(bool); ok {
		id.EmailVerified = v
	}
	if id.Email == "" {
		return nil, fmt.Errorf("%w: emailがありません", ErrInvalidCredential)
	}
	if id.Name == "" {
		id.Name = id.Email
	}
	return id, nil
}

// stringClaim はクレームから文字列値を取り出す。存在しない場合は空文字列。
func stringClaim(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// GoogleAuthURL はGoogle認可エンドポイントへのリダイレクトURLを組み立てる。
func GoogleAuthURL(clientID, redirectURI, state string) string {
	q := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
		"prompt":        {"select_account"},
	}
	return GoogleAuthEndpoint + "?" + q.Encode()
}
