package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/unifyplan/unifyplan/pkg/httpclient"
)

// CodeExchanger は認可コードをIDトークンに交換する。
type CodeExchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (string, error)
}

// GoogleCodeExchanger はGoogleのトークンエンドポイントで認可コードを交換する。
type GoogleCodeExchanger struct {
	client       *httpclient.Client
	clientID     string
	clientSecret string
}

// NewGoogleCodeExchanger は新しい GoogleCodeExchanger を生成する。
// baseURLには通常 GoogleTokenBaseURL を指定する。
func NewGoogleCodeExchanger(baseURL, clientID, clientSecret string) *GoogleCodeExchanger {
	return &GoogleCodeExchanger{
		client:       httpclient.New(baseURL),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// tokenResponse はトークンエンドポイントのレスポンスのうち必要な部分。
type tokenResponse struct {
	IDToken string `json:"id_token"`
}

// Exchange は認可コードを交換し、IDトークンを返す。
func (e *GoogleCodeExchanger) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	if code == "" {
		return "", errors.New("認可コードが空です")
	}

	form := url.Values{
		"code":          {code},
		"client_id":     {e.clientID},
		"client_secret": {e.clientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}

	var resp tokenResponse
	if err := e.client.PostForm(ctx, "/token", form, &resp); err != nil {
		return "", fmt.Errorf("認可コードの交換に失敗: %w", err)
	}
	if resp.IDToken == "" {
		return "", errors.New("トークンレスポンスにid_tokenが含まれていません")
	}
	return resp.IDToken, nil
}
