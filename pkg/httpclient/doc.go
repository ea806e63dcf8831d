// Package httpclient は外部HTTP APIを呼び出すためのクライアントを提供する。
//
// GoogleのOAuth2トークンエンドポイントへの認可コード交換など、
// フォーム送信してJSONレスポンスを受け取る通信パターンを統一する。
package httpclient
