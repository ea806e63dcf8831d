// Package identity は外部IDプロバイダ（Google）の認証情報を検証する。
//
// Google Identity Services が発行するIDトークンの署名・issuer・audienceを
// google.golang.org/api/idtoken で検証し、ユーザー情報を取り出す。
// 認可コードフロー用に、トークンエンドポイントでのコード交換も提供する。
package identity
