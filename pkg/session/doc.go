// Package session はセッショントークン（HS256署名のJWT）の発行と検証を提供する。
//
// すべてのハンドラとミドルウェアはこのパッケージの Manager.Verify を経由して
// セッションを検証する。トークンは HTTP-only Cookie "token" に格納され、
// Authorization: Bearer ヘッダーでも受け付ける。サーバー側の失効リストは持たず、
// ログアウトは期限切れCookieでの上書きによって行う。
package session
