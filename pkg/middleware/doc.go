// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// ルート能力表（RouteTable）に基づくセッションゲート、パニックリカバリ、
// CORS設定、IP単位のレート制限を含む。
package middleware
