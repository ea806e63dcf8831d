// Package planner はUnifyPlanのHTTPサーバーを提供する。
//
// Googleログインで発行したセッションCookieを前提に、プランニングルーム・カード・
// 招待トークン・アクティビティログのAPIを公開する。
// すべてのルートは middleware.Gate を通過し、ルートごとの能力表（RouteTable）に
// 従って401を返すかログインページへリダイレクトするかが決まる。
//
// データはSQLiteに保存し、スキーマは internal/planner/db の埋め込みSQLを
// pkg/migration で適用する。
package planner
