// Package db はプランニングサービスのテーブルに対する型付きクエリを提供する。
//
// すべてのクエリは1〜2文の単純なSQLで、*sql.DB と *sql.Tx のどちらでも
// 実行できるよう DBTX を介して呼び出す。スキーマは migrations/ 配下の
// SQLファイルで管理し、pkg/migration で適用する。
package db

import (
	"context"
	"database/sql"
	"embed"
)

// Migrations はスキーマ定義のSQLファイル。
//
//go:embed migrations/*.up.sql
var Migrations embed.FS

// MigrationsDir は Migrations 内のマイグレーションディレクトリ名。
const MigrationsDir = "migrations"

// DBTX は *sql.DB と *sql.Tx に共通するメソッド。
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries はクエリ実行オブジェクト。
type Queries struct {
	db DBTX
}

// New は新しい Queries を生成する。
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx はトランザクション上でクエリを実行する Queries を返す。
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
