package planner

import (
	"context"
	"database/sql"
	"fmt"

	// SQLiteドライバ（database/sql に "sqlite" として登録される）
	_ "modernc.org/sqlite"

	plannerdb "github.com/unifyplan/unifyplan/internal/planner/db"
	"github.com/unifyplan/unifyplan/pkg/migration"
)

// memoryPath はインメモリデータベースを表すパス。
const memoryPath = ":memory:"

// OpenDatabase はSQLiteデータベースを開き、未適用のマイグレーションを適用する。
func OpenDatabase(ctx context.Context, path string) (*sql.DB, error) {
	sqlDB, err := Connect(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := Migrate(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// Connect はSQLiteデータベースを開いて疎通を確認する。マイグレーションは適用しない。
// トランザクションは BEGIN IMMEDIATE で開始し、書き込みロックの競合は busy_timeout で待つ。
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if path != memoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if path == memoryPath {
		// インメモリDBは接続ごとに別のデータベースになる
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}
	return sqlDB, nil
}

// Migrate はプランニングサービスのスキーマを適用する。
func Migrate(ctx context.Context, sqlDB *sql.DB) (*migration.Result, error) {
	res, err := migration.Run(ctx, sqlDB, plannerdb.Migrations, plannerdb.MigrationsDir)
	if err != nil {
		return res, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return res, nil
}
