package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/unifyplan/unifyplan/internal/planner"
	"github.com/unifyplan/unifyplan/pkg/identity"
	"github.com/unifyplan/unifyplan/pkg/migration"
	"github.com/unifyplan/unifyplan/pkg/session"
)

// newRootCmd はルートコマンドを生成する。設定は環境変数から読み込む。
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "unifyplan",
		Short:         "UnifyPlan collaborative planning server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	return root
}

// newServeCmd はAPIサーバーを起動するコマンドを生成する。
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := planner.LoadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// serve は依存を組み立ててサーバーを起動し、ctxがキャンセルされるまでブロックする。
func serve(ctx context.Context, cfg planner.Config) error {
	sqlDB, err := planner.OpenDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	sessions, err := session.NewManager(cfg.JWTSecret,
		session.WithTTL(cfg.SessionTTL),
		session.WithSecureCookie(cfg.CookieSecure),
	)
	if err != nil {
		return fmt.Errorf("セッションマネージャの初期化に失敗: %w", err)
	}

	var (
		verifier  identity.Verifier
		exchanger identity.CodeExchanger
	)
	if cfg.GoogleEnabled() {
		v, err := identity.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return err
		}
		verifier = v
		if cfg.GoogleClientSecret != "" {
			exchanger = identity.NewGoogleCodeExchanger(identity.GoogleTokenBaseURL, cfg.GoogleClientID, cfg.GoogleClientSecret)
		}
	} else {
		log.Printf("[Serve] GOOGLE_CLIENT_ID が未設定のためGoogleログインは無効です")
	}

	server := planner.NewServer(cfg, sqlDB, sessions, verifier, exchanger)
	log.Printf("[Serve] UnifyPlanを起動します: :%s", cfg.Port)
	return server.Run(ctx)
}

// newMigrateCmd はスキーマを適用するコマンドを生成する。
func newMigrateCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				cfg, err := planner.LoadConfig()
				if err != nil {
					return err
				}
				dbPath = cfg.DatabasePath
			}

			sqlDB, err := planner.Connect(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = sqlDB.Close() }()

			res, err := planner.Migrate(cmd.Context(), sqlDB)
			if err != nil {
				return err
			}
			versions, err := migration.AppliedVersions(cmd.Context(), sqlDB)
			if err != nil {
				return fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s) applied (schema at %d version(s))\n",
				dbPath, len(res.Applied), len(versions))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "database", "", "SQLite database path (default: $DATABASE_PATH)")
	return cmd
}

// newTokenCmd は開発用にセッショントークンを発行するコマンドを生成する。
// 発行したトークンは token Cookie か Authorization: Bearer で使える。
func newTokenCmd() *cobra.Command {
	var profile session.Profile
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := planner.LoadConfig()
			if err != nil {
				return err
			}
			sessions, err := session.NewManager(cfg.JWTSecret, session.WithTTL(cfg.SessionTTL))
			if err != nil {
				return err
			}
			if profile.Name == "" {
				profile.Name = profile.Email
			}
			token, err := sessions.Issue(profile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile.Subject, "sub", "", "user id (Google subject)")
	cmd.Flags().StringVar(&profile.Email, "email", "", "email address")
	cmd.Flags().StringVar(&profile.Name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
