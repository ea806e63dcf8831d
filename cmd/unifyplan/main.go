// UnifyPlanのエントリポイント。
// serve でAPIサーバーを起動し、migrate でスキーマを適用し、token で開発用のセッショントークンを発行する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("unifyplan: %v", err)
	}
}
