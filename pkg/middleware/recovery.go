package middleware

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery は標準ロガーにスタックトレースを出力する RecoveryWithLogger を返す。
func Recovery() gin.HandlerFunc {
	return RecoveryWithLogger(log.Default())
}

// RecoveryWithLogger はハンドラのパニックを回復し、500のJSONを返すGinミドルウェアを返す。
// パニックの値とスタックトレースはloggerにだけ出力し、レスポンスには含めない。
// ハンドラが既にレスポンスを書き始めていた場合は、ボディを追記せずに中断する。
func RecoveryWithLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			// クライアント切断による中断は net/http に任せる
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			logger.Printf("[Recovery] パニックが発生しました: %s %s: %v\n%s",
				c.Request.Method, c.Request.URL.Path, r, debug.Stack())

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}()
		c.Next()
	}
}
