package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantCode   int
		wantOrigin string
		wantCalled bool
	}{
		{
			name:       "許可されたオリジンからのリクエストにCORSヘッダーが設定されること",
			allowed:    []string{"http://localhost:3000", "https://plan.example.com"},
			method:     http.MethodGet,
			origin:     "http://localhost:3000",
			wantCode:   http.StatusOK,
			wantOrigin: "http://localhost:3000",
			wantCalled: true,
		},
		{
			name:       "許可リストの2番目のオリジンでも正しくCORSヘッダーが設定されること",
			allowed:    []string{"http://localhost:3000", "https://plan.example.com"},
			method:     http.MethodGet,
			origin:     "https://plan.example.com",
			wantCode:   http.StatusOK,
			wantOrigin: "https://plan.example.com",
			wantCalled: true,
		},
		{
			name:       "許可されていないオリジンにはCORSヘッダーが設定されないこと",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodGet,
			origin:     "https://evil.com",
			wantCode:   http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "Originヘッダーが無いリクエストにCORSヘッダーが設定されないこと",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodGet,
			wantCode:   http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "空文字列のオリジン設定は無視されること",
			allowed:    []string{""},
			method:     http.MethodGet,
			wantCode:   http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "OPTIONSリクエストで204が返りハンドラーが呼ばれないこと",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodOptions,
			origin:     "http://localhost:3000",
			wantCode:   http.StatusNoContent,
			wantOrigin: "http://localhost:3000",
		},
		{
			name:     "許可されていないオリジンからのOPTIONSリクエストは403になること",
			allowed:  []string{"http://localhost:3000"},
			method:   http.MethodOptions,
			origin:   "https://evil.com",
			wantCode: http.StatusForbidden,
		},
		{
			name:     "Originの無いOPTIONSリクエストは204が返ること",
			allowed:  []string{"http://localhost:3000"},
			method:   http.MethodOptions,
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handlerCalled := false
			router := gin.New()
			router.Use(CORS(tt.allowed))
			router.Handle(tt.method, "/test", func(c *gin.Context) {
				handlerCalled = true
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantCode)
			}
			if handlerCalled != tt.wantCalled {
				t.Errorf("ハンドラー呼び出し = %v, want %v", handlerCalled, tt.wantCalled)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" {
				if got := w.Header().Get("Vary"); got != "Origin" {
					t.Errorf("Vary = %q, want %q", got, "Origin")
				}
				if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
					t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
				}
				if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, DELETE, OPTIONS" {
					t.Errorf("Access-Control-Allow-Methods = %q", got)
				}
			}
		})
	}
}
