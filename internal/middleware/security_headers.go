// Package middleware はHTTPミドルウェアを提供する。
package middleware

import "net/http"

// SecurityHeadersConfig はセキュリティヘッダーミドルウェアの設定。
type SecurityHeadersConfig struct {
	// ContentSecurityPolicy はCSPヘッダーの値。空の場合は既定値を使用する。
	ContentSecurityPolicy string
	// EnableHSTS はStrict-Transport-Securityヘッダーを付与するかどうか。
	// HTTPSで配信している場合のみ有効にすること。
	EnableHSTS bool
}

// defaultCSP は同梱のチャットページが動作する最小のポリシー。
// WebSocket接続のためconnect-srcにws:/wss:を許可する。
const defaultCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:; img-src 'self' data:"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与する
// ミドルウェアを返す。
func NewSecurityHeadersMiddleware(config SecurityHeadersConfig) func(next http.Handler) http.Handler {
	csp := config.ContentSecurityPolicy
	if csp == "" {
		csp = defaultCSP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-DNS-Prefetch-Control", "off")
			w.Header().Set("X-Download-Options", "noopen")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if config.EnableHSTS {
				w.Header().Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
