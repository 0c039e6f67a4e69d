package gateway

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/safarlabs/safar/internal/config"
)

// ResolvedAuth holds the resolved auth configuration for the gateway.
type ResolvedAuth struct {
	Mode  string // "token" | "none"
	Token string
}

// ResolveAuth resolves authentication credentials from config and
// environment. Precedence: config value, then SAFAR_GATEWAY_TOKEN.
func ResolveAuth(cfg config.ServerAuth) ResolvedAuth {
	auth := ResolvedAuth{Mode: cfg.Mode, Token: cfg.Token}
	if auth.Token == "" {
		auth.Token = os.Getenv("SAFAR_GATEWAY_TOKEN")
	}
	if auth.Mode == "" {
		if auth.Token != "" {
			auth.Mode = "token"
		} else {
			auth.Mode = "none"
		}
	}
	return auth
}

// Authorize checks a presented token against the resolved server auth.
func Authorize(serverAuth ResolvedAuth, token string) bool {
	switch serverAuth.Mode {
	case "none":
		return true
	case "token":
		if serverAuth.Token == "" || token == "" {
			return false
		}
		return safeEqual(token, serverAuth.Token)
	default:
		return false
	}
}

// requireAuth wraps a handler with bearer-token authentication.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !Authorize(s.auth, bearerToken(r)) {
			s.log.Warn().Str("remote", r.RemoteAddr).Str("path", r.URL.Path).Msg("unauthorized request")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// bearerToken extracts the token from the Authorization header, falling
// back to the "token" query parameter for WebSocket clients.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// safeEqual performs a constant-time string comparison to prevent timing
// attacks. Length is compared in constant time as well.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
