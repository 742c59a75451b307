package middleware

import (
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// Recover 把 handler panic 收斂成 500，單一請求出事不拖垮整個行程。
func Recover(next http.Handler) http.Handler {
	return chimid.Recoverer(next)
}
