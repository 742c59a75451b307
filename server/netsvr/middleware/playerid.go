package middleware

import (
	"context"
	"net/http"
	"strings"
)

// HeaderPlayerID : 玩家身分標頭。閘道層完成驗證後以此標頭注入身分，
// 遊戲服務本身不做認證。
const HeaderPlayerID = "X-Player-Id"

type playerIDKey struct{}

// PlayerID 把 X-Player-Id 標頭放進 request context。
// 標頭缺失不在這裡擋：各 handler 對缺失身分有自己的錯誤碼。
func PlayerID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderPlayerID))
		if id != "" {
			r = r.WithContext(context.WithValue(r.Context(), playerIDKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

// GetPlayerID 取出 context 內的玩家身分；缺失時回傳空字串。
func GetPlayerID(r *http.Request) string {
	if v, ok := r.Context().Value(playerIDKey{}).(string); ok {
		return v
	}
	return ""
}
