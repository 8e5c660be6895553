package middleware

import (
	"net/http"

	"github.com/hitoshi/idpsync/internal/model"
)

// WriteTextResponse はプレーンテキストのレスポンスを書き込む。
// Webhookの送信元はボディをそのまま配信ログに表示するため、JSONではなくテキストで返す。
func WriteTextResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	w.Write([]byte(message))
}

// WriteInternalServerError は内部サーバーエラーのレスポンスを書き込む。
// 詳細はログのみに記録し、呼び出し元には一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteTextResponse(w, http.StatusInternalServerError, model.MsgInternalError)
}
