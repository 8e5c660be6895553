package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/idpsync/internal/model"
)

// TestWriteTextResponse_WritesPlainText はプレーンテキストでレスポンスが書き込まれることを検証する。
func TestWriteTextResponse_WritesPlainText(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
	}{
		{"200 OK", http.StatusOK, model.MsgUserCreated},
		{"400 Bad Request", http.StatusBadRequest, model.MsgMissingHeaders},
		{"413 Payload Too Large", http.StatusRequestEntityTooLarge, model.MsgPayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteTextResponse(w, tt.statusCode, tt.message)

			resp := w.Result()
			if resp.StatusCode != tt.statusCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.statusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "text/plain; charset=utf-8" {
				t.Errorf("Content-Type = %q, want %q", ct, "text/plain; charset=utf-8")
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != tt.message {
				t.Errorf("body = %q, want %q", string(body), tt.message)
			}
		})
	}
}

// TestWriteInternalServerError_HidesDetails は内部エラーで一般的なメッセージのみ返すことを検証する。
func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != model.MsgInternalError {
		t.Errorf("body = %q, want %q", string(body), model.MsgInternalError)
	}
}
