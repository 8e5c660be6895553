package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/idpsync/internal/metrics"
	"github.com/hitoshi/idpsync/internal/middleware"
	"github.com/hitoshi/idpsync/internal/model"
	"github.com/hitoshi/idpsync/internal/repository"
	"github.com/hitoshi/idpsync/internal/webhook"
)

// DefaultMaxBodyBytes はWebhookボディの既定の上限サイズ。
const DefaultMaxBodyBytes int64 = 1 << 20

// EventVerifier はWebhookの署名を検証してイベントを返すインターフェース。
type EventVerifier interface {
	Verify(body []byte, header http.Header) (*model.Event, error)
}

// UserMutationService はWebhookハンドラーが必要とするユーザー変更サービスのインターフェース。
type UserMutationService interface {
	// Create はメールアドレスが未登録の場合のみユーザーを作成する。
	// 既に登録済みの場合やストア障害の場合は (nil, nil) を返す。
	Create(ctx context.Context, id, email string, ts time.Time) (*model.User, error)
	// Update はIDに一致するユーザーを更新する。存在しない場合は (nil, nil) を返す。
	Update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	// Delete はIDに一致するユーザーを削除する。存在しない場合も成功とする。
	Delete(ctx context.Context, id string) error
}

// WebhookHandler はIdPからのユーザーイベントWebhookを受け付けるHTTPハンドラー。
type WebhookHandler struct {
	verifier     EventVerifier
	service      UserMutationService
	metrics      metrics.MetricsCollector
	maxBodyBytes int64
	now          func() time.Time
}

// WebhookHandlerOption はWebhookHandlerの任意設定。
type WebhookHandlerOption func(*WebhookHandler)

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) WebhookHandlerOption {
	return func(h *WebhookHandler) {
		h.metrics = m
	}
}

// WithMaxBodyBytes はボディの上限サイズを設定する。
func WithMaxBodyBytes(n int64) WebhookHandlerOption {
	return func(h *WebhookHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithClock はユーザー作成日時に使う時刻関数を差し替える。
func WithClock(now func() time.Time) WebhookHandlerOption {
	return func(h *WebhookHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(verifier EventVerifier, service UserMutationService, opts ...WebhookHandlerOption) *WebhookHandler {
	h := &WebhookHandler{
		verifier:     verifier,
		service:      service,
		maxBodyBytes: DefaultMaxBodyBytes,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// webhookResult はWebhook1件の処理結果。
type webhookResult struct {
	status  int
	message string
}

// HandleWebhook はWebhookを検証し、イベント種別に応じてユーザーを変更する。
// POST /api/webhooks
//
// 検証エラーと入力エラーはユーザー変更の前に400で返す。
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID, _ := middleware.RequestIDFromContext(r.Context())
	logger := slog.Default().With(slog.String("request_id", requestID))

	eventType := model.EventTypeUnknown.String()
	res := h.process(w, r, logger, &eventType)

	if h.metrics != nil {
		h.metrics.RecordWebhook(eventType, res.status)
		h.metrics.RecordWebhookLatency(time.Since(start))
	}

	middleware.WriteTextResponse(w, res.status, res.message)
}

func (h *WebhookHandler) process(w http.ResponseWriter, r *http.Request, logger *slog.Logger, eventType *string) webhookResult {
	if !webhook.HasRequiredHeaders(r.Header) {
		logger.Warn("webhook rejected: missing signature headers")
		h.recordVerificationFailure(webhook.ErrMissingHeaders)
		return webhookResult{http.StatusBadRequest, model.MsgMissingHeaders}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			logger.Warn("webhook rejected: payload too large",
				slog.Int64("limit_bytes", maxErr.Limit),
			)
			return webhookResult{http.StatusRequestEntityTooLarge, model.MsgPayloadTooLarge}
		}
		logger.Warn("webhook rejected: failed to read body", slog.String("error", err.Error()))
		return webhookResult{http.StatusBadRequest, model.MsgVerifyFailed}
	}

	evt, err := h.verifier.Verify(body, r.Header)
	if err != nil {
		logger.Warn("webhook rejected: verification failed", slog.String("error", err.Error()))
		h.recordVerificationFailure(err)
		return webhookResult{http.StatusBadRequest, model.MsgVerifyFailed}
	}

	kind := evt.Kind()
	*eventType = kind.String()
	logger = logger.With(
		slog.String("event_type", evt.Type),
		slog.String("user_id", evt.Data.ID),
	)

	if evt.Data.ID == "" {
		logger.Warn("webhook rejected", slog.String("error", model.ErrMissingUserID.Error()))
		return webhookResult{http.StatusBadRequest, model.MsgMissingUserID}
	}

	ctx := r.Context()

	switch kind {
	case model.EventTypeUserCreated:
		email, ok := evt.Data.FirstEmail()
		if !ok {
			logger.Warn("webhook rejected", slog.String("error", model.ErrNoEmailAddresses.Error()))
			return webhookResult{http.StatusBadRequest, model.MsgNoEmailAddresses}
		}
		u, err := h.service.Create(ctx, evt.Data.ID, email, h.now())
		if err != nil {
			logger.Error("user creation failed", slog.String("error", err.Error()))
			return webhookResult{http.StatusInternalServerError, failureMessage(model.MsgUserCreateFailed, err)}
		}
		logger.Info("user.created handled", slog.Bool("inserted", u != nil))
		return webhookResult{http.StatusOK, model.MsgUserCreated}

	case model.EventTypeUserUpdated:
		email, ok := evt.Data.FirstEmail()
		if !ok {
			logger.Warn("webhook rejected", slog.String("error", model.ErrNoEmailAddresses.Error()))
			return webhookResult{http.StatusBadRequest, model.MsgNoEmailAddresses}
		}
		u, err := h.service.Update(ctx, evt.Data.ID, model.UserUpdate{Email: &email})
		if err != nil {
			logger.Error("user update failed", slog.String("error", err.Error()))
			return webhookResult{http.StatusInternalServerError, failureMessage(model.MsgUserUpdateFailed, err)}
		}
		logger.Info("user.updated handled", slog.Bool("found", u != nil))
		return webhookResult{http.StatusOK, model.MsgUserUpdated}

	case model.EventTypeUserDeleted:
		if err := h.service.Delete(ctx, evt.Data.ID); err != nil {
			logger.Error("user deletion failed", slog.String("error", err.Error()))
			return webhookResult{http.StatusInternalServerError, failureMessage(model.MsgUserDeleteFailed, err)}
		}
		logger.Info("user.deleted handled")
		return webhookResult{http.StatusOK, model.MsgUserDeleted}

	default:
		logger.Info("event type not handled")
		return webhookResult{http.StatusOK, model.MsgEventNotHandled}
	}
}

func (h *WebhookHandler) recordVerificationFailure(err error) {
	if h.metrics != nil {
		h.metrics.RecordVerificationFailure(verificationFailureReason(err))
	}
}

// failureMessage は500応答の本文を組み立てる。
// ストアのエラー文字列は接続先などを含みうるため、分類名だけを付ける。
func failureMessage(msg string, err error) string {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return msg + ": " + model.FailureEmailInUse
	case errors.Is(err, context.DeadlineExceeded):
		return msg + ": " + model.FailureTimeout
	case errors.Is(err, context.Canceled):
		return msg + ": " + model.FailureCanceled
	default:
		return msg + ": " + model.FailureStore
	}
}

// verificationFailureReason は検証エラーをメトリクスのラベル値に変換する。
func verificationFailureReason(err error) string {
	switch {
	case errors.Is(err, webhook.ErrMissingHeaders):
		return "missing_headers"
	case errors.Is(err, webhook.ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, webhook.ErrTimestampTooOld):
		return "timestamp_too_old"
	case errors.Is(err, webhook.ErrTimestampTooNew):
		return "timestamp_too_new"
	case errors.Is(err, webhook.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, webhook.ErrInvalidPayload):
		return "invalid_payload"
	default:
		return "other"
	}
}
