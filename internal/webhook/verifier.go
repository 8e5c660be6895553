// Package webhook はSvix方式で署名されたWebhookリクエストの検証を提供する。
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/hitoshi/idpsync/internal/model"
)

// 署名ヘッダー名。Svixのヘッダー名を優先し、Standard Webhooksの名前も受け付ける。
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	headerIDFallback        = "webhook-id"
	headerTimestampFallback = "webhook-timestamp"
	headerSignatureFallback = "webhook-signature"
)

const (
	secretPrefix = "whsec_"

	// DefaultTolerance はタイムスタンプの許容ずれ。
	DefaultTolerance = 5 * time.Minute
)

var (
	// ErrMissingHeaders は署名ヘッダーが欠けていることを示す。
	ErrMissingHeaders = errors.New("webhook: missing required headers")
	// ErrInvalidTimestamp はタイムスタンプヘッダーが整数秒でないことを示す。
	ErrInvalidTimestamp = errors.New("webhook: invalid timestamp header")
	// ErrTimestampTooOld はタイムスタンプが許容範囲より古いことを示す。
	ErrTimestampTooOld = errors.New("webhook: message timestamp too old")
	// ErrTimestampTooNew はタイムスタンプが許容範囲より新しいことを示す。
	ErrTimestampTooNew = errors.New("webhook: message timestamp too new")
	// ErrInvalidSignature は署名が一致しないことを示す。
	ErrInvalidSignature = errors.New("webhook: no matching signature found")
	// ErrInvalidPayload は署名済みボディがイベントとして解釈できないことを示す。
	ErrInvalidPayload = errors.New("webhook: invalid payload")
)

// Verifier はSvix SDKで署名を検証し、ボディをイベントとしてデコードする。
// タイムスタンプの許容範囲と時計はVerifier側で判定する。
type Verifier struct {
	wh        *svix.Webhook
	tolerance time.Duration
	now       func() time.Time
}

// Option はVerifierのオプション設定。
type Option func(*Verifier)

// WithTolerance はタイムスタンプの許容ずれを設定する。0以下の場合はDefaultToleranceを使う。
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier はシークレットからVerifierを生成する。
// シークレットは "whsec_" で始まるbase64文字列（プレフィックスは省略可）。
func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if strings.TrimPrefix(secret, secretPrefix) == "" {
		return nil, errors.New("webhook: signing secret is required")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("webhook: decode signing secret: %w", err)
	}

	v := &Verifier{
		wh:        wh,
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// HasRequiredHeaders はid、timestamp、signatureの3ヘッダーが揃っているかを返す。
func HasRequiredHeaders(h http.Header) bool {
	_, _, _, ok := signatureHeaders(h)
	return ok
}

// Verify はボディとヘッダーの署名を検証し、デコードしたイベントを返す。
func (v *Verifier) Verify(body []byte, h http.Header) (*model.Event, error) {
	_, msgTimestamp, _, ok := signatureHeaders(h)
	if !ok {
		return nil, ErrMissingHeaders
	}
	if err := v.checkTimestamp(msgTimestamp); err != nil {
		return nil, err
	}

	// タイムスタンプは上で判定済みのため、SDKには署名の照合のみを任せる。
	if err := v.wh.VerifyIgnoringTimestamp(body, h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var evt model.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &evt, nil
}

// Sign はメッセージに対する署名ヘッダーの値（"v1,<base64>"）を返す。
func (v *Verifier) Sign(msgID string, ts time.Time, body []byte) (string, error) {
	return v.wh.Sign(msgID, ts, body)
}

func (v *Verifier) checkTimestamp(raw string) error {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	ts := time.Unix(sec, 0)

	now := v.now()
	if now.Sub(ts) > v.tolerance {
		return ErrTimestampTooOld
	}
	if ts.Sub(now) > v.tolerance {
		return ErrTimestampTooNew
	}
	return nil
}

// signatureHeaders はsvix-*の3ヘッダーが揃っていればそれを、揃っていなければwebhook-*の3ヘッダーを返す。
// 名前の混在はSDKが受け付けないため揃っていない扱いになる。
func signatureHeaders(h http.Header) (id, ts, sig string, ok bool) {
	id, ts, sig = h.Get(HeaderID), h.Get(HeaderTimestamp), h.Get(HeaderSignature)
	if id != "" && ts != "" && sig != "" {
		return id, ts, sig, true
	}
	id, ts, sig = h.Get(headerIDFallback), h.Get(headerTimestampFallback), h.Get(headerSignatureFallback)
	return id, ts, sig, id != "" && ts != "" && sig != ""
}
