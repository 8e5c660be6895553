package model

import "errors"

// レスポンスメッセージ。IdP側のWebhookログに表示される。
const (
	MsgMissingHeaders    = "Error: Missing svix headers"
	MsgVerifyFailed      = "Error occurred"
	MsgMissingUserID     = "Error: User ID is undefined"
	MsgNoEmailAddresses  = "No email addresses found"
	MsgUserCreated       = "User created"
	MsgUserUpdated       = "User updated"
	MsgUserDeleted       = "User deleted"
	MsgEventNotHandled   = "Event type not handled"
	MsgUserCreateFailed  = "User creation failed"
	MsgUserUpdateFailed  = "User update failed"
	MsgUserDeleteFailed  = "User deletion failed"
	MsgPayloadTooLarge   = "Error: Payload too large"
	MsgInternalError     = "internal server error"
	MsgRateLimitExceeded = "Too many requests"
)

// 500応答で失敗メッセージの後ろに付ける分類名。
const (
	FailureEmailInUse = "email already in use"
	FailureTimeout    = "store timeout"
	FailureCanceled   = "request canceled"
	FailureStore      = "store error"
)

var (
	// ErrMissingUserID はイベントにユーザーIDが含まれていないことを示す。
	ErrMissingUserID = errors.New("user id is undefined")
	// ErrNoEmailAddresses はイベントにメールアドレスが含まれていないことを示す。
	ErrNoEmailAddresses = errors.New("no email addresses found")
)
