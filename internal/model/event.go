package model

// EventType はWebhookイベントの種別を表す。
type EventType int

const (
	// EventTypeUnknown は処理対象外のイベント。
	EventTypeUnknown EventType = iota
	// EventTypeUserCreated はユーザー作成イベント。
	EventTypeUserCreated
	// EventTypeUserUpdated はユーザー更新イベント。
	EventTypeUserUpdated
	// EventTypeUserDeleted はユーザー削除イベント。
	EventTypeUserDeleted
)

var eventTypeNames = map[string]EventType{
	"user.created": EventTypeUserCreated,
	"user.updated": EventTypeUserUpdated,
	"user.deleted": EventTypeUserDeleted,
}

// ParseEventType はイベント種別の文字列をEventTypeに変換する。
// 未知の文字列はEventTypeUnknownになる。
func ParseEventType(s string) EventType {
	if t, ok := eventTypeNames[s]; ok {
		return t
	}
	return EventTypeUnknown
}

// String はイベント種別のワイヤ表現を返す。
func (t EventType) String() string {
	switch t {
	case EventTypeUserCreated:
		return "user.created"
	case EventTypeUserUpdated:
		return "user.updated"
	case EventTypeUserDeleted:
		return "user.deleted"
	default:
		return "unknown"
	}
}

// Event はWebhookで受信するイベントエンベロープ。
type Event struct {
	Type      string    `json:"type"`
	Object    string    `json:"object,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
	Data      EventData `json:"data"`
}

// Kind はイベント種別を返す。
func (e *Event) Kind() EventType {
	return ParseEventType(e.Type)
}

// EventData はユーザーイベントのペイロード。
// user.deleted では id 以外のフィールドは省略される。
type EventData struct {
	ID                    string         `json:"id"`
	EmailAddresses        []EmailAddress `json:"email_addresses,omitempty"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id,omitempty"`
	Deleted               bool           `json:"deleted,omitempty"`
}

// EmailAddress はIdP上のメールアドレス。
type EmailAddress struct {
	ID           string `json:"id,omitempty"`
	EmailAddress string `json:"email_address"`
}

// FirstEmail は先頭のメールアドレスを返す。存在しない場合は空文字とfalseを返す。
func (d EventData) FirstEmail() (string, bool) {
	if len(d.EmailAddresses) == 0 {
		return "", false
	}
	return d.EmailAddresses[0].EmailAddress, true
}
