// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/uptrace/bun"
)

// User はIdPから同期されたユーザーレコードを表す。
// IdPが正であり、このテーブルは受動的なレプリカとして扱う。
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk"`
	Email     string    `bun:"email,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// UserUpdate はユーザーの部分更新内容を表す。
// nilのフィールドは変更しない。
type UserUpdate struct {
	Email *string
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil
}
