// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/idpsync/internal/model"
)

// ErrDuplicate は一意制約違反により書き込みが拒否されたことを示す。
var ErrDuplicate = errors.New("repository: unique constraint violation")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Insert はユーザーを1行挿入する。
	// idまたはemailが既存行と衝突した場合はErrDuplicateをラップしたエラーを返す。
	Insert(ctx context.Context, user *model.User) error

	// UpdateByID は指定IDのユーザーに部分更新を適用し、更新後の行を返す。
	// 該当行がない場合はnilを返す。
	UpdateByID(ctx context.Context, id string, update model.UserUpdate, updatedAt time.Time) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 戻り値は実際に行が削除されたかどうか。
	DeleteByID(ctx context.Context, id string) (bool, error)
}
