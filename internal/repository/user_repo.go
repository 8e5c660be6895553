package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/idpsync/internal/model"
	"github.com/uptrace/bun"
)

// BunUserRepo はbunを使用したユーザーリポジトリ。
type BunUserRepo struct {
	db bun.IDB
}

// NewBunUserRepo はBunUserRepoを生成する。
// dbには*bun.DBまたはbun.Txを渡す。
func NewBunUserRepo(db bun.IDB) *BunUserRepo {
	return &BunUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *BunUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := new(model.User)
	err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *BunUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := new(model.User)
	err := r.db.NewSelect().
		Model(user).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Insert はユーザーを1行挿入する。
func (r *BunUserRepo) Insert(ctx context.Context, user *model.User) error {
	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert user %s: %w", user.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateByID は指定IDのユーザーに部分更新を適用し、更新後の行を返す。
// 該当行がない場合はnilを返す。
func (r *BunUserRepo) UpdateByID(ctx context.Context, id string, update model.UserUpdate, updatedAt time.Time) (*model.User, error) {
	q := r.db.NewUpdate().
		TableExpr("users").
		Set("updated_at = ?", updatedAt).
		Where("id = ?", id)
	if update.Email != nil {
		q = q.Set("email = ?", *update.Email)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to update user %s: %w", id, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.FindByID(ctx, id)
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *BunUserRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.NewDelete().
		TableExpr("users").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ UserRepository = (*BunUserRepo)(nil)
