// Package user はIdPから受け取ったユーザーイベントをusersテーブルへ反映するサービスを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/idpsync/internal/metrics"
	"github.com/hitoshi/idpsync/internal/model"
	"github.com/hitoshi/idpsync/internal/repository"
)

// MutationRecorder は操作ごとの結果を記録するインターフェース。
// metrics.MetricsCollector がこれを満たす。
type MutationRecorder interface {
	RecordMutation(operation, result string)
}

// Service はユーザーレコードの作成・更新・削除を行うサービス層。
// 各操作はストアへの単一の書き込み（Createのみ事前の存在確認を含む）で完結する。
type Service struct {
	userRepo repository.UserRepository
	recorder MutationRecorder
	now      func() time.Time
}

// Option はServiceのオプション設定。
type Option func(*Service)

// WithClock は更新日時に使用する時計を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics は操作結果の記録先を設定する。
func WithMetrics(r MutationRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, opts ...Option) *Service {
	s := &Service{
		userRepo: userRepo,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create はユーザーを作成する。
// 同じメールアドレスのユーザーが既に存在する場合は挿入せずnilを返す（エラーではない）。
// 存在確認と挿入の間に同時実行で一意制約違反が起きた場合も同様にnilを返す。
// ストア障害もエラーとして返さず、エラーログを出力してnilを返す。
func (s *Service) Create(ctx context.Context, id, email string, ts time.Time) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("failed to check existing user",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
		s.record("create", metrics.ResultError)
		return nil, nil
	}
	if existing != nil {
		slog.Info("user already exists, skipping insert",
			slog.String("user_id", id),
			slog.String("existing_user_id", existing.ID),
		)
		s.record("create", metrics.ResultSkipped)
		return nil, nil
	}

	u := &model.User{
		ID:        id,
		Email:     email,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.userRepo.Insert(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			slog.Info("user inserted concurrently, skipping insert",
				slog.String("user_id", id),
			)
			s.record("create", metrics.ResultSkipped)
			return nil, nil
		}
		slog.Error("failed to create user",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
		s.record("create", metrics.ResultError)
		return nil, nil
	}

	slog.Info("user created", slog.String("user_id", u.ID))
	s.record("create", metrics.ResultApplied)
	return u, nil
}

// Update は指定IDのユーザーに部分更新を適用し、更新後のユーザーを返す。
// 該当ユーザーが存在しない場合はnilを返す（エラーではない）。
// 更新内容が空の場合は書き込まずに現在の行を返す。
func (s *Service) Update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	if update.IsEmpty() {
		u, err := s.userRepo.FindByID(ctx, id)
		if err != nil {
			s.record("update", metrics.ResultError)
			return nil, fmt.Errorf("failed to find user %s: %w", id, err)
		}
		s.record("update", metrics.ResultSkipped)
		return u, nil
	}

	u, err := s.userRepo.UpdateByID(ctx, id, update, s.now())
	if err != nil {
		s.record("update", metrics.ResultError)
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if u == nil {
		slog.Warn("user to update was not found", slog.String("user_id", id))
		s.record("update", metrics.ResultSkipped)
		return nil, nil
	}

	slog.Info("user updated", slog.String("user_id", id))
	s.record("update", metrics.ResultApplied)
	return u, nil
}

// Delete は指定IDのユーザーを削除する。
// 該当ユーザーが存在しない場合も成功として扱う。
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.userRepo.DeleteByID(ctx, id)
	if err != nil {
		s.record("delete", metrics.ResultError)
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}

	slog.Info("user deleted",
		slog.String("user_id", id),
		slog.Bool("existed", deleted),
	)
	if deleted {
		s.record("delete", metrics.ResultApplied)
	} else {
		s.record("delete", metrics.ResultSkipped)
	}
	return nil
}

func (s *Service) record(operation, result string) {
	if s.recorder != nil {
		s.recorder.RecordMutation(operation, result)
	}
}
