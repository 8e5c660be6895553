package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/idpsync/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// newSQLiteRepo はインメモリSQLite上にusersテーブルを作成したリポジトリを返す。
func newSQLiteRepo(t *testing.T) (*BunUserRepo, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if _, err := db.NewCreateTable().Model((*model.User)(nil)).Exec(ctx); err != nil {
		t.Fatalf("failed to create users table: %v", err)
	}

	return NewBunUserRepo(db), db
}

func TestBunUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*BunUserRepo)(nil)
}

func TestBunUserRepo_InsertAndFind(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := repo.Insert(ctx, &model.User{ID: "usr_1", Email: "a@example.com", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	byID, err := repo.FindByID(ctx, "usr_1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if byID == nil {
		t.Fatal("expected user, got nil")
	}
	if byID.Email != "a@example.com" {
		t.Errorf("Email = %q, want %q", byID.Email, "a@example.com")
	}
	if !byID.CreatedAt.Equal(ts) || !byID.UpdatedAt.Equal(ts) {
		t.Errorf("timestamps = (%v, %v), want both %v", byID.CreatedAt, byID.UpdatedAt, ts)
	}

	byEmail, err := repo.FindByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if byEmail == nil || byEmail.ID != "usr_1" {
		t.Errorf("FindByEmail = %+v, want usr_1", byEmail)
	}
}

func TestBunUserRepo_FindMissing_ReturnsNil(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	u, err := repo.FindByID(ctx, "missing")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}

	u, err = repo.FindByEmail(ctx, "missing@example.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}
}

func TestBunUserRepo_UpdateByID(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := created.Add(time.Hour)

	if err := repo.Insert(ctx, &model.User{ID: "usr_1", Email: "a@example.com", CreatedAt: created, UpdatedAt: created}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	email := "b@example.com"
	u, err := repo.UpdateByID(ctx, "usr_1", model.UserUpdate{Email: &email}, updated)
	if err != nil {
		t.Fatalf("UpdateByID returned error: %v", err)
	}
	if u == nil {
		t.Fatal("expected updated user, got nil")
	}
	if u.ID != "usr_1" {
		t.Errorf("ID = %q, want %q", u.ID, "usr_1")
	}
	if u.Email != email {
		t.Errorf("Email = %q, want %q", u.Email, email)
	}
	if !u.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", u.CreatedAt, created)
	}
	if !u.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", u.UpdatedAt, updated)
	}
}

func TestBunUserRepo_UpdateByID_Missing_ReturnsNil(t *testing.T) {
	repo, _ := newSQLiteRepo(t)

	email := "b@example.com"
	u, err := repo.UpdateByID(context.Background(), "missing", model.UserUpdate{Email: &email}, time.Now())
	if err != nil {
		t.Fatalf("UpdateByID returned error: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}
}

func TestBunUserRepo_DeleteByID(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	if err := repo.Insert(ctx, &model.User{ID: "usr_1", Email: "a@example.com", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	deleted, err := repo.DeleteByID(ctx, "usr_1")
	if err != nil {
		t.Fatalf("DeleteByID returned error: %v", err)
	}
	if !deleted {
		t.Error("expected deleted = true")
	}

	u, err := repo.FindByID(ctx, "usr_1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if u != nil {
		t.Errorf("expected user to be gone, got %+v", u)
	}

	deleted, err = repo.DeleteByID(ctx, "usr_1")
	if err != nil {
		t.Fatalf("second DeleteByID returned error: %v", err)
	}
	if deleted {
		t.Error("expected deleted = false for missing row")
	}
}

func TestBunUserRepo_Insert_DuplicateEmail_ReturnsError(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	if err := repo.Insert(ctx, &model.User{ID: "usr_1", Email: "a@example.com", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if err := repo.Insert(ctx, &model.User{ID: "usr_2", Email: "a@example.com", CreatedAt: ts, UpdatedAt: ts}); err == nil {
		t.Fatal("expected unique constraint error for duplicate email")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"pq unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped pq unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"pq other error", &pq.Error{Code: "23503"}, false},
		{"pgx unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"pgx other error", &pgconn.PgError{Code: "40001"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
