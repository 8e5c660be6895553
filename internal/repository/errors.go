package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQLのunique_violationのSQLSTATE。
const pgUniqueViolation = "23505"

// isUniqueViolation はドライバ固有のエラーが一意制約違反かどうかを判定する。
// lib/pq と pgx の両ドライバに対応する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}
