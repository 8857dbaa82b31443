package sessioninfra_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flagforge/flagforge/pkg/iam/session"
	"github.com/flagforge/flagforge/pkg/iam/session/sessioninfra"
	"github.com/jmoiron/sqlx"
)

func newMockStore(t *testing.T) (session.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sessioninfra.NewPostgresSessionStore(sqlx.NewDb(db, "sqlmock")), mock
}

func sessionColumns() []string {
	return []string{"id", "user_id", "organization_id", "token_hash", "expires_at", "created_at", "updated_at"}
}

func TestCreate_InsertsPlaceholder(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO refresh_sessions").
		WithArgs(sqlmock.AnyArg(), "user-1", "org-1", "pending", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := store.Create(context.Background(), "user-1", "org-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated chain id")
	}
	if rec.TokenHash != "pending" {
		t.Fatalf("expected placeholder hash, got %q", rec.TokenHash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFinalize_MissingChain(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE refresh_sessions SET token_hash = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("hash", sqlmock.AnyArg(), "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Finalize(context.Background(), "nope", "hash"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRotate_Success(t *testing.T) {
	store, mock := newMockStore(t)
	future := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM refresh_sessions WHERE id = $1 FOR UPDATE`)).
		WithArgs("chain-1").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("chain-1", "user-1", "org-1", "old-hash", future, time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE refresh_sessions SET token_hash = $1, expires_at = $2, updated_at = $3 WHERE id = $4`)).
		WithArgs("new-hash", sqlmock.AnyArg(), sqlmock.AnyArg(), "chain-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := store.Rotate(context.Background(), "chain-1", "old-hash", "new-hash", future.Add(time.Hour))
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if rec.TokenHash != "new-hash" {
		t.Fatalf("expected advanced hash, got %q", rec.TokenHash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRotate_HashMismatchIsReuse(t *testing.T) {
	store, mock := newMockStore(t)
	future := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM refresh_sessions WHERE id = $1 FOR UPDATE`)).
		WithArgs("chain-1").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("chain-1", "user-1", "org-1", "current-hash", future, time.Now(), time.Now()))
	mock.ExpectRollback()

	_, err := store.Rotate(context.Background(), "chain-1", "superseded-hash", "new-hash", future)
	if !errors.Is(err, session.ErrHashMismatch) {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRotate_MissingChain(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM refresh_sessions WHERE id = $1 FOR UPDATE`)).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows(sessionColumns()))
	mock.ExpectRollback()

	_, err := store.Rotate(context.Background(), "gone", "any", "new", time.Now())
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRotate_ExpiredChainIsDeleted(t *testing.T) {
	store, mock := newMockStore(t)
	past := time.Now().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM refresh_sessions WHERE id = $1 FOR UPDATE`)).
		WithArgs("chain-1").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("chain-1", "user-1", "org-1", "old-hash", past, time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_sessions WHERE id = $1`)).
		WithArgs("chain-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := store.Rotate(context.Background(), "chain-1", "old-hash", "new-hash", time.Now().Add(time.Hour))
	if !errors.Is(err, session.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteExpired_ReportsCount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_sessions WHERE expires_at < NOW()`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 removed, got %d", n)
	}
}
