package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGGetSetDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	kv := NewPG(db)
	ctx := context.Background()

	mock.ExpectExec("insert into timepay_kv").WithArgs(KeyAccessToken, "A").WillReturnResult(sqlmock.NewResult(1, 1))
	if err := kv.Set(ctx, KeyAccessToken, "A"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mock.ExpectQuery("select value from timepay_kv").WithArgs(KeyAccessToken).WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("A"))
	v, ok, err := kv.Get(ctx, KeyAccessToken)
	if err != nil || !ok || v != "A" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	mock.ExpectQuery("select value from timepay_kv").WithArgs(KeyRefreshToken).WillReturnError(sql.ErrNoRows)
	if _, ok, err := kv.Get(ctx, KeyRefreshToken); err != nil || ok {
		t.Fatalf("expected missing refresh token, ok=%v err=%v", ok, err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("delete from timepay_kv").WithArgs(KeyAccessToken).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from timepay_kv").WithArgs(KeyRefreshToken).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	if err := kv.Delete(ctx, KeyAccessToken, KeyRefreshToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGEnsure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists timepay_schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from timepay_schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table if not exists timepay_kv").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into timepay_schema_migrations").
		WithArgs("0001_timepay_kv.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	if err := NewPG(db).Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGEnsureSkipsAppliedFiles(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists timepay_schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from timepay_schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_timepay_kv.up.sql"))
	if err := NewPG(db).Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
