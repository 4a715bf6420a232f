package migrate

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"0001_kv.up.sql":      {Data: []byte("create table kv (key text primary key);\n")},
		"0001_kv.down.sql":    {Data: []byte("drop table kv;")},
		"0002_index.up.sql":   {Data: []byte("-- speeds up cleanup\ncreate index kv_key on kv(key);\ninsert into kv values ('a;b');")},
		"README.md":           {Data: []byte("not sql")},
		"0002_index.down.sql": {Data: []byte("drop index kv_key;")},
	}
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists kv_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from kv_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_kv.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("create index kv_key on kv").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`insert into kv values \('a;b'\)`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into kv_migrations").
		WithArgs("0002_index.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := New(db, testFiles(), WithTable("kv_migrations")).Up(context.Background())
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if !reflect.DeepEqual(applied, []string{"0002_index.up.sql"}) {
		t.Fatalf("applied = %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpRollsBackFailedFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table kv").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	applied, err := New(db, testFiles()).Up(context.Background())
	if err == nil {
		t.Fatalf("expected failure")
	}
	if len(applied) != 0 {
		t.Fatalf("nothing should be recorded, got %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownRevertsLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_kv.up.sql").AddRow("0002_index.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop index kv_key").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from schema_migrations").WithArgs("0002_index.up.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	name, err := New(db, testFiles()).Down(context.Background())
	if err != nil {
		t.Fatalf("Down: %v", err)
	}
	if name != "0002_index.up.sql" {
		t.Fatalf("reverted %q", name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownWithEmptyHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))

	if _, err := New(db, testFiles()).Down(context.Background()); !errors.Is(err, ErrNothingApplied) {
		t.Fatalf("expected ErrNothingApplied, got %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"select 1;select 2;", []string{"select 1", "select 2"}},
		{"insert into t values ('x;y');", []string{"insert into t values ('x;y')"}},
		{"-- comment\nselect 1", []string{"select 1"}},
		{" ; ;", nil},
	}
	for _, tc := range cases {
		if got := splitStatements(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("splitStatements(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
