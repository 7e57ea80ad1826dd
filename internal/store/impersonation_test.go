package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"taskhub/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return db, mock
}

func TestImpersonationOpen(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewImpersonation(db)

	started := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(impersonationLockClass, int32(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "impersonation_logs" SET "ended_at"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "impersonation_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	entry := &model.ImpersonationLog{AdminID: 1, TargetUserID: 2, StartedAt: started, Reason: "support ticket"}
	staleClosed, err := s.Open(context.Background(), entry)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if staleClosed != 0 {
		t.Fatalf("expected no stale logs closed, got %d", staleClosed)
	}
	if entry.ID != 42 {
		t.Fatalf("expected assigned ID 42, got %d", entry.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestImpersonationOpenReportsStaleClosure(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewImpersonation(db)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "impersonation_logs" SET "ended_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "impersonation_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(43))
	mock.ExpectCommit()

	entry := &model.ImpersonationLog{AdminID: 1, TargetUserID: 3, StartedAt: time.Now()}
	staleClosed, err := s.Open(context.Background(), entry)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if staleClosed != 1 {
		t.Fatalf("expected 1 stale log closed, got %d", staleClosed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestImpersonationOpenRollsBackOnLockFailure(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewImpersonation(db)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	entry := &model.ImpersonationLog{AdminID: 1, TargetUserID: 2, StartedAt: time.Now()}
	if _, err := s.Open(context.Background(), entry); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestImpersonationClose(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewImpersonation(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "impersonation_logs" SET "ended_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	closed, err := s.Close(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected 1 row closed, got %d", closed)
	}

	// Closing again is a no-op, not an error.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "impersonation_logs" SET "ended_at"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	closed, err = s.Close(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed != 0 {
		t.Fatalf("expected 0 rows closed, got %d", closed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestImpersonationActiveByAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewImpersonation(db)

	started := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM "impersonation_logs" WHERE admin_id = .+ AND ended_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "admin_id", "target_user_id", "started_at"}).
			AddRow(7, 1, 2, started))

	entry, err := s.ActiveByAdmin(context.Background(), 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if entry.ID != 7 || entry.TargetUserID != 2 || !entry.Active() {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	mock.ExpectQuery(`SELECT .+ FROM "impersonation_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := s.ActiveByAdmin(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestImpersonationListOrdersNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewImpersonation(db)

	mock.ExpectQuery(`SELECT .+ FROM "impersonation_logs" WHERE admin_id = .+ ORDER BY started_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "admin_id", "target_user_id"}).
			AddRow(2, 1, 3).
			AddRow(1, 1, 2))

	entries, err := s.List(context.Background(), LogFilter{AdminID: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != 2 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
