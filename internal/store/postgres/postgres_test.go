package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/togetherapp/relay/internal/model"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestSaveRecord_FreeText(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	rec := &model.EventRecord{
		ID:         "rec1",
		EventID:    "ev1",
		ForeignKey: "fk1",
		Author:     model.Member{Phone: "+1555"},
		Text:       "hello",
		Created:    100,
		Updated:    100,
		Status:     model.StatusDelivered,
	}

	mock.ExpectExec("INSERT INTO event_records").
		WithArgs("rec1", "ev1", "fk1", "+1555",
			sql.NullString{String: "hello", Valid: true}, nil,
			int64(100), int64(100), false, model.StatusDelivered).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SaveRecord(context.Background(), rec); err != nil {
		t.Fatalf("SaveRecord error: %v", err)
	}
}

func TestSaveRecord_SystemAttachment(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	rec := &model.EventRecord{
		ID:         "rec2",
		EventID:    "ev1",
		ForeignKey: "fk2",
		Author:     model.Member{Phone: "+1555"},
		Attachment: &model.SystemAttachment{
			Kind: model.KindSystem,
			Text: "%@ joined",
		},
		Created: 200,
		Updated: 200,
	}

	mock.ExpectExec("INSERT INTO event_records").
		WithArgs("rec2", "ev1", "fk2", "+1555",
			sql.NullString{}, sqlmock.AnyArg(),
			int64(200), int64(200), false, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SaveRecord(context.Background(), rec); err != nil {
		t.Fatalf("SaveRecord error: %v", err)
	}
}

func TestSaveRecord_Conflict(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	rec := &model.EventRecord{ID: "rec1", Text: "dup"}

	mock.ExpectExec("INSERT INTO event_records").
		WillReturnError(fmt.Errorf("pq: duplicate key value violates unique constraint"))

	if err := s.SaveRecord(context.Background(), rec); err == nil {
		t.Fatal("expected error on conflict, got nil")
	}
}
