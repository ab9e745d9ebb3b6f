package delay_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/delay"
)

const (
	sqlDeleteRecords = `DELETE FROM delay_records`
	sqlInsertRecord  = `INSERT INTO delay_records (seq, body) VALUES ($1, $2)`
	sqlUpsertClock   = `INSERT INTO delay_meta (id, clock) VALUES (1, $1)`
	sqlSelectClock   = `SELECT clock FROM delay_meta WHERE id = 1`
	sqlSelectRecords = `SELECT body FROM delay_records ORDER BY seq`
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestPostgresStoreSave(t *testing.T) {
	db, mock := newMockDB(t)
	store := delay.NewPostgresStore(db)
	a := sampleArchive(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(sqlDeleteRecords)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	for i, rec := range a.Records {
		mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).
			WithArgs(i, string(rec)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(regexp.QuoteMeta(sqlUpsertClock)).
		WithArgs(int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), a))
}

func TestPostgresStoreSaveRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	store := delay.NewPostgresStore(db)
	a := sampleArchive(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(sqlDeleteRecords)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).
		WithArgs(0, string(a.Records[0])).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), a)
	assert.ErrorContains(t, err, "insert record 0")
	assert.ErrorContains(t, err, "disk full")
}

func TestPostgresStoreLoad(t *testing.T) {
	db, mock := newMockDB(t)
	store := delay.NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectClock)).
		WillReturnRows(sqlmock.NewRows([]string{"clock"}).AddRow(int64(40)))
	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).
			AddRow(`{"id":"a","tick":50,"command":"one","source":"server"}`).
			AddRow(`{"id":"b","tick":45,"command":"two","source":"server"}`),
		)

	a, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, delay.Tick(40), a.Clock)

	s := delay.NewScheduler(newDispatchLog())
	assert.Equal(t, 2, s.Import(a.Records))
	assert.Equal(t, []string{"a", "b"}, s.IDs())
}

func TestPostgresStoreLoadEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	store := delay.NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectClock)).
		WillReturnRows(sqlmock.NewRows([]string{"clock"}))
	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	a, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, delay.Tick(0), a.Clock)
	assert.Empty(t, a.Records)
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)
	store := delay.NewPostgresStore(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS delay_records").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(context.Background()))

	mock.ExpectExec("CREATE TABLE").
		WillReturnError(errors.New("permission denied"))
	assert.ErrorContains(t,
		store.EnsureSchema(context.Background()), "create schema",
	)
}
