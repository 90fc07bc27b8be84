package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/itchan-dev/itboard/shared/domain"
	internal_errors "github.com/itchan-dev/itboard/shared/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db), mock
}

func replyData() domain.ReplyCreationData {
	return domain.ReplyCreationData{
		ThreadId:  1,
		Body:      "Hi!",
		Bumped:    true,
		Name:      "Nameless",
		Ident:     "abcdefgh",
		IpAddress: "1.2.3.4",
	}
}

func TestCreateReply_Commits(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO replies")).
		WithArgs(int64(1), "Hi!", true, "Nameless", "abcdefgh", "1.2.3.4").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(10), now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE threads SET")).
		WithArgs(int64(1), now, true, int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.CreateReply(context.Background(), replyData(), 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyId(10), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReply_NumberCollisionIsWriteConflict(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO replies")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: replyNumberConstraint})
	mock.ExpectRollback()

	_, err := s.CreateReply(context.Background(), replyData(), 0)
	assert.ErrorIs(t, err, internal_errors.ErrWriteConflict)
	assert.NoError(t, mock.ExpectationsWereMet(), "attempt must be rolled back")
}

func TestCreateReply_MissingThread(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO replies")).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "replies_thread_id_fkey"})
	mock.ExpectRollback()

	_, err := s.CreateReply(context.Background(), replyData(), 0)
	assert.ErrorIs(t, err, internal_errors.ErrNotFound)
	assert.NotErrorIs(t, err, internal_errors.ErrWriteConflict)
}

func TestCreateThread_InsertsFirstReplyInSameTransaction(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO threads")).
		WithArgs(int64(3), "Hello").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO replies")).
		WithArgs(int64(42), "World", true, "", "", "1.2.3.4").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(100), now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE threads SET")).
		WithArgs(int64(42), now, true, int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.CreateThread(context.Background(), domain.ThreadCreationData{
		BoardId: 3,
		Title:   "Hello",
		OpReply: domain.ReplyCreationData{Body: "World", Bumped: true, IpAddress: "1.2.3.4"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ThreadId(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateThread_ReplyFailureRollsBack(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO threads")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO replies")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.CreateThread(context.Background(), domain.ThreadCreationData{BoardId: 3, Title: "Hello"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBoard_NotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM boards WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetBoard(context.Background(), 7)
	assert.ErrorIs(t, err, internal_errors.ErrNotFound)
	assert.Equal(t, 404, internal_errors.StatusCode(err))
}

func TestGetBoardBySlug_ScansSettings(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM boards WHERE slug = $1")).
		WithArgs("foo").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug", "description", "status", "settings", "created_at", "updated_at"}).
			AddRow(int64(1), "Foo", "foo", "", "open", []byte(`{"post_delay": 30, "name": "Anon"}`), now, now))

	b, err := s.GetBoardBySlug(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, 30, b.PostDelay())
	assert.Equal(t, "Anon", b.Settings.Name)
}

func TestCreateBoard_DuplicateSlug(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO boards")).
		WithArgs("Foo", "foo", "", "open", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "boards_slug_key"})

	_, err := s.CreateBoard(context.Background(), domain.BoardCreationData{Title: "Foo", Slug: "foo", Settings: domain.DefaultBoardSettings()})
	assert.ErrorIs(t, err, internal_errors.ErrAlreadyExists)
	assert.NotErrorIs(t, err, internal_errors.ErrWriteConflict)
}

func TestMapError_ContextErrorsPassThrough(t *testing.T) {
	err := mapError(context.DeadlineExceeded, "thread", 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, mapError(nil, "thread", 1))
}
