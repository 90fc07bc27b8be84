package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/itchan-dev/itboard/shared/domain"
)

// CreateReply appends a reply to a thread. The next number is derived from
// the current maximum, so two concurrent writers can pick the same one; the
// loser gets ErrWriteConflict and its transaction is rolled back.
// A positive lockAt locks the thread once it holds that many replies.
func (s *Storage) CreateReply(ctx context.Context, data domain.ReplyCreationData, lockAt int) (domain.ReplyId, error) {
	var id domain.ReplyId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.createReply(ctx, tx, data, lockAt)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Storage) createReply(ctx context.Context, q Querier, data domain.ReplyCreationData, lockAt int) (domain.ReplyId, error) {
	var id domain.ReplyId
	var createdAt time.Time
	err := q.QueryRowContext(ctx, `
		INSERT INTO replies (thread_id, number, body, bumped, name, ident, ip_address)
		SELECT $1, COALESCE(MAX(number), 0) + 1, $2, $3, $4, $5, $6
		FROM replies
		WHERE thread_id = $1
		RETURNING id, created_at`,
		data.ThreadId, data.Body, data.Bumped, data.Name, data.Ident, data.IpAddress,
	).Scan(&id, &createdAt)
	if err != nil {
		return 0, mapError(err, "thread", data.ThreadId)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE threads SET
			post_count = post_count + 1,
			posted_at = $2,
			bumped_at = CASE WHEN $3::boolean THEN $2 ELSE bumped_at END,
			status = CASE WHEN $4::integer > 0 AND post_count + 1 >= $4::integer THEN 'locked' ELSE status END
		WHERE id = $1`,
		data.ThreadId, createdAt, data.Bumped, lockAt,
	)
	if err != nil {
		return 0, mapError(err, "thread", data.ThreadId)
	}
	if err := requireAffected(result, "thread", data.ThreadId); err != nil {
		return 0, err
	}
	return id, nil
}

const replyColumns = `id, thread_id, number, body, bumped, name, ident, host(ip_address), created_at`

func scanReply(row interface{ Scan(...any) error }) (domain.Reply, error) {
	var r domain.Reply
	err := row.Scan(&r.Id, &r.ThreadId, &r.Number, &r.Body, &r.Bumped, &r.Name, &r.Ident, &r.IpAddress, &r.CreatedAt)
	return r, err
}

func (s *Storage) GetReply(ctx context.Context, id domain.ReplyId) (domain.Reply, error) {
	r, err := scanReply(s.db.QueryRowContext(ctx, `SELECT `+replyColumns+` FROM replies WHERE id = $1`, id))
	if err != nil {
		return domain.Reply{}, mapError(err, "reply", id)
	}
	return r, nil
}

// ListReplies returns a thread's replies in number order.
func (s *Storage) ListReplies(ctx context.Context, threadId domain.ThreadId) ([]domain.Reply, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+replyColumns+` FROM replies WHERE thread_id = $1 ORDER BY number`, threadId)
	if err != nil {
		return nil, mapError(err, "thread", threadId)
	}
	defer rows.Close()

	var replies []domain.Reply
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, mapError(err, "reply", threadId)
		}
		replies = append(replies, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "thread", threadId)
	}
	return replies, nil
}
