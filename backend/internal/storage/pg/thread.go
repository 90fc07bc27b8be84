package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/itchan-dev/itboard/shared/domain"
	internal_errors "github.com/itchan-dev/itboard/shared/errors"
)

// CreateThread inserts the thread and its first reply in one transaction.
func (s *Storage) CreateThread(ctx context.Context, data domain.ThreadCreationData) (domain.ThreadId, error) {
	var id domain.ThreadId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO threads (board_id, title)
			VALUES ($1, $2)
			RETURNING id`,
			data.BoardId, data.Title,
		).Scan(&id); err != nil {
			return mapError(err, "board", data.BoardId)
		}

		data.OpReply.ThreadId = id
		if _, err := s.createReply(ctx, tx, data.OpReply, 0); err != nil {
			return fmt.Errorf("failed to create first reply: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Storage) GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error) {
	var t domain.Thread
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, title, status, post_count, created_at, bumped_at, posted_at
		FROM threads
		WHERE id = $1`, id,
	).Scan(&t.Id, &t.BoardId, &t.Title, &t.Status, &t.PostCount, &t.CreatedAt, &t.BumpedAt, &t.PostedAt)
	if err != nil {
		return domain.Thread{}, mapError(err, "thread", id)
	}
	return t, nil
}

func requireAffected(result sql.Result, entity string, id any) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %v: %w", entity, id, internal_errors.ErrNotFound)
	}
	return nil
}
