package pg

import (
	"context"

	"github.com/itchan-dev/itboard/shared/domain"
)

const boardColumns = `id, title, slug, description, status, settings, created_at, updated_at`

func scanBoard(row interface{ Scan(...any) error }) (domain.Board, error) {
	var b domain.Board
	err := row.Scan(&b.Id, &b.Title, &b.Slug, &b.Description, &b.Status, &b.Settings, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *Storage) CreateBoard(ctx context.Context, data domain.BoardCreationData) (domain.BoardId, error) {
	status := data.Status
	if status == "" {
		status = domain.StatusOpen
	}
	var id domain.BoardId
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO boards (title, slug, description, status, settings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		data.Title, data.Slug, data.Description, status, data.Settings,
	).Scan(&id)
	if err != nil {
		return 0, mapError(err, "board", data.Slug)
	}
	return id, nil
}

func (s *Storage) GetBoard(ctx context.Context, id domain.BoardId) (domain.Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = $1`, id))
	if err != nil {
		return domain.Board{}, mapError(err, "board", id)
	}
	return b, nil
}

func (s *Storage) GetBoardBySlug(ctx context.Context, slug domain.BoardSlug) (domain.Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE slug = $1`, slug))
	if err != nil {
		return domain.Board{}, mapError(err, "board", slug)
	}
	return b, nil
}

// SetBoardStatus changes the status only; slugs cannot be updated.
func (s *Storage) SetBoardStatus(ctx context.Context, id domain.BoardId, status string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE boards SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return mapError(err, "board", id)
	}
	return requireAffected(result, "board", id)
}
