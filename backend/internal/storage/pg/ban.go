package pg

import (
	"context"
	"fmt"

	"github.com/itchan-dev/itboard/shared/domain"
)

// ActiveBans satisfies banlist.BanStorage.
func (s *Storage) ActiveBans(ctx context.Context) ([]domain.Ban, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ip_address::text, description, active, created_at, expires_at
		FROM bans
		WHERE active AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active bans: %w", err)
	}
	defer rows.Close()

	var bans []domain.Ban
	for rows.Next() {
		var b domain.Ban
		if err := rows.Scan(&b.Id, &b.IpAddress, &b.Description, &b.Active, &b.CreatedAt, &b.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan ban: %w", err)
		}
		bans = append(bans, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bans: %w", err)
	}
	return bans, nil
}

func (s *Storage) CreateBan(ctx context.Context, ban domain.Ban) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO bans (ip_address, description, active, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		ban.IpAddress, ban.Description, ban.Active, ban.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, mapError(err, "ban", ban.IpAddress)
	}
	return id, nil
}
