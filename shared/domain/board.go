package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// DefaultPostDelay is the cool-down applied when a board does not configure one.
const DefaultPostDelay = 10

type BoardSettings struct {
	PostDelay int    `json:"post_delay"`          // seconds between submissions per origin
	MaxPosts  int    `json:"max_posts,omitempty"` // thread is locked once it holds this many replies; 0 disables
	Name      string `json:"name,omitempty"`      // default poster name
}

func DefaultBoardSettings() BoardSettings {
	return BoardSettings{PostDelay: DefaultPostDelay}
}

// Value stores settings as JSONB.
func (s BoardSettings) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *BoardSettings) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*s = DefaultBoardSettings()
		return nil
	default:
		return errors.New("board settings: unsupported column type")
	}
	settings := DefaultBoardSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return err
	}
	*s = settings
	return nil
}

type BoardCreationData struct {
	Title       BoardTitle
	Slug        BoardSlug
	Description string
	Status      string
	Settings    BoardSettings
}

type Board struct {
	Id          BoardId
	Title       BoardTitle
	Slug        BoardSlug
	Description string
	Status      string
	Settings    BoardSettings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b *Board) PostDelay() int {
	if b.Settings.PostDelay <= 0 {
		return DefaultPostDelay
	}
	return b.Settings.PostDelay
}
