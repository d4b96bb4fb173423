package models

import "time"

type PoolStatus string

const (
	PoolStatusForming    PoolStatus = "forming"
	PoolStatusInProgress PoolStatus = "in_progress"
	PoolStatusCompleted  PoolStatus = "completed"
)

// Pool представляет группу участников, играющих по круговой системе.
// Все пулы одной номинации имеют строго одинаковый размер.
type Pool struct {
	ID                int        `json:"id" db:"id"`
	CategoryID        int        `json:"category_id" db:"category_id"`
	Position          int        `json:"position" db:"position"`
	Status            PoolStatus `json:"status" db:"status"`
	WinnerPerformerID *int       `json:"winner_performer_id,omitempty" db:"winner_performer_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`

	Performers []Performer `json:"performers,omitempty" db:"-"`
	Battles    []Battle    `json:"battles,omitempty" db:"-"`
}
