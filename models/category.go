package models

import "time"

// Category представляет номинацию турнира (например, "Breaking 1x1", "Hip-Hop 2x2").
type Category struct {
	ID                int       `json:"id" db:"id"`
	TournamentID      int       `json:"tournament_id" db:"tournament_id"`
	Name              string    `json:"name" db:"name"`
	IsDuo             bool      `json:"is_duo" db:"is_duo"`
	GroupsIdeal       int       `json:"groups_ideal" db:"groups_ideal"`
	PerformersIdeal   int       `json:"performers_ideal" db:"performers_ideal"`
	WinnerPerformerID *int      `json:"winner_performer_id,omitempty" db:"winner_performer_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`

	Performers []Performer `json:"performers,omitempty" db:"-"`
	Pools      []Pool      `json:"pools,omitempty" db:"-"`
	Battles    []Battle    `json:"battles,omitempty" db:"-"`
}
