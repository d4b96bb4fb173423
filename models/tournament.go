package models

import "time"

// TournamentPhase представляет стадии турнира, соответствующие ENUM в БД.
type TournamentPhase string

const (
	PhaseRegistration TournamentPhase = "registration"
	PhasePreselection TournamentPhase = "preselection"
	PhasePools        TournamentPhase = "pools"
	PhaseFinals       TournamentPhase = "finals"
	PhaseCompleted    TournamentPhase = "completed"
)

// TournamentStatus представляет статусы турнира.
// Статус и стадия связаны: created допустим только на registration,
// active на preselection/pools/finals, completed на completed.
type TournamentStatus string

const (
	StatusCreated   TournamentStatus = "created"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
	StatusCanceled  TournamentStatus = "canceled"
)

// Tournament представляет турнир (баттл-ивент).
type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	StartDate   time.Time        `json:"start_date" db:"start_date"`
	Location    *string          `json:"location,omitempty" db:"location"`
	Phase       TournamentPhase  `json:"phase" db:"phase"`
	Status      TournamentStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	PosterKey   *string          `json:"-" db:"poster_key"`
	PosterURL   *string          `json:"poster_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Organizer  *User      `json:"organizer,omitempty" db:"-"`
	Categories []Category `json:"categories,omitempty" db:"-"`
}
