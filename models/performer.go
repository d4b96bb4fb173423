package models

import "time"

// GuestPreselectionScore - фиксированная оценка приглашённого участника.
// Гости освобождены от отборочных выходов и сразу получают максимум.
const GuestPreselectionScore = 10.0

// Performer представляет участника номинации (танцора или дуэт).
// Один танцор может иметь не более одной записи Performer на турнир.
type Performer struct {
	ID                    int       `json:"id" db:"id"`
	TournamentID          int       `json:"tournament_id" db:"tournament_id"`
	CategoryID            int       `json:"category_id" db:"category_id"`
	DancerID              int       `json:"dancer_id" db:"dancer_id"`
	DuoPartnerID          *int      `json:"duo_partner_id,omitempty" db:"duo_partner_id"`
	IsGuest               bool      `json:"is_guest" db:"is_guest"`
	PreselectionScore     *float64  `json:"preselection_score,omitempty" db:"preselection_score"`
	PreselectionQualified bool      `json:"preselection_qualified" db:"preselection_qualified"`
	PoolID                *int      `json:"pool_id,omitempty" db:"pool_id"`
	PoolWins              int       `json:"pool_wins" db:"pool_wins"`
	PoolDraws             int       `json:"pool_draws" db:"pool_draws"`
	PoolLosses            int       `json:"pool_losses" db:"pool_losses"`
	PoolPoints            int       `json:"pool_points" db:"pool_points"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`

	Dancer     *User `json:"dancer,omitempty" db:"-"`
	DuoPartner *User `json:"duo_partner,omitempty" db:"-"`
}
