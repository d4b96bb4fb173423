package models

import "time"

// BattlePhase - к какой стадии турнира относится баттл.
type BattlePhase string

const (
	BattlePhasePreselection BattlePhase = "preselection"
	BattlePhasePools        BattlePhase = "pools"
	BattlePhaseTiebreak     BattlePhase = "tiebreak"
	BattlePhaseFinals       BattlePhase = "finals"
)

// BattleOutcomeType определяет форму результата баттла.
// Тип фиксируется стадией при создании и никогда не меняется.
type BattleOutcomeType string

const (
	OutcomeScored      BattleOutcomeType = "scored"
	OutcomeWinDrawLoss BattleOutcomeType = "win_draw_loss"
	OutcomeTiebreak    BattleOutcomeType = "tiebreak"
	OutcomeWinLoss     BattleOutcomeType = "win_loss"
)

type BattleStatus string

const (
	BattleStatusPending   BattleStatus = "pending"
	BattleStatusActive    BattleStatus = "active"
	BattleStatusCompleted BattleStatus = "completed"
)

// VotingMode - режим голосования тайбрейка.
// keep: судьи голосуют за победителя (двое претендентов).
// eliminate: судьи голосуют за выбывающего, по одному за раунд (трое и больше).
type VotingMode string

const (
	VotingModeKeep      VotingMode = "keep"
	VotingModeEliminate VotingMode = "eliminate"
)

// OutcomeTypeForPhase возвращает форму результата, закреплённую за стадией.
func OutcomeTypeForPhase(phase BattlePhase) BattleOutcomeType {
	switch phase {
	case BattlePhasePreselection:
		return OutcomeScored
	case BattlePhasePools:
		return OutcomeWinDrawLoss
	case BattlePhaseTiebreak:
		return OutcomeTiebreak
	case BattlePhaseFinals:
		return OutcomeWinLoss
	}
	return ""
}

// Battle представляет один выход: сольный прогон отборочных, очную пару
// в пуле, раунд тайбрейка или матч финальной сетки.
// Состав участников неизменен после создания, мутируют только статус и исход.
type Battle struct {
	ID                int               `json:"id" db:"id"`
	TournamentID      int               `json:"tournament_id" db:"tournament_id"`
	CategoryID        int               `json:"category_id" db:"category_id"`
	PoolID            *int              `json:"pool_id,omitempty" db:"pool_id"`
	Phase             BattlePhase       `json:"phase" db:"phase"`
	OutcomeType       BattleOutcomeType `json:"outcome_type" db:"outcome_type"`
	Status            BattleStatus      `json:"status" db:"status"`
	SequenceOrder     int               `json:"sequence_order" db:"sequence_order"`
	VotingMode        *VotingMode       `json:"voting_mode,omitempty" db:"voting_mode"`
	WinnersNeeded     *int              `json:"winners_needed,omitempty" db:"winners_needed"`
	WinnerPerformerID *int              `json:"winner_performer_id,omitempty" db:"winner_performer_id"`
	IsDraw            bool              `json:"is_draw" db:"is_draw"`
	Round             *int              `json:"round,omitempty" db:"round"`
	BracketUID        *string           `json:"bracket_uid,omitempty" db:"bracket_uid"`
	NextBattleID      *int              `json:"next_battle_id,omitempty" db:"next_battle_id"`
	WinnerToSlot      *int              `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`

	Participants []BattleParticipant `json:"participants,omitempty" db:"-"`
}

// BattleParticipant - связь баттла с участником.
// Score заполняется только для scored-баттлов, Eliminated - для тайбрейков.
type BattleParticipant struct {
	BattleID    int      `json:"battle_id" db:"battle_id"`
	PerformerID int      `json:"performer_id" db:"performer_id"`
	Slot        int      `json:"slot" db:"slot"`
	Score       *float64 `json:"score,omitempty" db:"score"`
	Eliminated  bool     `json:"eliminated" db:"eliminated"`
}

// RemainingParticipants возвращает участников тайбрейка, ещё не выбывших.
func (b *Battle) RemainingParticipants() []BattleParticipant {
	remaining := make([]BattleParticipant, 0, len(b.Participants))
	for _, p := range b.Participants {
		if !p.Eliminated {
			remaining = append(remaining, p)
		}
	}
	return remaining
}

// HasParticipant сообщает, заявлен ли участник в этом баттле.
func (b *Battle) HasParticipant(performerID int) bool {
	for _, p := range b.Participants {
		if p.PerformerID == performerID {
			return true
		}
	}
	return false
}
