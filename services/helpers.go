package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aruzhans/dance-battle-system/models"
)

// phaseSuccessor - единственный допустимый переход для каждой стадии.
// Стадии движутся строго вперёд, без пропусков и откатов.
var phaseSuccessor = map[models.TournamentPhase]models.TournamentPhase{
	models.PhaseRegistration: models.PhasePreselection,
	models.PhasePreselection: models.PhasePools,
	models.PhasePools:        models.PhaseFinals,
	models.PhaseFinals:       models.PhaseCompleted,
}

// statusForPhase возвращает статус, связанный со стадией:
// created только на registration, active на игровых стадиях,
// completed на завершённом турнире.
func statusForPhase(phase models.TournamentPhase) models.TournamentStatus {
	switch phase {
	case models.PhaseRegistration:
		return models.StatusCreated
	case models.PhasePreselection, models.PhasePools, models.PhaseFinals:
		return models.StatusActive
	case models.PhaseCompleted:
		return models.StatusCompleted
	}
	return ""
}

// runInTransaction оборачивает fn в транзакцию с откатом при ошибке или панике.
func runInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func roomID(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}
