package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aruzhans/dance-battle-system/models"
	"github.com/lib/pq"
)

var (
	ErrBattleNotFound           = errors.New("battle not found")
	ErrBattleInvalidCategory    = errors.New("invalid category reference for battle")
	ErrBattleInvalidPool        = errors.New("invalid pool reference for battle")
	ErrBattleInvalidPerformer   = errors.New("invalid performer reference for battle")
	ErrBattleParticipantMissing = errors.New("battle participant not found")
	// ErrBattleStatusStale - CAS по статусу не совпал: баттл уже переведён
	// другим запросом (вторая кодировка того же баттла не должна пройти).
	ErrBattleStatusStale = errors.New("battle status changed concurrently")
)

type BattleRepository interface {
	// Create сохраняет баттл вместе с составом участников.
	// Состав после этого неизменен, мутируют только статус и исход.
	Create(ctx context.Context, exec SQLExecutor, battle *models.Battle, performerIDs []int) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Battle, error)
	// GetForEncoding читает баттл с блокировкой строки (FOR UPDATE),
	// чтобы две конкурирующие кодировки сериализовались.
	GetForEncoding(ctx context.Context, exec SQLExecutor, id int) (*models.Battle, error)
	ListByCategory(ctx context.Context, exec SQLExecutor, categoryID int, phase *models.BattlePhase) ([]*models.Battle, error)
	ListPendingByCategory(ctx context.Context, exec SQLExecutor, categoryID int) ([]*models.Battle, error)
	CountPending(ctx context.Context, exec SQLExecutor, categoryID int, phases []models.BattlePhase, poolID *int) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.BattleStatus) error
	Complete(ctx context.Context, exec SQLExecutor, id int, winnerPerformerID *int, isDraw bool) error
	UpdateSequenceOrder(ctx context.Context, exec SQLExecutor, id, sequenceOrder int) error
	NextSequenceOrder(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	SetParticipantScore(ctx context.Context, exec SQLExecutor, battleID, performerID int, score float64) error
	EliminateParticipant(ctx context.Context, exec SQLExecutor, battleID, performerID int) error
	AddParticipant(ctx context.Context, exec SQLExecutor, battleID, performerID, slot int) error
	UpdateNextBattleInfo(ctx context.Context, exec SQLExecutor, battleID int, nextBattleID, winnerToSlot *int) error
}

type postgresBattleRepository struct {
	db *sql.DB
}

func NewPostgresBattleRepository(db *sql.DB) BattleRepository {
	return &postgresBattleRepository{db: db}
}

func (r *postgresBattleRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const battleColumns = `id, tournament_id, category_id, pool_id, phase, outcome_type, status, sequence_order,
	voting_mode, winners_needed, winner_performer_id, is_draw, round, bracket_uid, next_battle_id, winner_to_slot, created_at`

func (r *postgresBattleRepository) Create(ctx context.Context, exec SQLExecutor, b *models.Battle, performerIDs []int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO battles
			(tournament_id, category_id, pool_id, phase, outcome_type, status, sequence_order,
			 voting_mode, winners_needed, round, bracket_uid, next_battle_id, winner_to_slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		b.TournamentID, b.CategoryID, b.PoolID, b.Phase, b.OutcomeType, b.Status, b.SequenceOrder,
		b.VotingMode, b.WinnersNeeded, b.Round, b.BracketUID, b.NextBattleID, b.WinnerToSlot,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return r.handleBattleError(err)
	}

	b.Participants = make([]models.BattleParticipant, 0, len(performerIDs))
	for i, performerID := range performerIDs {
		slot := i + 1
		if insertErr := r.AddParticipant(ctx, executor, b.ID, performerID, slot); insertErr != nil {
			return insertErr
		}
		b.Participants = append(b.Participants, models.BattleParticipant{
			BattleID:    b.ID,
			PerformerID: performerID,
			Slot:        slot,
		})
	}
	return nil
}

func (r *postgresBattleRepository) scanBattle(rowScanner interface{ Scan(...interface{}) error }) (*models.Battle, error) {
	var b models.Battle
	err := rowScanner.Scan(
		&b.ID, &b.TournamentID, &b.CategoryID, &b.PoolID, &b.Phase, &b.OutcomeType, &b.Status,
		&b.SequenceOrder, &b.VotingMode, &b.WinnersNeeded, &b.WinnerPerformerID, &b.IsDraw,
		&b.Round, &b.BracketUID, &b.NextBattleID, &b.WinnerToSlot, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *postgresBattleRepository) loadParticipants(ctx context.Context, executor SQLExecutor, battles []*models.Battle) error {
	if len(battles) == 0 {
		return nil
	}
	ids := make([]int, len(battles))
	byID := make(map[int]*models.Battle, len(battles))
	for i, b := range battles {
		ids[i] = b.ID
		byID[b.ID] = b
		b.Participants = make([]models.BattleParticipant, 0, 2)
	}

	query := `
		SELECT battle_id, performer_id, slot, score, eliminated
		FROM battle_performers
		WHERE battle_id = ANY($1)
		ORDER BY battle_id ASC, slot ASC`

	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query battle participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bp models.BattleParticipant
		if scanErr := rows.Scan(&bp.BattleID, &bp.PerformerID, &bp.Slot, &bp.Score, &bp.Eliminated); scanErr != nil {
			return fmt.Errorf("failed to scan battle participant: %w", scanErr)
		}
		if b, ok := byID[bp.BattleID]; ok {
			b.Participants = append(b.Participants, bp)
		}
	}
	return rows.Err()
}

func (r *postgresBattleRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Battle, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + battleColumns + ` FROM battles WHERE id = $1`
	b, err := r.scanBattle(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadParticipants(ctx, executor, []*models.Battle{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *postgresBattleRepository) GetForEncoding(ctx context.Context, exec SQLExecutor, id int) (*models.Battle, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + battleColumns + ` FROM battles WHERE id = $1 FOR UPDATE`
	b, err := r.scanBattle(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadParticipants(ctx, executor, []*models.Battle{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *postgresBattleRepository) listBattles(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Battle, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	battles := make([]*models.Battle, 0)
	for rows.Next() {
		b, scanErr := r.scanBattle(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		battles = append(battles, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if err = r.loadParticipants(ctx, executor, battles); err != nil {
		return nil, err
	}
	return battles, nil
}

func (r *postgresBattleRepository) ListByCategory(ctx context.Context, exec SQLExecutor, categoryID int, phase *models.BattlePhase) ([]*models.Battle, error) {
	executor := r.getExecutor(exec)
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + battleColumns + ` FROM battles WHERE category_id = $1`)

	args := []interface{}{categoryID}
	if phase != nil {
		queryBuilder.WriteString(" AND phase = $" + strconv.Itoa(len(args)+1))
		args = append(args, *phase)
	}
	queryBuilder.WriteString(" ORDER BY sequence_order ASC, id ASC")

	return r.listBattles(ctx, executor, queryBuilder.String(), args...)
}

func (r *postgresBattleRepository) ListPendingByCategory(ctx context.Context, exec SQLExecutor, categoryID int) ([]*models.Battle, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + battleColumns + ` FROM battles
		WHERE category_id = $1 AND status = $2
		ORDER BY sequence_order ASC, id ASC`
	return r.listBattles(ctx, executor, query, categoryID, models.BattleStatusPending)
}

func (r *postgresBattleRepository) CountPending(ctx context.Context, exec SQLExecutor, categoryID int, phases []models.BattlePhase, poolID *int) (int, error) {
	executor := r.getExecutor(exec)
	phaseValues := make([]string, len(phases))
	for i, p := range phases {
		phaseValues[i] = string(p)
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT COUNT(*) FROM battles
		WHERE category_id = $1 AND phase = ANY($2) AND status <> $3`)

	args := []interface{}{categoryID, pq.Array(phaseValues), models.BattleStatusCompleted}
	if poolID != nil {
		queryBuilder.WriteString(" AND pool_id = $" + strconv.Itoa(len(args)+1))
		args = append(args, *poolID)
	}

	var count int
	err := executor.QueryRowContext(ctx, queryBuilder.String(), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending battles for category %d: %w", categoryID, err)
	}
	return count, nil
}

func (r *postgresBattleRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.BattleStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE battles SET status = $1 WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update battle %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrBattleStatusStale)
}

func (r *postgresBattleRepository) Complete(ctx context.Context, exec SQLExecutor, id int, winnerPerformerID *int, isDraw bool) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE battles SET status = $1, winner_performer_id = $2, is_draw = $3
		WHERE id = $4 AND status = $5`
	result, err := executor.ExecContext(ctx, query,
		models.BattleStatusCompleted, winnerPerformerID, isDraw, id, models.BattleStatusActive)
	if err != nil {
		return r.handleBattleError(err)
	}
	return checkAffectedRows(result, ErrBattleStatusStale)
}

func (r *postgresBattleRepository) UpdateSequenceOrder(ctx context.Context, exec SQLExecutor, id, sequenceOrder int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE battles SET sequence_order = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, sequenceOrder, id)
	if err != nil {
		return fmt.Errorf("failed to update battle %d sequence order: %w", id, err)
	}
	return checkAffectedRows(result, ErrBattleNotFound)
}

func (r *postgresBattleRepository) NextSequenceOrder(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COALESCE(MAX(sequence_order), 0) + 1 FROM battles WHERE tournament_id = $1`
	var next int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next sequence order for tournament %d: %w", tournamentID, err)
	}
	return next, nil
}

func (r *postgresBattleRepository) SetParticipantScore(ctx context.Context, exec SQLExecutor, battleID, performerID int, score float64) error {
	executor := r.getExecutor(exec)
	query := `UPDATE battle_performers SET score = $1 WHERE battle_id = $2 AND performer_id = $3`
	result, err := executor.ExecContext(ctx, query, score, battleID, performerID)
	if err != nil {
		return fmt.Errorf("failed to set score in battle %d for performer %d: %w", battleID, performerID, err)
	}
	return checkAffectedRows(result, ErrBattleParticipantMissing)
}

func (r *postgresBattleRepository) EliminateParticipant(ctx context.Context, exec SQLExecutor, battleID, performerID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE battle_performers SET eliminated = TRUE WHERE battle_id = $1 AND performer_id = $2`
	result, err := executor.ExecContext(ctx, query, battleID, performerID)
	if err != nil {
		return fmt.Errorf("failed to eliminate performer %d in battle %d: %w", performerID, battleID, err)
	}
	return checkAffectedRows(result, ErrBattleParticipantMissing)
}

func (r *postgresBattleRepository) AddParticipant(ctx context.Context, exec SQLExecutor, battleID, performerID, slot int) error {
	executor := r.getExecutor(exec)
	query := `INSERT INTO battle_performers (battle_id, performer_id, slot) VALUES ($1, $2, $3)`
	if _, err := executor.ExecContext(ctx, query, battleID, performerID, slot); err != nil {
		return r.handleBattleError(err)
	}
	return nil
}

func (r *postgresBattleRepository) UpdateNextBattleInfo(ctx context.Context, exec SQLExecutor, battleID int, nextBattleID, winnerToSlot *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE battles SET next_battle_id = $1, winner_to_slot = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, nextBattleID, winnerToSlot, battleID)
	if err != nil {
		return fmt.Errorf("failed to link battle %d to next battle: %w", battleID, err)
	}
	return checkAffectedRows(result, ErrBattleNotFound)
}

func (r *postgresBattleRepository) handleBattleError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "battles_category_id_fkey":
			return ErrBattleInvalidCategory
		case "battles_pool_id_fkey":
			return ErrBattleInvalidPool
		case "battle_performers_performer_id_fkey":
			return ErrBattleInvalidPerformer
		}
	}
	return err
}
