package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aruzhans/dance-battle-system/models"
	"github.com/lib/pq"
)

var (
	ErrPerformerNotFound        = errors.New("performer not found")
	ErrPerformerDancerConflict  = errors.New("dancer already has a performer record in this tournament")
	ErrPerformerInvalidCategory = errors.New("invalid category reference")
	ErrPerformerInvalidDancer   = errors.New("invalid dancer reference")
)

type PerformerRepository interface {
	Create(ctx context.Context, performer *models.Performer) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Performer, error)
	ListByCategory(ctx context.Context, exec SQLExecutor, categoryID int) ([]*models.Performer, error)
	ListByPool(ctx context.Context, exec SQLExecutor, poolID int) ([]*models.Performer, error)
	UpdatePreselectionScore(ctx context.Context, exec SQLExecutor, id int, score float64) error
	SetQualified(ctx context.Context, exec SQLExecutor, ids []int) error
	AssignPool(ctx context.Context, exec SQLExecutor, performerID, poolID int) error
	// ApplyPoolResult прибавляет дельты статистики пула одним UPDATE,
	// чтобы конкурирующие кодировки не теряли инкременты.
	ApplyPoolResult(ctx context.Context, exec SQLExecutor, id, winDelta, drawDelta, lossDelta, pointsDelta int) error
}

type postgresPerformerRepository struct {
	db *sql.DB
}

func NewPostgresPerformerRepository(db *sql.DB) PerformerRepository {
	return &postgresPerformerRepository{db: db}
}

func (r *postgresPerformerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const performerColumns = `id, tournament_id, category_id, dancer_id, duo_partner_id, is_guest,
	preselection_score, preselection_qualified, pool_id, pool_wins, pool_draws, pool_losses, pool_points, created_at`

func (r *postgresPerformerRepository) Create(ctx context.Context, p *models.Performer) error {
	query := `
		INSERT INTO performers
			(tournament_id, category_id, dancer_id, duo_partner_id, is_guest, preselection_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.TournamentID, p.CategoryID, p.DancerID, p.DuoPartnerID, p.IsGuest, p.PreselectionScore,
	).Scan(&p.ID, &p.CreatedAt)

	return r.handlePerformerError(err)
}

func (r *postgresPerformerRepository) scanPerformer(rowScanner interface{ Scan(...interface{}) error }) (*models.Performer, error) {
	var p models.Performer
	err := rowScanner.Scan(
		&p.ID, &p.TournamentID, &p.CategoryID, &p.DancerID, &p.DuoPartnerID, &p.IsGuest,
		&p.PreselectionScore, &p.PreselectionQualified, &p.PoolID,
		&p.PoolWins, &p.PoolDraws, &p.PoolLosses, &p.PoolPoints, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPerformerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresPerformerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Performer, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + performerColumns + ` FROM performers WHERE id = $1`
	return r.scanPerformer(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresPerformerRepository) list(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Performer, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	performers := make([]*models.Performer, 0)
	for rows.Next() {
		p, scanErr := r.scanPerformer(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		performers = append(performers, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return performers, nil
}

func (r *postgresPerformerRepository) ListByCategory(ctx context.Context, exec SQLExecutor, categoryID int) ([]*models.Performer, error) {
	executor := r.getExecutor(exec)
	// Порядок регистрации (id ASC) используется как финальный тай-брейк сортировок.
	query := `SELECT ` + performerColumns + ` FROM performers WHERE category_id = $1 ORDER BY id ASC`
	return r.list(ctx, executor, query, categoryID)
}

func (r *postgresPerformerRepository) ListByPool(ctx context.Context, exec SQLExecutor, poolID int) ([]*models.Performer, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + performerColumns + ` FROM performers WHERE pool_id = $1 ORDER BY id ASC`
	return r.list(ctx, executor, query, poolID)
}

func (r *postgresPerformerRepository) UpdatePreselectionScore(ctx context.Context, exec SQLExecutor, id int, score float64) error {
	executor := r.getExecutor(exec)
	query := `UPDATE performers SET preselection_score = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, score, id)
	if err != nil {
		return fmt.Errorf("failed to update preselection score for performer %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPerformerNotFound)
}

func (r *postgresPerformerRepository) SetQualified(ctx context.Context, exec SQLExecutor, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `UPDATE performers SET preselection_qualified = TRUE WHERE id = ANY($1)`
	_, err := executor.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark performers qualified: %w", err)
	}
	return nil
}

func (r *postgresPerformerRepository) AssignPool(ctx context.Context, exec SQLExecutor, performerID, poolID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE performers SET pool_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, poolID, performerID)
	if err != nil {
		return fmt.Errorf("failed to assign performer %d to pool %d: %w", performerID, poolID, err)
	}
	return checkAffectedRows(result, ErrPerformerNotFound)
}

func (r *postgresPerformerRepository) ApplyPoolResult(ctx context.Context, exec SQLExecutor, id, winDelta, drawDelta, lossDelta, pointsDelta int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE performers SET
			pool_wins = pool_wins + $1,
			pool_draws = pool_draws + $2,
			pool_losses = pool_losses + $3,
			pool_points = pool_points + $4
		WHERE id = $5`
	result, err := executor.ExecContext(ctx, query, winDelta, drawDelta, lossDelta, pointsDelta, id)
	if err != nil {
		return fmt.Errorf("failed to apply pool result for performer %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPerformerNotFound)
}

func (r *postgresPerformerRepository) handlePerformerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "performers_tournament_id_dancer_id_key" {
				return ErrPerformerDancerConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "performers_category_id_fkey":
				return ErrPerformerInvalidCategory
			case "performers_dancer_id_fkey", "performers_duo_partner_id_fkey":
				return ErrPerformerInvalidDancer
			}
		}
	}
	return err
}
