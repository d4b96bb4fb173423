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
	ErrPoolNotFound        = errors.New("pool not found")
	ErrPoolInvalidCategory = errors.New("invalid category reference for pool")
	ErrPoolInvalidWinner   = errors.New("invalid winner performer reference for pool")
)

type PoolRepository interface {
	Create(ctx context.Context, exec SQLExecutor, pool *models.Pool) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Pool, error)
	ListByCategory(ctx context.Context, exec SQLExecutor, categoryID int) ([]*models.Pool, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.PoolStatus) error
	SetWinner(ctx context.Context, exec SQLExecutor, poolID, winnerPerformerID int) error
}

type postgresPoolRepository struct {
	db *sql.DB
}

func NewPostgresPoolRepository(db *sql.DB) PoolRepository {
	return &postgresPoolRepository{db: db}
}

func (r *postgresPoolRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPoolRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Pool) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO pools (category_id, position, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, p.CategoryID, p.Position, p.Status).Scan(&p.ID, &p.CreatedAt)
	return r.handlePoolError(err)
}

func (r *postgresPoolRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Pool, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, category_id, position, status, winner_performer_id, created_at FROM pools WHERE id = $1`

	p := &models.Pool{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.CategoryID, &p.Position, &p.Status, &p.WinnerPerformerID, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPoolRepository) ListByCategory(ctx context.Context, exec SQLExecutor, categoryID int) ([]*models.Pool, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, category_id, position, status, winner_performer_id, created_at
		FROM pools
		WHERE category_id = $1
		ORDER BY position ASC`

	rows, err := executor.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pools := make([]*models.Pool, 0)
	for rows.Next() {
		var p models.Pool
		if scanErr := rows.Scan(
			&p.ID, &p.CategoryID, &p.Position, &p.Status, &p.WinnerPerformerID, &p.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		pools = append(pools, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return pools, nil
}

func (r *postgresPoolRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.PoolStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE pools SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update pool %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrPoolNotFound)
}

func (r *postgresPoolRepository) SetWinner(ctx context.Context, exec SQLExecutor, poolID, winnerPerformerID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE pools SET winner_performer_id = $1, status = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, winnerPerformerID, models.PoolStatusCompleted, poolID)
	if err != nil {
		return r.handlePoolError(err)
	}
	return checkAffectedRows(result, ErrPoolNotFound)
}

func (r *postgresPoolRepository) handlePoolError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "pools_category_id_fkey":
			return ErrPoolInvalidCategory
		case "pools_winner_performer_id_fkey":
			return ErrPoolInvalidWinner
		}
	}
	return err
}
