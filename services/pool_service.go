package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aruzhans/dance-battle-system/draw"
	"github.com/aruzhans/dance-battle-system/models"
	"github.com/aruzhans/dance-battle-system/repositories"
)

// PoolService раскладывает квалифицированных участников по пулам
// и фиксирует победителей пулов.
type PoolService interface {
	CreatePools(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Pool, error)
	FinishPool(ctx context.Context, exec repositories.SQLExecutor, poolID, winnerPerformerID int) error
	ListByCategory(ctx context.Context, categoryID int) ([]*models.Pool, error)
}

type poolService struct {
	poolRepo      repositories.PoolRepository
	performerRepo repositories.PerformerRepository
	categoryRepo  repositories.CategoryRepository
	logger        *slog.Logger
}

func NewPoolService(
	poolRepo repositories.PoolRepository,
	performerRepo repositories.PerformerRepository,
	categoryRepo repositories.CategoryRepository,
	logger *slog.Logger,
) PoolService {
	return &poolService{
		poolRepo:      poolRepo,
		performerRepo: performerRepo,
		categoryRepo:  categoryRepo,
		logger:        logger,
	}
}

// CreatePools создаёт пулы номинации и рассаживает квалифицированных
// участников змейкой по рангу отборочной оценки. Гости ранжируются
// первыми и расходятся по разным пулам.
func (s *poolService) CreatePools(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Pool, error) {
	category, err := s.categoryRepo.GetByID(ctx, exec, categoryID)
	if err != nil {
		return nil, err
	}

	performers, err := s.performerRepo.ListByCategory(ctx, exec, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list performers for category %d: %w", categoryID, err)
	}

	qualified := make([]*models.Performer, 0, len(performers))
	for _, p := range performers {
		if p.PreselectionQualified {
			qualified = append(qualified, p)
		}
	}
	if len(qualified) < category.GroupsIdeal*2 {
		return nil, newValidationError(fmt.Sprintf(
			"category %d has %d qualified performers, need at least %d for %d pools",
			categoryID, len(qualified), category.GroupsIdeal*2, category.GroupsIdeal))
	}
	// Пулы номинации всегда равны по размеру. Расчёт вместимости это
	// гарантирует, но состав квалифицированных перепроверяется перед
	// рассадкой.
	if _, err := draw.DistributeEqual(len(qualified), category.GroupsIdeal); err != nil {
		return nil, newValidationError(fmt.Sprintf(
			"category %d: %d qualified performers do not split evenly into %d pools",
			categoryID, len(qualified), category.GroupsIdeal))
	}

	// Ранжирование для змейки: сначала гости (между собой - по порядку
	// регистрации), затем обычные по убыванию отборочной оценки.
	sort.SliceStable(qualified, func(i, j int) bool {
		a, b := qualified[i], qualified[j]
		if a.IsGuest != b.IsGuest {
			return a.IsGuest
		}
		if a.IsGuest {
			return a.ID < b.ID
		}
		return scoreOf(a) > scoreOf(b)
	})

	rankedIDs := make([]int, len(qualified))
	for i, p := range qualified {
		rankedIDs[i] = p.ID
	}
	seats := draw.SnakeDraft(rankedIDs, category.GroupsIdeal)

	pools := make([]*models.Pool, 0, category.GroupsIdeal)
	for position, memberIDs := range seats {
		pool := &models.Pool{
			CategoryID: categoryID,
			Position:   position + 1,
			Status:     models.PoolStatusForming,
		}
		if err := s.poolRepo.Create(ctx, exec, pool); err != nil {
			return nil, fmt.Errorf("failed to create pool %d for category %d: %w", position+1, categoryID, err)
		}
		for _, performerID := range memberIDs {
			if err := s.performerRepo.AssignPool(ctx, exec, performerID, pool.ID); err != nil {
				return nil, fmt.Errorf("failed to assign performer %d to pool %d: %w", performerID, pool.ID, err)
			}
		}
		pools = append(pools, pool)
	}

	s.logger.InfoContext(ctx, "pools created",
		slog.Int("category_id", categoryID),
		slog.Int("pools", len(pools)),
		slog.Int("performers", len(qualified)))
	return pools, nil
}

// FinishPool записывает победителя и закрывает пул.
func (s *poolService) FinishPool(ctx context.Context, exec repositories.SQLExecutor, poolID, winnerPerformerID int) error {
	if err := s.poolRepo.SetWinner(ctx, exec, poolID, winnerPerformerID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "pool finished",
		slog.Int("pool_id", poolID), slog.Int("winner_performer_id", winnerPerformerID))
	return nil
}

func (s *poolService) ListByCategory(ctx context.Context, categoryID int) ([]*models.Pool, error) {
	return s.poolRepo.ListByCategory(ctx, nil, categoryID)
}

func scoreOf(p *models.Performer) float64 {
	if p.PreselectionScore == nil {
		return 0
	}
	return *p.PreselectionScore
}
