package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aruzhans/dance-battle-system/draw"
	"github.com/aruzhans/dance-battle-system/models"
	"github.com/aruzhans/dance-battle-system/repositories"
)

// BattleService строит баттлы каждой стадии и управляет их очередью.
// Генерация вызывается контроллером стадий внутри его транзакции,
// поэтому методы генерации принимают SQLExecutor.
type BattleService interface {
	GeneratePreselectionBattles(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error)
	GeneratePoolBattles(ctx context.Context, exec repositories.SQLExecutor, categoryID, poolID int) ([]*models.Battle, error)
	GenerateFinalsBattles(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error)
	// SequenceBattles сливает очереди номинаций round-robin и присваивает
	// сквозные sequence_order, продолжая нумерацию турнира.
	SequenceBattles(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, perCategory [][]*models.Battle) error
	StartBattle(ctx context.Context, battleID int) (*models.Battle, error)
	ReorderBattle(ctx context.Context, battleID, newPosition int) (*models.Battle, error)
	GetBattle(ctx context.Context, battleID int) (*models.Battle, error)
	ListByCategory(ctx context.Context, categoryID int, phase *models.BattlePhase) ([]*models.Battle, error)
}

type battleService struct {
	db            *sql.DB
	battleRepo    repositories.BattleRepository
	performerRepo repositories.PerformerRepository
	poolRepo      repositories.PoolRepository
	categoryRepo  repositories.CategoryRepository
	hub           *draw.Hub
	logger        *slog.Logger
}

func NewBattleService(
	db *sql.DB,
	battleRepo repositories.BattleRepository,
	performerRepo repositories.PerformerRepository,
	poolRepo repositories.PoolRepository,
	categoryRepo repositories.CategoryRepository,
	hub *draw.Hub,
	logger *slog.Logger,
) BattleService {
	return &battleService{
		db:            db,
		battleRepo:    battleRepo,
		performerRepo: performerRepo,
		poolRepo:      poolRepo,
		categoryRepo:  categoryRepo,
		hub:           hub,
		logger:        logger,
	}
}

// GeneratePreselectionBattles создаёт по одному сольному scored-баттлу
// на каждого обычного участника номинации. Гости пропускаются: их оценка
// зафиксирована при регистрации.
func (s *battleService) GeneratePreselectionBattles(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error) {
	category, err := s.categoryRepo.GetByID(ctx, exec, categoryID)
	if err != nil {
		return nil, s.mapCategoryError(err)
	}

	performers, err := s.performerRepo.ListByCategory(ctx, exec, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list performers for category %d: %w", categoryID, err)
	}

	battles := make([]*models.Battle, 0, len(performers))
	for _, p := range performers {
		if p.IsGuest {
			continue
		}
		battle := &models.Battle{
			TournamentID: category.TournamentID,
			CategoryID:   categoryID,
			Phase:        models.BattlePhasePreselection,
			OutcomeType:  models.OutcomeScored,
			Status:       models.BattleStatusPending,
		}
		if err := s.battleRepo.Create(ctx, exec, battle, []int{p.ID}); err != nil {
			return nil, fmt.Errorf("failed to create preselection battle for performer %d: %w", p.ID, err)
		}
		battles = append(battles, battle)
	}

	s.logger.InfoContext(ctx, "preselection battles generated",
		slog.Int("category_id", categoryID), slog.Int("count", len(battles)))
	return battles, nil
}

// GeneratePoolBattles создаёт полный круг пар внутри пула:
// каждая неупорядоченная пара ровно один раз, гости не участвуют.
func (s *battleService) GeneratePoolBattles(ctx context.Context, exec repositories.SQLExecutor, categoryID, poolID int) ([]*models.Battle, error) {
	category, err := s.categoryRepo.GetByID(ctx, exec, categoryID)
	if err != nil {
		return nil, s.mapCategoryError(err)
	}

	performers, err := s.performerRepo.ListByPool(ctx, exec, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list performers for pool %d: %w", poolID, err)
	}

	ids := make([]int, 0, len(performers))
	for _, p := range performers {
		if !p.IsGuest {
			ids = append(ids, p.ID)
		}
	}

	battles := make([]*models.Battle, 0, len(ids)*(len(ids)-1)/2)
	for _, pair := range draw.RoundRobinPairs(ids) {
		pID := poolID
		battle := &models.Battle{
			TournamentID: category.TournamentID,
			CategoryID:   categoryID,
			PoolID:       &pID,
			Phase:        models.BattlePhasePools,
			OutcomeType:  models.OutcomeWinDrawLoss,
			Status:       models.BattleStatusPending,
		}
		if err := s.battleRepo.Create(ctx, exec, battle, []int{pair.A, pair.B}); err != nil {
			return nil, fmt.Errorf("failed to create pool battle %d vs %d: %w", pair.A, pair.B, err)
		}
		battles = append(battles, battle)
	}

	if err := s.poolRepo.UpdateStatus(ctx, exec, poolID, models.PoolStatusInProgress); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "pool battles generated",
		slog.Int("pool_id", poolID), slog.Int("count", len(battles)))
	return battles, nil
}

// GenerateFinalsBattles собирает победителей пулов и строит сетку на
// выбывание. Посев: очки пула, затем отборочная оценка; bye - верхним сеяным.
func (s *battleService) GenerateFinalsBattles(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error) {
	category, err := s.categoryRepo.GetByID(ctx, exec, categoryID)
	if err != nil {
		return nil, s.mapCategoryError(err)
	}

	pools, err := s.poolRepo.ListByCategory(ctx, exec, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools for category %d: %w", categoryID, err)
	}

	winners := make([]*models.Performer, 0, len(pools))
	for _, pool := range pools {
		if pool.WinnerPerformerID == nil {
			return nil, newValidationError(fmt.Sprintf("pool %d has no winner yet", pool.ID))
		}
		winner, err := s.performerRepo.GetByID(ctx, exec, *pool.WinnerPerformerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load winner of pool %d: %w", pool.ID, err)
		}
		winners = append(winners, winner)
	}

	seedPerformers(winners)
	seededIDs := make([]int, len(winners))
	for i, w := range winners {
		seededIDs[i] = w.ID
	}

	bracket, err := draw.GenerateSingleElimination(seededIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate finals bracket for category %d: %w", categoryID, err)
	}

	// Первый проход: сохраняем матчи, запоминая соответствие UID -> id.
	battles := make([]*models.Battle, 0, len(bracket))
	battleByUID := make(map[string]*models.Battle, len(bracket))
	for _, bm := range bracket {
		round := bm.Round
		uid := bm.UID
		battle := &models.Battle{
			TournamentID: category.TournamentID,
			CategoryID:   categoryID,
			Phase:        models.BattlePhaseFinals,
			OutcomeType:  models.OutcomeWinLoss,
			Status:       models.BattleStatusPending,
			Round:        &round,
			BracketUID:   &uid,
		}
		if err := s.battleRepo.Create(ctx, exec, battle, nil); err != nil {
			return nil, fmt.Errorf("failed to create finals battle %s: %w", bm.UID, err)
		}
		if bm.Performer1ID != nil {
			if err := s.battleRepo.AddParticipant(ctx, exec, battle.ID, *bm.Performer1ID, 1); err != nil {
				return nil, err
			}
		}
		if bm.Performer2ID != nil {
			if err := s.battleRepo.AddParticipant(ctx, exec, battle.ID, *bm.Performer2ID, 2); err != nil {
				return nil, err
			}
		}
		battles = append(battles, battle)
		battleByUID[bm.UID] = battle
	}

	// Второй проход: связываем матчи-источники со следующими матчами,
	// чтобы кодировка финала сама продвигала победителя по сетке.
	for _, bm := range bracket {
		target := battleByUID[bm.UID]
		if bm.SourceMatch1UID != nil {
			if err := s.linkSource(ctx, exec, battleByUID, *bm.SourceMatch1UID, target.ID, 1); err != nil {
				return nil, err
			}
		}
		if bm.SourceMatch2UID != nil {
			if err := s.linkSource(ctx, exec, battleByUID, *bm.SourceMatch2UID, target.ID, 2); err != nil {
				return nil, err
			}
		}
	}

	s.logger.InfoContext(ctx, "finals bracket generated",
		slog.Int("category_id", categoryID), slog.Int("count", len(battles)))
	return battles, nil
}

func (s *battleService) linkSource(ctx context.Context, exec repositories.SQLExecutor, battleByUID map[string]*models.Battle, sourceUID string, nextBattleID, slot int) error {
	source, ok := battleByUID[sourceUID]
	if !ok {
		return fmt.Errorf("internal error: bracket source %s not found", sourceUID)
	}
	slotCopy := slot
	nextCopy := nextBattleID
	if err := s.battleRepo.UpdateNextBattleInfo(ctx, exec, source.ID, &nextCopy, &slotCopy); err != nil {
		return err
	}
	source.NextBattleID = &nextCopy
	source.WinnerToSlot = &slotCopy
	return nil
}

func (s *battleService) SequenceBattles(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, perCategory [][]*models.Battle) error {
	next, err := s.battleRepo.NextSequenceOrder(ctx, exec, tournamentID)
	if err != nil {
		return err
	}
	for _, battle := range draw.Interleave(perCategory) {
		if err := s.battleRepo.UpdateSequenceOrder(ctx, exec, battle.ID, next); err != nil {
			return err
		}
		battle.SequenceOrder = next
		next++
	}
	return nil
}

func (s *battleService) GetBattle(ctx context.Context, battleID int) (*models.Battle, error) {
	battle, err := s.battleRepo.GetByID(ctx, nil, battleID)
	if err != nil {
		if errors.Is(err, repositories.ErrBattleNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	return battle, nil
}

func (s *battleService) ListByCategory(ctx context.Context, categoryID int, phase *models.BattlePhase) ([]*models.Battle, error) {
	return s.battleRepo.ListByCategory(ctx, nil, categoryID, phase)
}

// StartBattle переводит баттл pending -> active. Перевод делается
// compare-and-swap по статусу: второй одновременный старт получит конфликт.
func (s *battleService) StartBattle(ctx context.Context, battleID int) (*models.Battle, error) {
	battle, err := s.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle.Status != models.BattleStatusPending {
		return nil, ErrBattleNotPending
	}

	if err := s.battleRepo.UpdateStatus(ctx, nil, battleID, models.BattleStatusPending, models.BattleStatusActive); err != nil {
		if errors.Is(err, repositories.ErrBattleStatusStale) {
			return nil, ErrBattleNotPending
		}
		return nil, err
	}
	battle.Status = models.BattleStatusActive

	s.hub.BroadcastToRoom(roomID(battle.TournamentID), draw.Event{
		Type:    draw.EventBattleStarted,
		Payload: battle,
	})
	return battle, nil
}

// ReorderBattle передвигает pending-баттл в очереди своей номинации.
// Позиция 1 ("on deck") занята готовящимся баттлом и заблокирована:
// ни сам on-deck баттл, ни чужой баттл на его место двигать нельзя.
func (s *battleService) ReorderBattle(ctx context.Context, battleID, newPosition int) (*models.Battle, error) {
	if newPosition < 2 {
		return nil, newValidationError("new position must be at least 2: position 1 is the locked on-deck slot")
	}

	var moved *models.Battle
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		battle, err := s.battleRepo.GetByID(ctx, tx, battleID)
		if err != nil {
			if errors.Is(err, repositories.ErrBattleNotFound) {
				return ErrBattleNotFound
			}
			return err
		}
		if battle.Status != models.BattleStatusPending {
			return ErrBattleNotPending
		}

		pending, err := s.battleRepo.ListPendingByCategory(ctx, tx, battle.CategoryID)
		if err != nil {
			return err
		}

		currentIdx := -1
		for i, b := range pending {
			if b.ID == battleID {
				currentIdx = i
				break
			}
		}
		if currentIdx == -1 {
			return ErrBattleNotPending
		}
		if currentIdx == 0 {
			return ErrBattleOnDeck
		}
		if newPosition > len(pending) {
			return newValidationError(fmt.Sprintf("new position %d exceeds queue length %d", newPosition, len(pending)))
		}

		// Слоты sequence_order фиксированы, переставляются только баттлы:
		// глобальное чередование номинаций при этом не ломается.
		slots := make([]int, len(pending))
		for i, b := range pending {
			slots[i] = b.SequenceOrder
		}

		reordered := make([]*models.Battle, 0, len(pending))
		reordered = append(reordered, pending[:currentIdx]...)
		reordered = append(reordered, pending[currentIdx+1:]...)
		insertAt := newPosition - 1
		reordered = append(reordered[:insertAt], append([]*models.Battle{battle}, reordered[insertAt:]...)...)

		for i, b := range reordered {
			if b.SequenceOrder != slots[i] {
				if err := s.battleRepo.UpdateSequenceOrder(ctx, tx, b.ID, slots[i]); err != nil {
					return err
				}
				b.SequenceOrder = slots[i]
			}
		}
		moved = battle
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(roomID(moved.TournamentID), draw.Event{
		Type:    draw.EventBattleReordered,
		Payload: moved,
	})
	return moved, nil
}

func (s *battleService) mapCategoryError(err error) error {
	if errors.Is(err, repositories.ErrCategoryNotFound) {
		return ErrCategoryNotFound
	}
	return err
}

// seedPerformers сортирует победителей пулов от сильнейшего к слабейшему:
// очки пула, затем отборочная оценка, затем порядок регистрации.
func seedPerformers(performers []*models.Performer) {
	for i := 1; i < len(performers); i++ {
		for j := i; j > 0 && strongerSeed(performers[j], performers[j-1]); j-- {
			performers[j], performers[j-1] = performers[j-1], performers[j]
		}
	}
}

func strongerSeed(a, b *models.Performer) bool {
	if a.PoolPoints != b.PoolPoints {
		return a.PoolPoints > b.PoolPoints
	}
	aScore, bScore := 0.0, 0.0
	if a.PreselectionScore != nil {
		aScore = *a.PreselectionScore
	}
	if b.PreselectionScore != nil {
		bScore = *b.PreselectionScore
	}
	if aScore != bScore {
		return aScore > bScore
	}
	return a.ID < b.ID
}
