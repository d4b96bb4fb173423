package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/aruzhans/dance-battle-system/models"
	"github.com/aruzhans/dance-battle-system/repositories"
)

// PreselectionOutcome - итог проверки отборочной границы номинации.
// Либо все квалифицированные известны, либо нужен tiebreak-баттл.
type PreselectionOutcome struct {
	QualifiedIDs  []int
	TiedIDs       []int
	WinnersNeeded int
}

// PoolWinnerOutcome - итог определения победителя пула.
type PoolWinnerOutcome struct {
	WinnerID *int
	TiedIDs  []int
}

// TiebreakService находит ничьи на границах отбора и строит
// дополнительные баттлы для их разрешения. Вызывается контроллером
// стадий внутри его транзакции.
type TiebreakService interface {
	ResolvePreselection(ctx context.Context, exec repositories.SQLExecutor, categoryID, poolCapacity int) (*PreselectionOutcome, error)
	ResolvePoolWinner(ctx context.Context, exec repositories.SQLExecutor, poolID int) (*PoolWinnerOutcome, error)
	CreateTiebreakBattle(ctx context.Context, exec repositories.SQLExecutor, tournamentID, categoryID int, poolID *int, tiedIDs []int, winnersNeeded int) (*models.Battle, error)
}

type tiebreakService struct {
	battleRepo    repositories.BattleRepository
	performerRepo repositories.PerformerRepository
	logger        *slog.Logger
}

func NewTiebreakService(
	battleRepo repositories.BattleRepository,
	performerRepo repositories.PerformerRepository,
	logger *slog.Logger,
) TiebreakService {
	return &tiebreakService{
		battleRepo:    battleRepo,
		performerRepo: performerRepo,
		logger:        logger,
	}
}

// ResolvePreselection делит участников номинации по отборочной границе.
// Гости квалифицируются автоматически и занимают места из общей ёмкости;
// остальные места разыгрываются по оценкам. Если на границе ничья,
// возвращается список связанных участников и число мест между ними.
func (s *tiebreakService) ResolvePreselection(ctx context.Context, exec repositories.SQLExecutor, categoryID, poolCapacity int) (*PreselectionOutcome, error) {
	performers, err := s.performerRepo.ListByCategory(ctx, exec, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list performers for category %d: %w", categoryID, err)
	}

	outcome := &PreselectionOutcome{}
	regular := make([]*models.Performer, 0, len(performers))
	for _, p := range performers {
		if p.IsGuest {
			outcome.QualifiedIDs = append(outcome.QualifiedIDs, p.ID)
			continue
		}
		if p.PreselectionScore == nil {
			return nil, newValidationError(fmt.Sprintf("performer %d has no preselection score", p.ID))
		}
		regular = append(regular, p)
	}

	slots := poolCapacity - len(outcome.QualifiedIDs)
	if slots <= 0 {
		return nil, newValidationError(fmt.Sprintf(
			"category %d has %d guests but only %d pool slots", categoryID, len(outcome.QualifiedIDs), poolCapacity))
	}
	if len(regular) <= slots {
		for _, p := range regular {
			outcome.QualifiedIDs = append(outcome.QualifiedIDs, p.ID)
		}
		return outcome, nil
	}

	// Стабильная сортировка по убыванию оценки сохраняет порядок
	// регистрации внутри одинаковых оценок.
	sort.SliceStable(regular, func(i, j int) bool {
		return *regular[i].PreselectionScore > *regular[j].PreselectionScore
	})

	boundary := *regular[slots-1].PreselectionScore
	above := make([]*models.Performer, 0, slots)
	tied := make([]*models.Performer, 0)
	for _, p := range regular {
		switch {
		case *p.PreselectionScore > boundary:
			above = append(above, p)
		case *p.PreselectionScore == boundary:
			tied = append(tied, p)
		}
	}

	if len(above)+len(tied) == slots {
		// Граница чистая: все с граничной оценкой помещаются.
		for _, p := range above {
			outcome.QualifiedIDs = append(outcome.QualifiedIDs, p.ID)
		}
		for _, p := range tied {
			outcome.QualifiedIDs = append(outcome.QualifiedIDs, p.ID)
		}
		return outcome, nil
	}

	for _, p := range above {
		outcome.QualifiedIDs = append(outcome.QualifiedIDs, p.ID)
	}
	for _, p := range tied {
		outcome.TiedIDs = append(outcome.TiedIDs, p.ID)
	}
	outcome.WinnersNeeded = slots - len(above)
	return outcome, nil
}

// ResolvePoolWinner ищет единственного лидера пула по очкам.
// Гости в зачёте пула не участвуют.
func (s *tiebreakService) ResolvePoolWinner(ctx context.Context, exec repositories.SQLExecutor, poolID int) (*PoolWinnerOutcome, error) {
	performers, err := s.performerRepo.ListByPool(ctx, exec, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list performers for pool %d: %w", poolID, err)
	}

	best := -1
	var leaders []*models.Performer
	for _, p := range performers {
		if p.IsGuest {
			continue
		}
		switch {
		case p.PoolPoints > best:
			best = p.PoolPoints
			leaders = []*models.Performer{p}
		case p.PoolPoints == best:
			leaders = append(leaders, p)
		}
	}

	if len(leaders) == 0 {
		return nil, newValidationError(fmt.Sprintf("pool %d has no regular performers", poolID))
	}
	if len(leaders) == 1 {
		id := leaders[0].ID
		return &PoolWinnerOutcome{WinnerID: &id}, nil
	}

	outcome := &PoolWinnerOutcome{}
	for _, p := range leaders {
		outcome.TiedIDs = append(outcome.TiedIDs, p.ID)
	}
	return outcome, nil
}

// CreateTiebreakBattle создаёт баттл среди связанных участников.
// Два участника голосуются в режиме "keep" - один тур, один победитель.
// Больше двух - режим "eliminate": судьи выбывают по одному, баттл
// завершается, когда оставшихся ровно winnersNeeded.
func (s *tiebreakService) CreateTiebreakBattle(ctx context.Context, exec repositories.SQLExecutor, tournamentID, categoryID int, poolID *int, tiedIDs []int, winnersNeeded int) (*models.Battle, error) {
	if len(tiedIDs) < 2 {
		return nil, newValidationError("tiebreak requires at least two tied performers")
	}
	if winnersNeeded < 1 || winnersNeeded >= len(tiedIDs) {
		return nil, newValidationError(fmt.Sprintf(
			"winners needed %d must be between 1 and %d", winnersNeeded, len(tiedIDs)-1))
	}

	mode := models.VotingModeEliminate
	if len(tiedIDs) == 2 {
		mode = models.VotingModeKeep
	}

	uid := uuid.NewString()
	winners := winnersNeeded
	battle := &models.Battle{
		TournamentID:  tournamentID,
		CategoryID:    categoryID,
		PoolID:        poolID,
		Phase:         models.BattlePhaseTiebreak,
		OutcomeType:   models.OutcomeTiebreak,
		Status:        models.BattleStatusPending,
		VotingMode:    &mode,
		WinnersNeeded: &winners,
		BracketUID:    &uid,
	}
	if err := s.battleRepo.Create(ctx, exec, battle, tiedIDs); err != nil {
		return nil, fmt.Errorf("failed to create tiebreak battle: %w", err)
	}

	s.logger.InfoContext(ctx, "tiebreak battle created",
		slog.Int("battle_id", battle.ID),
		slog.Int("category_id", categoryID),
		slog.Int("tied", len(tiedIDs)),
		slog.Int("winners_needed", winnersNeeded))
	return battle, nil
}
