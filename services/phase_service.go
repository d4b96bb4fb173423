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

// PhaseService двигает турнир по стадиям. Переход - одна транзакция:
// проверка готовности, генерация баттлов новой стадии и смена стадии
// применяются целиком. Сама смена - compare-and-swap по (phase, status),
// поэтому из двух одновременных переходов пройдёт ровно один.
type PhaseService interface {
	AdvancePhase(ctx context.Context, tournamentID int) (*models.Tournament, error)
	CancelTournament(ctx context.Context, tournamentID int) error
}

type phaseService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	categoryRepo   repositories.CategoryRepository
	performerRepo  repositories.PerformerRepository
	poolRepo       repositories.PoolRepository
	battleRepo     repositories.BattleRepository
	battles        BattleService
	pools          PoolService
	hub            *draw.Hub
	logger         *slog.Logger
}

func NewPhaseService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	categoryRepo repositories.CategoryRepository,
	performerRepo repositories.PerformerRepository,
	poolRepo repositories.PoolRepository,
	battleRepo repositories.BattleRepository,
	battles BattleService,
	pools PoolService,
	hub *draw.Hub,
	logger *slog.Logger,
) PhaseService {
	return &phaseService{
		db:             db,
		tournamentRepo: tournamentRepo,
		categoryRepo:   categoryRepo,
		performerRepo:  performerRepo,
		poolRepo:       poolRepo,
		battleRepo:     battleRepo,
		battles:        battles,
		pools:          pools,
		hub:            hub,
		logger:         logger,
	}
}

// AdvancePhase переводит турнир в следующую стадию. Стадии идут строго
// вперёд и только по одной. Если турнир не готов, возвращается
// ValidationError со ВСЕМИ причинами сразу, а не с первой найденной.
func (s *phaseService) AdvancePhase(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	var tournament *models.Tournament
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if t.Status == models.StatusCompleted || t.Status == models.StatusCanceled {
			return ErrTournamentFinished
		}

		next, ok := phaseSuccessor[t.Phase]
		if !ok {
			return ErrPhaseConflict
		}

		categories, err := s.categoryRepo.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}

		violations := &violationList{}
		switch next {
		case models.PhasePreselection:
			s.checkRegistrationComplete(ctx, tx, categories, violations)
		case models.PhasePools:
			s.checkPreselectionComplete(ctx, tx, categories, violations)
		case models.PhaseFinals:
			s.checkPoolsComplete(ctx, tx, categories, violations)
		case models.PhaseCompleted:
			s.checkFinalsComplete(ctx, tx, categories, violations)
		}
		if err := violations.err(); err != nil {
			return err
		}

		// Одновременно идёт не больше одного турнира. Частичный
		// уникальный индекс страхует от гонки, проверка заранее даёт
		// ошибку с именем действующего турнира.
		if t.Status == models.StatusCreated {
			active, err := s.tournamentRepo.FindActive(ctx, tx)
			switch {
			case err == nil:
				return fmt.Errorf("%w: %q must finish first", ErrAnotherTournamentActive, active.Name)
			case !errors.Is(err, repositories.ErrTournamentNotFound):
				return err
			}
		}

		switch next {
		case models.PhasePreselection:
			err = s.startPreselection(ctx, tx, tournamentID, categories)
		case models.PhasePools:
			err = s.startPools(ctx, tx, tournamentID, categories)
		case models.PhaseFinals:
			err = s.startFinals(ctx, tx, tournamentID, categories)
		}
		if err != nil {
			return err
		}

		newStatus := statusForPhase(next)
		if err := s.tournamentRepo.UpdatePhaseStatus(ctx, tx, tournamentID, t.Phase, t.Status, next, newStatus); err != nil {
			switch {
			case errors.Is(err, repositories.ErrTournamentStateStale):
				return ErrPhaseConflict
			case errors.Is(err, repositories.ErrAnotherTournamentActive):
				return ErrAnotherTournamentActive
			}
			return err
		}
		t.Phase = next
		t.Status = newStatus
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament phase advanced",
		slog.Int("tournament_id", tournamentID), slog.String("phase", string(tournament.Phase)))
	s.hub.BroadcastToRoom(roomID(tournamentID), draw.Event{
		Type:    draw.EventPhaseAdvanced,
		Payload: tournament,
	})
	return tournament, nil
}

// CancelTournament снимает турнир в любой незавершённой стадии.
func (s *phaseService) CancelTournament(ctx context.Context, tournamentID int) error {
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if t.Status == models.StatusCompleted || t.Status == models.StatusCanceled {
			return ErrTournamentFinished
		}
		if err := s.tournamentRepo.UpdatePhaseStatus(ctx, tx, tournamentID, t.Phase, t.Status, t.Phase, models.StatusCanceled); err != nil {
			if errors.Is(err, repositories.ErrTournamentStateStale) {
				return ErrPhaseConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "tournament canceled", slog.Int("tournament_id", tournamentID))
	return nil
}

// checkRegistrationComplete: в каждой номинации хватает участников,
// чтобы после отбора каждый пул получил минимум двоих и хотя бы один
// участник выбыл.
func (s *phaseService) checkRegistrationComplete(ctx context.Context, tx *sql.Tx, categories []*models.Category, violations *violationList) {
	if len(categories) == 0 {
		violations.addf("tournament has no categories")
		return
	}
	for _, c := range categories {
		performers, err := s.performerRepo.ListByCategory(ctx, tx, c.ID)
		if err != nil {
			violations.addf("category %q: %v", c.Name, err)
			continue
		}
		guests := 0
		for _, p := range performers {
			if p.IsGuest {
				guests++
			}
		}
		minimum := draw.MinimumPerformers(c.GroupsIdeal, guests)
		regular := len(performers) - guests
		if regular < minimum {
			violations.addf("category %q has %d regular performers, needs at least %d", c.Name, regular, minimum)
			continue
		}
		if _, _, _, err := draw.PoolCapacity(len(performers), c.GroupsIdeal, c.PerformersIdeal); err != nil {
			violations.addf("category %q: %v", c.Name, err)
		}
	}
}

func (s *phaseService) checkPreselectionComplete(ctx context.Context, tx *sql.Tx, categories []*models.Category, violations *violationList) {
	for _, c := range categories {
		pending, err := s.battleRepo.CountPending(ctx, tx, c.ID,
			[]models.BattlePhase{models.BattlePhasePreselection, models.BattlePhaseTiebreak}, nil)
		if err != nil {
			violations.addf("category %q: %v", c.Name, err)
			continue
		}
		if pending > 0 {
			violations.addf("category %q has %d unfinished preselection battles", c.Name, pending)
		}
	}
}

func (s *phaseService) checkPoolsComplete(ctx context.Context, tx *sql.Tx, categories []*models.Category, violations *violationList) {
	for _, c := range categories {
		pending, err := s.battleRepo.CountPending(ctx, tx, c.ID,
			[]models.BattlePhase{models.BattlePhasePools, models.BattlePhaseTiebreak}, nil)
		if err != nil {
			violations.addf("category %q: %v", c.Name, err)
			continue
		}
		if pending > 0 {
			violations.addf("category %q has %d unfinished pool battles", c.Name, pending)
			continue
		}
		pools, err := s.poolRepo.ListByCategory(ctx, tx, c.ID)
		if err != nil {
			violations.addf("category %q: %v", c.Name, err)
			continue
		}
		for _, pool := range pools {
			if pool.WinnerPerformerID == nil {
				violations.addf("category %q: pool %d has no winner", c.Name, pool.Position)
			}
		}
	}
}

func (s *phaseService) checkFinalsComplete(ctx context.Context, tx *sql.Tx, categories []*models.Category, violations *violationList) {
	for _, c := range categories {
		pending, err := s.battleRepo.CountPending(ctx, tx, c.ID,
			[]models.BattlePhase{models.BattlePhaseFinals}, nil)
		if err != nil {
			violations.addf("category %q: %v", c.Name, err)
			continue
		}
		if pending > 0 {
			violations.addf("category %q has %d unfinished finals battles", c.Name, pending)
			continue
		}
		if c.WinnerPerformerID == nil {
			violations.addf("category %q has no winner", c.Name)
		}
	}
}

func (s *phaseService) startPreselection(ctx context.Context, tx *sql.Tx, tournamentID int, categories []*models.Category) error {
	perCategory := make([][]*models.Battle, 0, len(categories))
	for _, c := range categories {
		battles, err := s.battles.GeneratePreselectionBattles(ctx, tx, c.ID)
		if err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
		perCategory = append(perCategory, battles)
	}
	return s.battles.SequenceBattles(ctx, tx, tournamentID, perCategory)
}

func (s *phaseService) startPools(ctx context.Context, tx *sql.Tx, tournamentID int, categories []*models.Category) error {
	perCategory := make([][]*models.Battle, 0, len(categories))
	for _, c := range categories {
		pools, err := s.pools.CreatePools(ctx, tx, c.ID)
		if err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
		var categoryBattles []*models.Battle
		for _, pool := range pools {
			battles, err := s.battles.GeneratePoolBattles(ctx, tx, c.ID, pool.ID)
			if err != nil {
				return fmt.Errorf("category %q pool %d: %w", c.Name, pool.Position, err)
			}
			categoryBattles = append(categoryBattles, battles...)
		}
		perCategory = append(perCategory, categoryBattles)
	}
	return s.battles.SequenceBattles(ctx, tx, tournamentID, perCategory)
}

func (s *phaseService) startFinals(ctx context.Context, tx *sql.Tx, tournamentID int, categories []*models.Category) error {
	perCategory := make([][]*models.Battle, 0, len(categories))
	for _, c := range categories {
		battles, err := s.battles.GenerateFinalsBattles(ctx, tx, c.ID)
		if err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
		perCategory = append(perCategory, battles)
	}
	return s.battles.SequenceBattles(ctx, tx, tournamentID, perCategory)
}
