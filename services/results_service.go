package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aruzhans/dance-battle-system/draw"
	"github.com/aruzhans/dance-battle-system/models"
	"github.com/aruzhans/dance-battle-system/repositories"
)

// BattleOutcomeInput - результат баттла в том виде, в каком его вводит
// персонал. Какие поля обязательны, диктует outcome_type баттла.
type BattleOutcomeInput struct {
	// Scores - оценки по участникам для scored-баттлов отбора.
	Scores map[int]float64 `json:"scores,omitempty"`
	// WinnerPerformerID обязателен для win/loss и keep-тайбрейков,
	// а для win/draw/loss - если не ничья.
	WinnerPerformerID *int `json:"winner_performer_id,omitempty"`
	IsDraw            bool `json:"is_draw,omitempty"`
	// EliminatedPerformerID - выбывающий в eliminate-тайбрейке.
	EliminatedPerformerID *int `json:"eliminated_performer_id,omitempty"`
}

// EncodeResult - итог кодировки: обновлённый баттл и, если кодировка
// закрыла границу отбора с ничьёй, созданный tiebreak-баттл.
type EncodeResult struct {
	Battle   *models.Battle `json:"battle"`
	Tiebreak *models.Battle `json:"tiebreak,omitempty"`
}

// ResultsService кодирует результаты баттлов. Вся кодировка - одна
// транзакция: запись результата, каскадные эффекты стадии и создание
// тайбрейков либо применяются целиком, либо откатываются.
type ResultsService interface {
	EncodeBattleResult(ctx context.Context, battleID int, input BattleOutcomeInput) (*EncodeResult, error)
}

type resultsService struct {
	db            *sql.DB
	battleRepo    repositories.BattleRepository
	performerRepo repositories.PerformerRepository
	poolRepo      repositories.PoolRepository
	categoryRepo  repositories.CategoryRepository
	tiebreaks     TiebreakService
	hub           *draw.Hub
	logger        *slog.Logger
}

func NewResultsService(
	db *sql.DB,
	battleRepo repositories.BattleRepository,
	performerRepo repositories.PerformerRepository,
	poolRepo repositories.PoolRepository,
	categoryRepo repositories.CategoryRepository,
	tiebreaks TiebreakService,
	hub *draw.Hub,
	logger *slog.Logger,
) ResultsService {
	return &resultsService{
		db:            db,
		battleRepo:    battleRepo,
		performerRepo: performerRepo,
		poolRepo:      poolRepo,
		categoryRepo:  categoryRepo,
		tiebreaks:     tiebreaks,
		hub:           hub,
		logger:        logger,
	}
}

// EncodeBattleResult применяет результат к активному баттлу.
// Строка баттла берётся с FOR UPDATE, завершение - compare-and-swap
// по статусу: повторная или конкурентная кодировка того же баттла
// получает ErrBattleNotActive, эффекты применяются не более одного раза.
func (s *resultsService) EncodeBattleResult(ctx context.Context, battleID int, input BattleOutcomeInput) (*EncodeResult, error) {
	var result *EncodeResult
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		battle, err := s.battleRepo.GetForEncoding(ctx, tx, battleID)
		if err != nil {
			if errors.Is(err, repositories.ErrBattleNotFound) {
				return ErrBattleNotFound
			}
			return err
		}
		if battle.Status != models.BattleStatusActive {
			return ErrBattleNotActive
		}

		var encodeErr error
		switch battle.OutcomeType {
		case models.OutcomeScored:
			result, encodeErr = s.encodeScored(ctx, tx, battle, input)
		case models.OutcomeWinDrawLoss:
			result, encodeErr = s.encodeWinDrawLoss(ctx, tx, battle, input)
		case models.OutcomeTiebreak:
			result, encodeErr = s.encodeTiebreak(ctx, tx, battle, input)
		case models.OutcomeWinLoss:
			result, encodeErr = s.encodeWinLoss(ctx, tx, battle, input)
		default:
			encodeErr = fmt.Errorf("unknown outcome type %q for battle %d", battle.OutcomeType, battle.ID)
		}
		return encodeErr
	})
	if err != nil {
		return nil, err
	}

	room := roomID(result.Battle.TournamentID)
	s.hub.BroadcastToRoom(room, draw.Event{Type: draw.EventBattleEncoded, Payload: result.Battle})
	if result.Tiebreak != nil {
		s.hub.BroadcastToRoom(room, draw.Event{Type: draw.EventTiebreakCreated, Payload: result.Tiebreak})
	}
	return result, nil
}

// encodeScored записывает оценку сольного отборочного баттла.
// Когда в номинации не остаётся незакрытых баттлов отбора, тут же
// проводится граница квалификации.
func (s *resultsService) encodeScored(ctx context.Context, tx *sql.Tx, battle *models.Battle, input BattleOutcomeInput) (*EncodeResult, error) {
	if len(battle.Participants) != 1 {
		return nil, fmt.Errorf("internal error: scored battle %d has %d participants", battle.ID, len(battle.Participants))
	}
	performerID := battle.Participants[0].PerformerID

	violations := &violationList{}
	score, ok := input.Scores[performerID]
	if !ok {
		violations.addf("score for performer %d is required", performerID)
	} else if msg := scoreViolation(score); msg != "" {
		violations.addf("performer %d: %s", performerID, msg)
	}
	for id := range input.Scores {
		if id != performerID {
			violations.addf("performer %d is not in this battle", id)
		}
	}
	if err := violations.err(); err != nil {
		return nil, err
	}

	if err := s.battleRepo.SetParticipantScore(ctx, tx, battle.ID, performerID, score); err != nil {
		return nil, err
	}
	if err := s.performerRepo.UpdatePreselectionScore(ctx, tx, performerID, score); err != nil {
		return nil, err
	}
	if err := s.complete(ctx, tx, battle, nil, false); err != nil {
		return nil, err
	}
	battle.Participants[0].Score = &score

	tiebreak, err := s.closePreselectionIfDone(ctx, tx, battle.TournamentID, battle.CategoryID)
	if err != nil {
		return nil, err
	}
	return &EncodeResult{Battle: battle, Tiebreak: tiebreak}, nil
}

// encodeWinDrawLoss записывает результат баттла пула и обновляет
// статистику обоих участников: победа 3 очка, ничья 1, поражение 0.
func (s *resultsService) encodeWinDrawLoss(ctx context.Context, tx *sql.Tx, battle *models.Battle, input BattleOutcomeInput) (*EncodeResult, error) {
	if len(battle.Participants) != 2 {
		return nil, fmt.Errorf("internal error: pool battle %d has %d participants", battle.ID, len(battle.Participants))
	}
	if battle.PoolID == nil {
		return nil, fmt.Errorf("internal error: pool battle %d has no pool", battle.ID)
	}

	a := battle.Participants[0].PerformerID
	b := battle.Participants[1].PerformerID

	if input.IsDraw {
		if input.WinnerPerformerID != nil {
			return nil, newValidationError("a draw cannot also name a winner")
		}
		for _, id := range []int{a, b} {
			if err := s.performerRepo.ApplyPoolResult(ctx, tx, id, 0, 1, 0, 1); err != nil {
				return nil, err
			}
		}
		if err := s.complete(ctx, tx, battle, nil, true); err != nil {
			return nil, err
		}
	} else {
		if input.WinnerPerformerID == nil {
			return nil, newValidationError("winner is required unless the battle is a draw")
		}
		winner := *input.WinnerPerformerID
		if !battle.HasParticipant(winner) {
			return nil, newValidationError(fmt.Sprintf("performer %d is not in this battle", winner))
		}
		loser := a
		if winner == a {
			loser = b
		}
		if err := s.performerRepo.ApplyPoolResult(ctx, tx, winner, 1, 0, 0, 3); err != nil {
			return nil, err
		}
		if err := s.performerRepo.ApplyPoolResult(ctx, tx, loser, 0, 0, 1, 0); err != nil {
			return nil, err
		}
		if err := s.complete(ctx, tx, battle, &winner, false); err != nil {
			return nil, err
		}
	}

	tiebreak, err := s.closePoolIfDone(ctx, tx, battle.TournamentID, battle.CategoryID, *battle.PoolID)
	if err != nil {
		return nil, err
	}
	return &EncodeResult{Battle: battle, Tiebreak: tiebreak}, nil
}

// encodeTiebreak продвигает тайбрейк на один тур голосования.
// Keep: единственный тур, судьи называют победителя. Eliminate: каждый
// тур выбывает один участник, баттл закрыт, когда оставшихся ровно
// winners_needed. Состав участников при этом не меняется.
func (s *resultsService) encodeTiebreak(ctx context.Context, tx *sql.Tx, battle *models.Battle, input BattleOutcomeInput) (*EncodeResult, error) {
	if battle.VotingMode == nil || battle.WinnersNeeded == nil {
		return nil, fmt.Errorf("internal error: tiebreak battle %d has no voting configuration", battle.ID)
	}

	switch *battle.VotingMode {
	case models.VotingModeKeep:
		if input.WinnerPerformerID == nil {
			return nil, newValidationError("keep-vote tiebreak requires a winner")
		}
		winner := *input.WinnerPerformerID
		if !battle.HasParticipant(winner) {
			return nil, newValidationError(fmt.Sprintf("performer %d is not in this battle", winner))
		}
		for i := range battle.Participants {
			if battle.Participants[i].PerformerID == winner {
				continue
			}
			if err := s.battleRepo.EliminateParticipant(ctx, tx, battle.ID, battle.Participants[i].PerformerID); err != nil {
				return nil, err
			}
			battle.Participants[i].Eliminated = true
		}
		if err := s.complete(ctx, tx, battle, &winner, false); err != nil {
			return nil, err
		}

	case models.VotingModeEliminate:
		if input.EliminatedPerformerID == nil {
			return nil, newValidationError("eliminate-vote tiebreak requires an eliminated performer")
		}
		eliminated := *input.EliminatedPerformerID
		found := false
		for i := range battle.Participants {
			if battle.Participants[i].PerformerID != eliminated {
				continue
			}
			if battle.Participants[i].Eliminated {
				return nil, newValidationError(fmt.Sprintf("performer %d is already eliminated", eliminated))
			}
			battle.Participants[i].Eliminated = true
			found = true
		}
		if !found {
			return nil, newValidationError(fmt.Sprintf("performer %d is not in this battle", eliminated))
		}
		if err := s.battleRepo.EliminateParticipant(ctx, tx, battle.ID, eliminated); err != nil {
			return nil, err
		}

		remaining := battle.RemainingParticipants()
		if len(remaining) > *battle.WinnersNeeded {
			// Тур записан, баттл остаётся активным до следующих выбываний.
			return &EncodeResult{Battle: battle}, nil
		}
		var winner *int
		if len(remaining) == 1 {
			id := remaining[0].PerformerID
			winner = &id
		}
		if err := s.complete(ctx, tx, battle, winner, false); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown voting mode %q for battle %d", *battle.VotingMode, battle.ID)
	}

	if err := s.applyTiebreakOutcome(ctx, tx, battle); err != nil {
		return nil, err
	}
	return &EncodeResult{Battle: battle}, nil
}

// applyTiebreakOutcome переносит исход завершённого тайбрейка на его
// границу: выжившие в отборочном тайбрейке квалифицируются, выживший
// в тайбрейке пула становится его победителем.
func (s *resultsService) applyTiebreakOutcome(ctx context.Context, tx *sql.Tx, battle *models.Battle) error {
	survivors := battle.RemainingParticipants()

	if battle.PoolID == nil {
		ids := make([]int, len(survivors))
		for i, p := range survivors {
			ids[i] = p.PerformerID
		}
		return s.performerRepo.SetQualified(ctx, tx, ids)
	}

	if len(survivors) != 1 {
		return fmt.Errorf("internal error: pool tiebreak %d completed with %d survivors", battle.ID, len(survivors))
	}
	return s.poolRepo.SetWinner(ctx, tx, *battle.PoolID, survivors[0].PerformerID)
}

// encodeWinLoss записывает результат матча финальной сетки и продвигает
// победителя в следующий матч. Финал сетки фиксирует победителя номинации.
func (s *resultsService) encodeWinLoss(ctx context.Context, tx *sql.Tx, battle *models.Battle, input BattleOutcomeInput) (*EncodeResult, error) {
	if input.IsDraw {
		return nil, newValidationError("finals battles cannot end in a draw")
	}
	if input.WinnerPerformerID == nil {
		return nil, newValidationError("winner is required for a finals battle")
	}
	winner := *input.WinnerPerformerID
	if !battle.HasParticipant(winner) {
		return nil, newValidationError(fmt.Sprintf("performer %d is not in this battle", winner))
	}

	if err := s.complete(ctx, tx, battle, &winner, false); err != nil {
		return nil, err
	}

	if battle.NextBattleID != nil {
		if battle.WinnerToSlot == nil {
			return nil, fmt.Errorf("internal error: battle %d has next battle but no slot", battle.ID)
		}
		if err := s.battleRepo.AddParticipant(ctx, tx, *battle.NextBattleID, winner, *battle.WinnerToSlot); err != nil {
			return nil, err
		}
		return &EncodeResult{Battle: battle}, nil
	}

	winnerPerformer, err := s.performerRepo.GetByID(ctx, tx, winner)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.SetWinner(ctx, tx, battle.CategoryID, winnerPerformer.ID); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "category winner decided",
		slog.Int("category_id", battle.CategoryID), slog.Int("performer_id", winnerPerformer.ID))
	return &EncodeResult{Battle: battle}, nil
}

func (s *resultsService) complete(ctx context.Context, tx *sql.Tx, battle *models.Battle, winnerPerformerID *int, isDraw bool) error {
	if err := s.battleRepo.Complete(ctx, tx, battle.ID, winnerPerformerID, isDraw); err != nil {
		if errors.Is(err, repositories.ErrBattleStatusStale) {
			return ErrBattleNotActive
		}
		return err
	}
	battle.Status = models.BattleStatusCompleted
	battle.WinnerPerformerID = winnerPerformerID
	battle.IsDraw = isDraw
	return nil
}

// closePreselectionIfDone проводит границу квалификации, как только в
// номинации закрыт последний отборочный баттл. При ничьей на границе
// создаётся тайбрейк и ставится в конец очереди турнира.
func (s *resultsService) closePreselectionIfDone(ctx context.Context, tx *sql.Tx, tournamentID, categoryID int) (*models.Battle, error) {
	pending, err := s.battleRepo.CountPending(ctx, tx, categoryID,
		[]models.BattlePhase{models.BattlePhasePreselection, models.BattlePhaseTiebreak}, nil)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, nil
	}

	category, err := s.categoryRepo.GetByID(ctx, tx, categoryID)
	if err != nil {
		return nil, err
	}
	performers, err := s.performerRepo.ListByCategory(ctx, tx, categoryID)
	if err != nil {
		return nil, err
	}
	capacity, _, _, err := draw.PoolCapacity(len(performers), category.GroupsIdeal, category.PerformersIdeal)
	if err != nil {
		return nil, newValidationError(fmt.Sprintf("category %d: %v", categoryID, err))
	}

	outcome, err := s.tiebreaks.ResolvePreselection(ctx, tx, categoryID, capacity)
	if err != nil {
		return nil, err
	}
	if len(outcome.QualifiedIDs) > 0 {
		if err := s.performerRepo.SetQualified(ctx, tx, outcome.QualifiedIDs); err != nil {
			return nil, err
		}
	}
	if len(outcome.TiedIDs) == 0 {
		return nil, nil
	}

	tiebreak, err := s.tiebreaks.CreateTiebreakBattle(ctx, tx, tournamentID, categoryID, nil, outcome.TiedIDs, outcome.WinnersNeeded)
	if err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, tx, tiebreak); err != nil {
		return nil, err
	}
	return tiebreak, nil
}

// closePoolIfDone определяет победителя пула после его последнего баттла.
func (s *resultsService) closePoolIfDone(ctx context.Context, tx *sql.Tx, tournamentID, categoryID, poolID int) (*models.Battle, error) {
	pID := poolID
	pending, err := s.battleRepo.CountPending(ctx, tx, categoryID,
		[]models.BattlePhase{models.BattlePhasePools, models.BattlePhaseTiebreak}, &pID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, nil
	}

	outcome, err := s.tiebreaks.ResolvePoolWinner(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}
	if outcome.WinnerID != nil {
		return nil, s.poolRepo.SetWinner(ctx, tx, poolID, *outcome.WinnerID)
	}

	tiebreak, err := s.tiebreaks.CreateTiebreakBattle(ctx, tx, tournamentID, categoryID, &pID, outcome.TiedIDs, 1)
	if err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, tx, tiebreak); err != nil {
		return nil, err
	}
	return tiebreak, nil
}

func (s *resultsService) enqueue(ctx context.Context, tx *sql.Tx, battle *models.Battle) error {
	next, err := s.battleRepo.NextSequenceOrder(ctx, tx, battle.TournamentID)
	if err != nil {
		return err
	}
	if err := s.battleRepo.UpdateSequenceOrder(ctx, tx, battle.ID, next); err != nil {
		return err
	}
	battle.SequenceOrder = next
	return nil
}

// scoreViolation проверяет судейскую оценку: 0-10, не больше двух
// знаков после запятой.
func scoreViolation(score float64) string {
	if score < 0 || score > 10 {
		return fmt.Sprintf("score %.2f is out of range 0-10", score)
	}
	if math.Abs(score*100-math.Round(score*100)) > 1e-9 {
		return fmt.Sprintf("score %v has more than two decimal places", score)
	}
	return ""
}
