package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/aruzhans/dance-battle-system/models"
	"github.com/aruzhans/dance-battle-system/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Фейки репозиториев: каждый метод делегирует в настраиваемую функцию,
// невыставленный метод роняет тест, чтобы случайный вызов не прошёл тихо.

type fakeBattleRepo struct {
	t *testing.T

	CreateFn           func(ctx context.Context, exec repositories.SQLExecutor, battle *models.Battle, performerIDs []int) error
	GetByIDFn          func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error)
	GetForEncodingFn   func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error)
	ListByCategoryFn   func(ctx context.Context, exec repositories.SQLExecutor, categoryID int, phase *models.BattlePhase) ([]*models.Battle, error)
	ListPendingFn      func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error)
	CountPendingFn     func(ctx context.Context, exec repositories.SQLExecutor, categoryID int, phases []models.BattlePhase, poolID *int) (int, error)
	UpdateStatusFn     func(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.BattleStatus) error
	CompleteFn         func(ctx context.Context, exec repositories.SQLExecutor, id int, winnerPerformerID *int, isDraw bool) error
	UpdateSequenceFn   func(ctx context.Context, exec repositories.SQLExecutor, id, sequenceOrder int) error
	NextSequenceFn     func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error)
	SetScoreFn         func(ctx context.Context, exec repositories.SQLExecutor, battleID, performerID int, score float64) error
	EliminateFn        func(ctx context.Context, exec repositories.SQLExecutor, battleID, performerID int) error
	AddParticipantFn   func(ctx context.Context, exec repositories.SQLExecutor, battleID, performerID, slot int) error
	UpdateNextBattleFn func(ctx context.Context, exec repositories.SQLExecutor, battleID int, nextBattleID, winnerToSlot *int) error
}

func (f *fakeBattleRepo) missing(name string) {
	f.t.Helper()
	f.t.Fatalf("unexpected call to battle repo %s", name)
}

func (f *fakeBattleRepo) Create(ctx context.Context, exec repositories.SQLExecutor, battle *models.Battle, performerIDs []int) error {
	if f.CreateFn == nil {
		f.missing("Create")
	}
	return f.CreateFn(ctx, exec, battle, performerIDs)
}

func (f *fakeBattleRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error) {
	if f.GetByIDFn == nil {
		f.missing("GetByID")
	}
	return f.GetByIDFn(ctx, exec, id)
}

func (f *fakeBattleRepo) GetForEncoding(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error) {
	if f.GetForEncodingFn == nil {
		f.missing("GetForEncoding")
	}
	return f.GetForEncodingFn(ctx, exec, id)
}

func (f *fakeBattleRepo) ListByCategory(ctx context.Context, exec repositories.SQLExecutor, categoryID int, phase *models.BattlePhase) ([]*models.Battle, error) {
	if f.ListByCategoryFn == nil {
		f.missing("ListByCategory")
	}
	return f.ListByCategoryFn(ctx, exec, categoryID, phase)
}

func (f *fakeBattleRepo) ListPendingByCategory(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error) {
	if f.ListPendingFn == nil {
		f.missing("ListPendingByCategory")
	}
	return f.ListPendingFn(ctx, exec, categoryID)
}

func (f *fakeBattleRepo) CountPending(ctx context.Context, exec repositories.SQLExecutor, categoryID int, phases []models.BattlePhase, poolID *int) (int, error) {
	if f.CountPendingFn == nil {
		f.missing("CountPending")
	}
	return f.CountPendingFn(ctx, exec, categoryID, phases, poolID)
}

func (f *fakeBattleRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.BattleStatus) error {
	if f.UpdateStatusFn == nil {
		f.missing("UpdateStatus")
	}
	return f.UpdateStatusFn(ctx, exec, id, from, to)
}

func (f *fakeBattleRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, winnerPerformerID *int, isDraw bool) error {
	if f.CompleteFn == nil {
		f.missing("Complete")
	}
	return f.CompleteFn(ctx, exec, id, winnerPerformerID, isDraw)
}

func (f *fakeBattleRepo) UpdateSequenceOrder(ctx context.Context, exec repositories.SQLExecutor, id, sequenceOrder int) error {
	if f.UpdateSequenceFn == nil {
		f.missing("UpdateSequenceOrder")
	}
	return f.UpdateSequenceFn(ctx, exec, id, sequenceOrder)
}

func (f *fakeBattleRepo) NextSequenceOrder(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	if f.NextSequenceFn == nil {
		f.missing("NextSequenceOrder")
	}
	return f.NextSequenceFn(ctx, exec, tournamentID)
}

func (f *fakeBattleRepo) SetParticipantScore(ctx context.Context, exec repositories.SQLExecutor, battleID, performerID int, score float64) error {
	if f.SetScoreFn == nil {
		f.missing("SetParticipantScore")
	}
	return f.SetScoreFn(ctx, exec, battleID, performerID, score)
}

func (f *fakeBattleRepo) EliminateParticipant(ctx context.Context, exec repositories.SQLExecutor, battleID, performerID int) error {
	if f.EliminateFn == nil {
		f.missing("EliminateParticipant")
	}
	return f.EliminateFn(ctx, exec, battleID, performerID)
}

func (f *fakeBattleRepo) AddParticipant(ctx context.Context, exec repositories.SQLExecutor, battleID, performerID, slot int) error {
	if f.AddParticipantFn == nil {
		f.missing("AddParticipant")
	}
	return f.AddParticipantFn(ctx, exec, battleID, performerID, slot)
}

func (f *fakeBattleRepo) UpdateNextBattleInfo(ctx context.Context, exec repositories.SQLExecutor, battleID int, nextBattleID, winnerToSlot *int) error {
	if f.UpdateNextBattleFn == nil {
		f.missing("UpdateNextBattleInfo")
	}
	return f.UpdateNextBattleFn(ctx, exec, battleID, nextBattleID, winnerToSlot)
}

type fakePerformerRepo struct {
	t *testing.T

	CreateFn          func(ctx context.Context, performer *models.Performer) error
	GetByIDFn         func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Performer, error)
	ListByCategoryFn  func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Performer, error)
	ListByPoolFn      func(ctx context.Context, exec repositories.SQLExecutor, poolID int) ([]*models.Performer, error)
	UpdateScoreFn     func(ctx context.Context, exec repositories.SQLExecutor, id int, score float64) error
	SetQualifiedFn    func(ctx context.Context, exec repositories.SQLExecutor, ids []int) error
	AssignPoolFn      func(ctx context.Context, exec repositories.SQLExecutor, performerID, poolID int) error
	ApplyPoolResultFn func(ctx context.Context, exec repositories.SQLExecutor, id, winDelta, drawDelta, lossDelta, pointsDelta int) error
}

func (f *fakePerformerRepo) missing(name string) {
	f.t.Helper()
	f.t.Fatalf("unexpected call to performer repo %s", name)
}

func (f *fakePerformerRepo) Create(ctx context.Context, performer *models.Performer) error {
	if f.CreateFn == nil {
		f.missing("Create")
	}
	return f.CreateFn(ctx, performer)
}

func (f *fakePerformerRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Performer, error) {
	if f.GetByIDFn == nil {
		f.missing("GetByID")
	}
	return f.GetByIDFn(ctx, exec, id)
}

func (f *fakePerformerRepo) ListByCategory(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Performer, error) {
	if f.ListByCategoryFn == nil {
		f.missing("ListByCategory")
	}
	return f.ListByCategoryFn(ctx, exec, categoryID)
}

func (f *fakePerformerRepo) ListByPool(ctx context.Context, exec repositories.SQLExecutor, poolID int) ([]*models.Performer, error) {
	if f.ListByPoolFn == nil {
		f.missing("ListByPool")
	}
	return f.ListByPoolFn(ctx, exec, poolID)
}

func (f *fakePerformerRepo) UpdatePreselectionScore(ctx context.Context, exec repositories.SQLExecutor, id int, score float64) error {
	if f.UpdateScoreFn == nil {
		f.missing("UpdatePreselectionScore")
	}
	return f.UpdateScoreFn(ctx, exec, id, score)
}

func (f *fakePerformerRepo) SetQualified(ctx context.Context, exec repositories.SQLExecutor, ids []int) error {
	if f.SetQualifiedFn == nil {
		f.missing("SetQualified")
	}
	return f.SetQualifiedFn(ctx, exec, ids)
}

func (f *fakePerformerRepo) AssignPool(ctx context.Context, exec repositories.SQLExecutor, performerID, poolID int) error {
	if f.AssignPoolFn == nil {
		f.missing("AssignPool")
	}
	return f.AssignPoolFn(ctx, exec, performerID, poolID)
}

func (f *fakePerformerRepo) ApplyPoolResult(ctx context.Context, exec repositories.SQLExecutor, id, winDelta, drawDelta, lossDelta, pointsDelta int) error {
	if f.ApplyPoolResultFn == nil {
		f.missing("ApplyPoolResult")
	}
	return f.ApplyPoolResultFn(ctx, exec, id, winDelta, drawDelta, lossDelta, pointsDelta)
}

type fakePoolRepo struct {
	t *testing.T

	CreateFn         func(ctx context.Context, exec repositories.SQLExecutor, pool *models.Pool) error
	GetByIDFn        func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Pool, error)
	ListByCategoryFn func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Pool, error)
	UpdateStatusFn   func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.PoolStatus) error
	SetWinnerFn      func(ctx context.Context, exec repositories.SQLExecutor, poolID, winnerPerformerID int) error
}

func (f *fakePoolRepo) missing(name string) {
	f.t.Helper()
	f.t.Fatalf("unexpected call to pool repo %s", name)
}

func (f *fakePoolRepo) Create(ctx context.Context, exec repositories.SQLExecutor, pool *models.Pool) error {
	if f.CreateFn == nil {
		f.missing("Create")
	}
	return f.CreateFn(ctx, exec, pool)
}

func (f *fakePoolRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Pool, error) {
	if f.GetByIDFn == nil {
		f.missing("GetByID")
	}
	return f.GetByIDFn(ctx, exec, id)
}

func (f *fakePoolRepo) ListByCategory(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Pool, error) {
	if f.ListByCategoryFn == nil {
		f.missing("ListByCategory")
	}
	return f.ListByCategoryFn(ctx, exec, categoryID)
}

func (f *fakePoolRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.PoolStatus) error {
	if f.UpdateStatusFn == nil {
		f.missing("UpdateStatus")
	}
	return f.UpdateStatusFn(ctx, exec, id, status)
}

func (f *fakePoolRepo) SetWinner(ctx context.Context, exec repositories.SQLExecutor, poolID, winnerPerformerID int) error {
	if f.SetWinnerFn == nil {
		f.missing("SetWinner")
	}
	return f.SetWinnerFn(ctx, exec, poolID, winnerPerformerID)
}

type fakeCategoryRepo struct {
	t *testing.T

	CreateFn           func(ctx context.Context, category *models.Category) error
	GetByIDFn          func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Category, error)
	ListByTournamentFn func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Category, error)
	SetWinnerFn        func(ctx context.Context, exec repositories.SQLExecutor, categoryID, performerID int) error
}

func (f *fakeCategoryRepo) missing(name string) {
	f.t.Helper()
	f.t.Fatalf("unexpected call to category repo %s", name)
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	if f.CreateFn == nil {
		f.missing("Create")
	}
	return f.CreateFn(ctx, category)
}

func (f *fakeCategoryRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Category, error) {
	if f.GetByIDFn == nil {
		f.missing("GetByID")
	}
	return f.GetByIDFn(ctx, exec, id)
}

func (f *fakeCategoryRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Category, error) {
	if f.ListByTournamentFn == nil {
		f.missing("ListByTournament")
	}
	return f.ListByTournamentFn(ctx, exec, tournamentID)
}

func (f *fakeCategoryRepo) SetWinner(ctx context.Context, exec repositories.SQLExecutor, categoryID, performerID int) error {
	if f.SetWinnerFn == nil {
		f.missing("SetWinner")
	}
	return f.SetWinnerFn(ctx, exec, categoryID, performerID)
}

type fakeTournamentRepo struct {
	t *testing.T

	CreateFn            func(ctx context.Context, tournament *models.Tournament) error
	GetByIDFn           func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error)
	ListFn              func(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UpdateFn            func(ctx context.Context, tournament *models.Tournament) error
	UpdatePhaseStatusFn func(ctx context.Context, exec repositories.SQLExecutor, id int, fromPhase models.TournamentPhase, fromStatus models.TournamentStatus, toPhase models.TournamentPhase, toStatus models.TournamentStatus) error
	FindActiveFn        func(ctx context.Context, exec repositories.SQLExecutor) (*models.Tournament, error)
	UpdatePosterKeyFn   func(ctx context.Context, tournamentID int, posterKey *string) error
	DeleteFn            func(ctx context.Context, id int) error
}

func (f *fakeTournamentRepo) missing(name string) {
	f.t.Helper()
	f.t.Fatalf("unexpected call to tournament repo %s", name)
}

func (f *fakeTournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	if f.CreateFn == nil {
		f.missing("Create")
	}
	return f.CreateFn(ctx, tournament)
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	if f.GetByIDFn == nil {
		f.missing("GetByID")
	}
	return f.GetByIDFn(ctx, exec, id)
}

func (f *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if f.ListFn == nil {
		f.missing("List")
	}
	return f.ListFn(ctx, filter)
}

func (f *fakeTournamentRepo) Update(ctx context.Context, tournament *models.Tournament) error {
	if f.UpdateFn == nil {
		f.missing("Update")
	}
	return f.UpdateFn(ctx, tournament)
}

func (f *fakeTournamentRepo) UpdatePhaseStatus(ctx context.Context, exec repositories.SQLExecutor, id int, fromPhase models.TournamentPhase, fromStatus models.TournamentStatus, toPhase models.TournamentPhase, toStatus models.TournamentStatus) error {
	if f.UpdatePhaseStatusFn == nil {
		f.missing("UpdatePhaseStatus")
	}
	return f.UpdatePhaseStatusFn(ctx, exec, id, fromPhase, fromStatus, toPhase, toStatus)
}

func (f *fakeTournamentRepo) FindActive(ctx context.Context, exec repositories.SQLExecutor) (*models.Tournament, error) {
	if f.FindActiveFn == nil {
		f.missing("FindActive")
	}
	return f.FindActiveFn(ctx, exec)
}

func (f *fakeTournamentRepo) UpdatePosterKey(ctx context.Context, tournamentID int, posterKey *string) error {
	if f.UpdatePosterKeyFn == nil {
		f.missing("UpdatePosterKey")
	}
	return f.UpdatePosterKeyFn(ctx, tournamentID, posterKey)
}

func (f *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	if f.DeleteFn == nil {
		f.missing("Delete")
	}
	return f.DeleteFn(ctx, id)
}
