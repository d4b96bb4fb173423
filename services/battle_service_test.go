package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aruzhans/dance-battle-system/draw"
	"github.com/aruzhans/dance-battle-system/models"
	"github.com/aruzhans/dance-battle-system/repositories"
)

func TestGeneratePreselectionBattlesSkipsGuests(t *testing.T) {
	categoryRepo := &fakeCategoryRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Category, error) {
			return &models.Category{ID: id, TournamentID: 1}, nil
		},
	}
	performerRepo := &fakePerformerRepo{
		t: t,
		ListByCategoryFn: func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Performer, error) {
			return []*models.Performer{
				{ID: 10},
				{ID: 11, IsGuest: true},
				{ID: 12},
			}, nil
		},
	}
	var createdFor [][]int
	nextID := 100
	battleRepo := &fakeBattleRepo{
		t: t,
		CreateFn: func(ctx context.Context, exec repositories.SQLExecutor, battle *models.Battle, performerIDs []int) error {
			battle.ID = nextID
			nextID++
			createdFor = append(createdFor, performerIDs)
			if battle.Phase != models.BattlePhasePreselection || battle.OutcomeType != models.OutcomeScored {
				t.Errorf("battle = %s/%s, want preselection/scored", battle.Phase, battle.OutcomeType)
			}
			return nil
		},
	}
	svc := NewBattleService(nil, battleRepo, performerRepo, nil, categoryRepo, draw.NewHub(), testLogger())

	battles, err := svc.GeneratePreselectionBattles(context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("GeneratePreselectionBattles returned error: %v", err)
	}
	if len(battles) != 2 {
		t.Fatalf("generated %d battles, want 2 (guest skipped)", len(battles))
	}
	if len(createdFor) != 2 || createdFor[0][0] != 10 || createdFor[1][0] != 12 {
		t.Errorf("battles created for %v, want [[10] [12]]", createdFor)
	}
}

func TestGeneratePoolBattlesFullRoundRobin(t *testing.T) {
	categoryRepo := &fakeCategoryRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Category, error) {
			return &models.Category{ID: id, TournamentID: 1}, nil
		},
	}
	performerRepo := &fakePerformerRepo{
		t: t,
		ListByPoolFn: func(ctx context.Context, exec repositories.SQLExecutor, poolID int) ([]*models.Performer, error) {
			return []*models.Performer{
				{ID: 10}, {ID: 11}, {ID: 12}, {ID: 13, IsGuest: true},
			}, nil
		},
	}
	pairs := map[[2]int]bool{}
	nextID := 100
	battleRepo := &fakeBattleRepo{
		t: t,
		CreateFn: func(ctx context.Context, exec repositories.SQLExecutor, battle *models.Battle, performerIDs []int) error {
			battle.ID = nextID
			nextID++
			if len(performerIDs) != 2 {
				t.Fatalf("pool battle with %d participants", len(performerIDs))
			}
			pairs[[2]int{performerIDs[0], performerIDs[1]}] = true
			if battle.PoolID == nil || *battle.PoolID != 7 {
				t.Errorf("battle pool = %v, want 7", battle.PoolID)
			}
			return nil
		},
	}
	var poolStatus models.PoolStatus
	poolRepo := &fakePoolRepo{
		t: t,
		UpdateStatusFn: func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.PoolStatus) error {
			poolStatus = status
			return nil
		},
	}
	svc := NewBattleService(nil, battleRepo, performerRepo, poolRepo, categoryRepo, draw.NewHub(), testLogger())

	battles, err := svc.GeneratePoolBattles(context.Background(), nil, 2, 7)
	if err != nil {
		t.Fatalf("GeneratePoolBattles returned error: %v", err)
	}
	// Три обычных участника дают три пары, гость не участвует.
	if len(battles) != 3 {
		t.Fatalf("generated %d battles, want 3", len(battles))
	}
	for _, want := range [][2]int{{10, 11}, {10, 12}, {11, 12}} {
		if !pairs[want] {
			t.Errorf("pair %v missing", want)
		}
	}
	if poolStatus != models.PoolStatusInProgress {
		t.Errorf("pool status = %s, want in_progress", poolStatus)
	}
}

func TestGenerateFinalsBattlesLinksBracket(t *testing.T) {
	categoryRepo := &fakeCategoryRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Category, error) {
			return &models.Category{ID: id, TournamentID: 1}, nil
		},
	}
	winners := map[int]int{1: 10, 2: 11, 3: 12, 4: 13}
	poolRepo := &fakePoolRepo{
		t: t,
		ListByCategoryFn: func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Pool, error) {
			pools := make([]*models.Pool, 0, len(winners))
			for pos := 1; pos <= 4; pos++ {
				id := winners[pos]
				pools = append(pools, &models.Pool{ID: pos, Position: pos, WinnerPerformerID: &id})
			}
			return pools, nil
		},
	}
	points := map[int]int{10: 9, 11: 7, 12: 6, 13: 4}
	performerRepo := &fakePerformerRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Performer, error) {
			return &models.Performer{ID: id, PoolPoints: points[id]}, nil
		},
	}
	nextID := 100
	participants := map[int][]int{}
	links := map[int]int{}
	battleRepo := &fakeBattleRepo{
		t: t,
		CreateFn: func(ctx context.Context, exec repositories.SQLExecutor, battle *models.Battle, performerIDs []int) error {
			battle.ID = nextID
			nextID++
			if battle.OutcomeType != models.OutcomeWinLoss {
				t.Errorf("finals battle outcome = %s, want win_loss", battle.OutcomeType)
			}
			return nil
		},
		AddParticipantFn: func(ctx context.Context, exec repositories.SQLExecutor, battleID, performerID, slot int) error {
			participants[battleID] = append(participants[battleID], performerID)
			return nil
		},
		UpdateNextBattleFn: func(ctx context.Context, exec repositories.SQLExecutor, battleID int, nextBattleID, winnerToSlot *int) error {
			links[battleID] = *nextBattleID
			return nil
		},
	}
	svc := NewBattleService(nil, battleRepo, performerRepo, poolRepo, categoryRepo, draw.NewHub(), testLogger())

	battles, err := svc.GenerateFinalsBattles(context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("GenerateFinalsBattles returned error: %v", err)
	}
	// Четыре сеяных: два полуфинала и финал.
	if len(battles) != 3 {
		t.Fatalf("generated %d battles, want 3", len(battles))
	}
	finalID := battles[2].ID
	if len(participants[finalID]) != 0 {
		t.Errorf("final seeded with %v before semifinals", participants[finalID])
	}
	for _, semi := range battles[:2] {
		if links[semi.ID] != finalID {
			t.Errorf("semifinal %d links to %d, want final %d", semi.ID, links[semi.ID], finalID)
		}
		if semi.NextBattleID == nil || *semi.NextBattleID != finalID {
			t.Errorf("semifinal %d struct link = %v, want %d", semi.ID, semi.NextBattleID, finalID)
		}
		if len(participants[semi.ID]) != 2 {
			t.Errorf("semifinal %d has %v participants", semi.ID, participants[semi.ID])
		}
	}
}

func TestGenerateFinalsBattlesPoolWithoutWinner(t *testing.T) {
	categoryRepo := &fakeCategoryRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Category, error) {
			return &models.Category{ID: id, TournamentID: 1}, nil
		},
	}
	poolRepo := &fakePoolRepo{
		t: t,
		ListByCategoryFn: func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Pool, error) {
			return []*models.Pool{{ID: 1, Position: 1}}, nil
		},
	}
	svc := NewBattleService(nil, nil, nil, poolRepo, categoryRepo, draw.NewHub(), testLogger())

	_, err := svc.GenerateFinalsBattles(context.Background(), nil, 2)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSequenceBattlesInterleavesCategories(t *testing.T) {
	assigned := map[int]int{}
	battleRepo := &fakeBattleRepo{
		t: t,
		NextSequenceFn: func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
			return 5, nil
		},
		UpdateSequenceFn: func(ctx context.Context, exec repositories.SQLExecutor, id, sequenceOrder int) error {
			assigned[id] = sequenceOrder
			return nil
		},
	}
	svc := NewBattleService(nil, battleRepo, nil, nil, nil, draw.NewHub(), testLogger())

	perCategory := [][]*models.Battle{
		{{ID: 1}, {ID: 2}},
		{{ID: 10}, {ID: 20}, {ID: 30}},
	}
	if err := svc.SequenceBattles(context.Background(), nil, 1, perCategory); err != nil {
		t.Fatalf("SequenceBattles returned error: %v", err)
	}
	// Чередование номинаций, нумерация продолжается с 5.
	want := map[int]int{1: 5, 10: 6, 2: 7, 20: 8, 30: 9}
	for id, seq := range want {
		if assigned[id] != seq {
			t.Errorf("battle %d sequence = %d, want %d", id, assigned[id], seq)
		}
	}
}

func TestStartBattleNotPending(t *testing.T) {
	battleRepo := &fakeBattleRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error) {
			return &models.Battle{ID: id, Status: models.BattleStatusCompleted}, nil
		},
	}
	svc := NewBattleService(nil, battleRepo, nil, nil, nil, draw.NewHub(), testLogger())

	_, err := svc.StartBattle(context.Background(), 5)
	if !errors.Is(err, ErrBattleNotPending) {
		t.Fatalf("err = %v, want ErrBattleNotPending", err)
	}
}

func TestStartBattleRace(t *testing.T) {
	battleRepo := &fakeBattleRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error) {
			return &models.Battle{ID: id, Status: models.BattleStatusPending}, nil
		},
		UpdateStatusFn: func(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.BattleStatus) error {
			return repositories.ErrBattleStatusStale
		},
	}
	svc := NewBattleService(nil, battleRepo, nil, nil, nil, draw.NewHub(), testLogger())

	_, err := svc.StartBattle(context.Background(), 5)
	if !errors.Is(err, ErrBattleNotPending) {
		t.Fatalf("err = %v, want ErrBattleNotPending", err)
	}
}

func TestStartBattle(t *testing.T) {
	battleRepo := &fakeBattleRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error) {
			return &models.Battle{ID: id, TournamentID: 1, Status: models.BattleStatusPending}, nil
		},
		UpdateStatusFn: func(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.BattleStatus) error {
			if from != models.BattleStatusPending || to != models.BattleStatusActive {
				t.Errorf("status swap %s -> %s, want pending -> active", from, to)
			}
			return nil
		},
	}
	svc := NewBattleService(nil, battleRepo, nil, nil, nil, draw.NewHub(), testLogger())

	battle, err := svc.StartBattle(context.Background(), 5)
	if err != nil {
		t.Fatalf("StartBattle returned error: %v", err)
	}
	if battle.Status != models.BattleStatusActive {
		t.Errorf("battle status = %s, want active", battle.Status)
	}
}

func TestReorderBattlePositionOneLocked(t *testing.T) {
	svc := NewBattleService(nil, nil, nil, nil, nil, draw.NewHub(), testLogger())

	_, err := svc.ReorderBattle(context.Background(), 5, 1)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReorderBattleOnDeck(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	pending := []*models.Battle{
		{ID: 5, CategoryID: 2, Status: models.BattleStatusPending, SequenceOrder: 1},
		{ID: 6, CategoryID: 2, Status: models.BattleStatusPending, SequenceOrder: 2},
	}
	battleRepo := &fakeBattleRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error) {
			return pending[0], nil
		},
		ListPendingFn: func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error) {
			return pending, nil
		},
	}
	svc := NewBattleService(db, battleRepo, nil, nil, nil, draw.NewHub(), testLogger())

	_, err := svc.ReorderBattle(context.Background(), 5, 2)
	if !errors.Is(err, ErrBattleOnDeck) {
		t.Fatalf("err = %v, want ErrBattleOnDeck", err)
	}
	expectMet(t, mock)
}

func TestReorderBattleMovesWithinFixedSlots(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	pending := []*models.Battle{
		{ID: 5, CategoryID: 2, Status: models.BattleStatusPending, SequenceOrder: 3},
		{ID: 6, CategoryID: 2, Status: models.BattleStatusPending, SequenceOrder: 7},
		{ID: 7, CategoryID: 2, Status: models.BattleStatusPending, SequenceOrder: 11},
		{ID: 8, CategoryID: 2, Status: models.BattleStatusPending, SequenceOrder: 15},
	}
	assigned := map[int]int{}
	battleRepo := &fakeBattleRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error) {
			return pending[3], nil
		},
		ListPendingFn: func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error) {
			return pending, nil
		},
		UpdateSequenceFn: func(ctx context.Context, exec repositories.SQLExecutor, id, sequenceOrder int) error {
			assigned[id] = sequenceOrder
			return nil
		},
	}
	svc := NewBattleService(db, battleRepo, nil, nil, nil, draw.NewHub(), testLogger())

	// Последний баттл очереди поднимается на вторую позицию.
	moved, err := svc.ReorderBattle(context.Background(), 8, 2)
	if err != nil {
		t.Fatalf("ReorderBattle returned error: %v", err)
	}
	if moved.SequenceOrder != 7 {
		t.Errorf("moved battle sequence = %d, want slot 7", moved.SequenceOrder)
	}
	// Баттлы 6 и 7 сдвигаются вниз по фиксированным слотам, 5 не трогается.
	want := map[int]int{8: 7, 6: 11, 7: 15}
	for id, seq := range want {
		if assigned[id] != seq {
			t.Errorf("battle %d sequence = %d, want %d", id, assigned[id], seq)
		}
	}
	if _, touched := assigned[5]; touched {
		t.Error("on-deck battle was reassigned")
	}
	expectMet(t, mock)
}

func TestReorderBattlePositionBeyondQueue(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	pending := []*models.Battle{
		{ID: 5, CategoryID: 2, Status: models.BattleStatusPending, SequenceOrder: 1},
		{ID: 6, CategoryID: 2, Status: models.BattleStatusPending, SequenceOrder: 2},
	}
	battleRepo := &fakeBattleRepo{
		t: t,
		GetByIDFn: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Battle, error) {
			return pending[1], nil
		},
		ListPendingFn: func(ctx context.Context, exec repositories.SQLExecutor, categoryID int) ([]*models.Battle, error) {
			return pending, nil
		},
	}
	svc := NewBattleService(db, battleRepo, nil, nil, nil, draw.NewHub(), testLogger())

	_, err := svc.ReorderBattle(context.Background(), 6, 5)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	expectMet(t, mock)
}
