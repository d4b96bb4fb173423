package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/aruzhans/dance-battle-system/models"
)

func newTournamentRepoMock(t *testing.T) (sqlmock.Sqlmock, TournamentRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, NewPostgresTournamentRepository(db)
}

func TestTournamentUpdatePhaseStatus(t *testing.T) {
	mock, repo := newTournamentRepoMock(t)
	mock.ExpectExec("UPDATE tournaments SET phase").
		WithArgs(models.PhasePreselection, models.StatusActive, 1, models.PhaseRegistration, models.StatusCreated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePhaseStatus(context.Background(), nil, 1,
		models.PhaseRegistration, models.StatusCreated,
		models.PhasePreselection, models.StatusActive)
	if err != nil {
		t.Fatalf("UpdatePhaseStatus returned error: %v", err)
	}
	expectMet(t, mock)
}

func TestTournamentUpdatePhaseStatusStale(t *testing.T) {
	mock, repo := newTournamentRepoMock(t)
	mock.ExpectExec("UPDATE tournaments SET phase").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePhaseStatus(context.Background(), nil, 1,
		models.PhasePools, models.StatusActive,
		models.PhaseFinals, models.StatusActive)
	if !errors.Is(err, ErrTournamentStateStale) {
		t.Fatalf("err = %v, want ErrTournamentStateStale", err)
	}
	expectMet(t, mock)
}

func TestTournamentUpdatePosterKey(t *testing.T) {
	mock, repo := newTournamentRepoMock(t)
	mock.ExpectExec("UPDATE tournaments SET poster_key").
		WillReturnResult(sqlmock.NewResult(0, 1))

	key := "tournaments/1/poster-abc.png"
	if err := repo.UpdatePosterKey(context.Background(), 1, &key); err != nil {
		t.Fatalf("UpdatePosterKey returned error: %v", err)
	}
	expectMet(t, mock)
}

func TestTournamentDeleteNotFound(t *testing.T) {
	mock, repo := newTournamentRepoMock(t)
	mock.ExpectExec("DELETE FROM tournaments").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 99)
	if !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("err = %v, want ErrTournamentNotFound", err)
	}
	expectMet(t, mock)
}
