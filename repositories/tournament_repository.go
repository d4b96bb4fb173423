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
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentNameConflict  = errors.New("tournament name conflict for this organizer")
	ErrTournamentInvalidOrg    = errors.New("invalid organizer reference")
	ErrAnotherTournamentActive = errors.New("another tournament is already active")
	// ErrTournamentStateStale - CAS по (phase, status) не совпал: кто-то успел
	// продвинуть или отменить турнир раньше нас.
	ErrTournamentStateStale = errors.New("tournament phase/status changed concurrently")
)

type ListTournamentsFilter struct {
	OrganizerID *int
	Phase       *models.TournamentPhase
	Status      *models.TournamentStatus
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	// UpdatePhaseStatus меняет (phase, status) только если текущее состояние
	// совпадает с ожидаемым - защита от двух одновременных AdvancePhase.
	UpdatePhaseStatus(ctx context.Context, exec SQLExecutor, id int, fromPhase models.TournamentPhase, fromStatus models.TournamentStatus, toPhase models.TournamentPhase, toStatus models.TournamentStatus) error
	FindActive(ctx context.Context, exec SQLExecutor) (*models.Tournament, error)
	UpdatePosterKey(ctx context.Context, tournamentID int, posterKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, description, organizer_id, start_date, location, phase, status, created_at, poster_key`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, description, organizer_id, start_date, location, phase, status, poster_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.OrganizerID, t.StartDate, t.Location, t.Phase, t.Status, t.PosterKey,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) scanTournament(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.OrganizerID, &t.StartDate,
		&t.Location, &t.Phase, &t.Status, &t.CreatedAt, &t.PosterKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Phase != nil {
		query += fmt.Sprintf(" AND phase = $%d", argID)
		args = append(args, *filter.Phase)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.Description, &t.OrganizerID, &t.StartDate,
			&t.Location, &t.Phase, &t.Status, &t.CreatedAt, &t.PosterKey,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	// Phase/status меняются только через UpdatePhaseStatus, poster - через UpdatePosterKey.
	query := `
		UPDATE tournaments SET
			name = $1, description = $2, start_date = $3, location = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, t.Name, t.Description, t.StartDate, t.Location, t.ID)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdatePhaseStatus(ctx context.Context, exec SQLExecutor, id int, fromPhase models.TournamentPhase, fromStatus models.TournamentStatus, toPhase models.TournamentPhase, toStatus models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET phase = $1, status = $2 WHERE id = $3 AND phase = $4 AND status = $5`
	result, err := executor.ExecContext(ctx, query, toPhase, toStatus, id, fromPhase, fromStatus)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentStateStale)
}

func (r *postgresTournamentRepository) FindActive(ctx context.Context, exec SQLExecutor) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status = $1`
	return r.scanTournament(executor.QueryRowContext(ctx, query, models.StatusActive))
}

func (r *postgresTournamentRepository) UpdatePosterKey(ctx context.Context, tournamentID int, posterKey *string) error {
	query := `UPDATE tournaments SET poster_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, posterKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament poster key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			switch pqErr.Constraint {
			case "tournaments_organizer_id_name_key":
				return ErrTournamentNameConflict
			case "tournaments_single_active_idx":
				// Частичный уникальный индекс на status='active':
				// правило "один активный турнир" держит сама БД.
				return ErrAnotherTournamentActive
			}
		case "23503":
			if pqErr.Constraint == "tournaments_organizer_id_fkey" {
				return ErrTournamentInvalidOrg
			}
		}
	}
	return err
}
