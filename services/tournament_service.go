package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aruzhans/dance-battle-system/models"
	"github.com/aruzhans/dance-battle-system/repositories"
	"github.com/aruzhans/dance-battle-system/storage"
)

type CreateTournamentInput struct {
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	Location    *string   `json:"location,omitempty"`
}

type UpdateTournamentInput struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	Location    *string    `json:"location,omitempty"`
}

type CreateCategoryInput struct {
	Name            string `json:"name"`
	IsDuo           bool   `json:"is_duo"`
	GroupsIdeal     int    `json:"groups_ideal"`
	PerformersIdeal int    `json:"performers_ideal"`
}

type RegisterPerformerInput struct {
	DancerID     int  `json:"dancer_id"`
	DuoPartnerID *int `json:"duo_partner_id,omitempty"`
	IsGuest      bool `json:"is_guest"`
}

// TournamentService управляет жизненным циклом турнира до и во время
// проведения: карточка турнира, номинации, регистрация участников,
// афиша.
type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// GetFullView собирает турнир со всеми номинациями, участниками и
	// пулами. Связанные сущности грузятся параллельно.
	GetFullView(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, id, currentUserID int, input UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, id, currentUserID int) error
	UploadPoster(ctx context.Context, id, currentUserID int, contentType string, file io.Reader) (*models.Tournament, error)

	CreateCategory(ctx context.Context, tournamentID, currentUserID int, input CreateCategoryInput) (*models.Category, error)
	RegisterPerformer(ctx context.Context, categoryID int, input RegisterPerformerInput) (*models.Performer, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	categoryRepo   repositories.CategoryRepository
	performerRepo  repositories.PerformerRepository
	poolRepo       repositories.PoolRepository
	userRepo       repositories.UserRepository
	uploader       storage.PosterStorage
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	categoryRepo repositories.CategoryRepository,
	performerRepo repositories.PerformerRepository,
	poolRepo repositories.PoolRepository,
	userRepo repositories.UserRepository,
	uploader storage.PosterStorage,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		categoryRepo:   categoryRepo,
		performerRepo:  performerRepo,
		poolRepo:       poolRepo,
		userRepo:       userRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	violations := &violationList{}
	if input.Name == "" {
		violations.addf("tournament name is required")
	}
	if input.StartDate.IsZero() {
		violations.addf("start date is required")
	}
	if err := violations.err(); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Description: input.Description,
		OrganizerID: organizerID,
		StartDate:   input.StartDate,
		Location:    input.Location,
		Phase:       models.PhaseRegistration,
		Status:      models.StatusCreated,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, newValidationError("tournament name is already taken by this organizer")
		case errors.Is(err, repositories.ErrTournamentInvalidOrg):
			return nil, newValidationError("organizer does not exist")
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID), slog.Int("organizer_id", organizerID))
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	s.populatePosterURL(tournament)
	return tournament, nil
}

func (s *tournamentService) GetFullView(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		organizer, err := s.userRepo.GetByID(gCtx, tournament.OrganizerID)
		if err != nil {
			return fmt.Errorf("failed to load organizer %d: %w", tournament.OrganizerID, err)
		}
		tournament.Organizer = organizer
		return nil
	})

	var categories []*models.Category
	g.Go(func() error {
		var err error
		categories, err = s.categoryRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Участники и пулы каждой номинации тоже грузятся параллельно:
	// просмотр идёт мимо транзакций, консистентность на уровне строк
	// здесь достаточна.
	cg, cgCtx := errgroup.WithContext(ctx)
	for _, category := range categories {
		c := category
		cg.Go(func() error {
			performers, err := s.performerRepo.ListByCategory(cgCtx, nil, c.ID)
			if err != nil {
				return fmt.Errorf("failed to load performers for category %d: %w", c.ID, err)
			}
			c.Performers = make([]models.Performer, len(performers))
			for i, p := range performers {
				c.Performers[i] = *p
			}
			return nil
		})
		cg.Go(func() error {
			pools, err := s.poolRepo.ListByCategory(cgCtx, nil, c.ID)
			if err != nil {
				return fmt.Errorf("failed to load pools for category %d: %w", c.ID, err)
			}
			c.Pools = make([]models.Pool, len(pools))
			for i, p := range pools {
				c.Pools[i] = *p
			}
			return nil
		})
	}
	if err := cg.Wait(); err != nil {
		return nil, err
	}

	tournament.Categories = make([]models.Category, len(categories))
	for i, c := range categories {
		tournament.Categories[i] = *c
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populatePosterURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, id, currentUserID int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if tournament.Phase != models.PhaseRegistration {
		return nil, fmt.Errorf("%w: tournament can only be edited during registration", ErrStateConflict)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, newValidationError("tournament name cannot be empty")
		}
		tournament.Name = *input.Name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.Location != nil {
		tournament.Location = input.Location
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, newValidationError("tournament name is already taken by this organizer")
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	s.populatePosterURL(tournament)
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id, currentUserID int) error {
	tournament, err := s.getOwned(ctx, id, currentUserID)
	if err != nil {
		return err
	}
	if tournament.Phase != models.PhaseRegistration {
		return fmt.Errorf("%w: tournament can only be deleted during registration", ErrStateConflict)
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	if tournament.PosterKey != nil {
		if err := s.uploader.Delete(ctx, *tournament.PosterKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete tournament poster",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// UploadPoster загружает афишу турнира в объектное хранилище и
// привязывает ключ к турниру. Старая афиша удаляется по best effort.
func (s *tournamentService) UploadPoster(ctx context.Context, id, currentUserID int, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}

	ext, ok := posterExtensions[contentType]
	if !ok {
		return nil, newValidationError(fmt.Sprintf("unsupported poster content type %q", contentType))
	}

	key := fmt.Sprintf("tournaments/%d/poster-%s.%s", id, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload poster for tournament %d: %w", id, err)
	}

	oldKey := tournament.PosterKey
	if err := s.tournamentRepo.UpdatePosterKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to save poster key for tournament %d: %w", id, err)
	}
	tournament.PosterKey = &result.Key

	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous poster",
				slog.Int("tournament_id", id), slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	s.populatePosterURL(tournament)
	return tournament, nil
}

func (s *tournamentService) CreateCategory(ctx context.Context, tournamentID, currentUserID int, input CreateCategoryInput) (*models.Category, error) {
	tournament, err := s.getOwned(ctx, tournamentID, currentUserID)
	if err != nil {
		return nil, err
	}
	if tournament.Phase != models.PhaseRegistration {
		return nil, fmt.Errorf("%w: categories can only be added during registration", ErrStateConflict)
	}

	violations := &violationList{}
	if input.Name == "" {
		violations.addf("category name is required")
	}
	if input.GroupsIdeal < 2 {
		violations.addf("groups ideal must be at least 2")
	}
	if input.PerformersIdeal < 2 {
		violations.addf("performers ideal must be at least 2")
	}
	if err := violations.err(); err != nil {
		return nil, err
	}

	category := &models.Category{
		TournamentID:    tournamentID,
		Name:            input.Name,
		IsDuo:           input.IsDuo,
		GroupsIdeal:     input.GroupsIdeal,
		PerformersIdeal: input.PerformersIdeal,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repositories.ErrCategoryNameConflict) {
			return nil, newValidationError("category name is already taken in this tournament")
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// RegisterPerformer записывает танцора (или дуэт) в номинацию.
// Регистрация открыта только в одноимённой стадии. Гость получает
// фиксированную отборочную оценку сразу при записи.
func (s *tournamentService) RegisterPerformer(ctx context.Context, categoryID int, input RegisterPerformerInput) (*models.Performer, error) {
	category, err := s.categoryRepo.GetByID(ctx, nil, categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, category.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Phase != models.PhaseRegistration {
		return nil, fmt.Errorf("%w: registration is closed", ErrStateConflict)
	}

	violations := &violationList{}
	if category.IsDuo && input.DuoPartnerID == nil {
		violations.addf("duo category requires a partner")
	}
	if !category.IsDuo && input.DuoPartnerID != nil {
		violations.addf("solo category does not allow a partner")
	}
	if input.DuoPartnerID != nil && *input.DuoPartnerID == input.DancerID {
		violations.addf("dancer cannot partner with themselves")
	}
	if err := violations.err(); err != nil {
		return nil, err
	}

	performer := &models.Performer{
		TournamentID: category.TournamentID,
		CategoryID:   categoryID,
		DancerID:     input.DancerID,
		DuoPartnerID: input.DuoPartnerID,
		IsGuest:      input.IsGuest,
	}
	if input.IsGuest {
		score := models.GuestPreselectionScore
		performer.PreselectionScore = &score
	}

	if err := s.performerRepo.Create(ctx, performer); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPerformerDancerConflict):
			return nil, fmt.Errorf("%w: dancer is already registered in this tournament", ErrStateConflict)
		case errors.Is(err, repositories.ErrPerformerInvalidDancer):
			return nil, newValidationError("dancer does not exist")
		case errors.Is(err, repositories.ErrPerformerInvalidCategory):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to register performer: %w", err)
	}

	s.logger.InfoContext(ctx, "performer registered",
		slog.Int("category_id", categoryID),
		slog.Int("performer_id", performer.ID),
		slog.Bool("guest", performer.IsGuest))
	return performer, nil
}

func (s *tournamentService) getOwned(ctx context.Context, id, currentUserID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.OrganizerID != currentUserID {
		return nil, ErrForbidden
	}
	return tournament, nil
}

func (s *tournamentService) populatePosterURL(t *models.Tournament) {
	if t.PosterKey == nil || *t.PosterKey == "" {
		return
	}
	url := s.uploader.GetPublicURL(*t.PosterKey)
	if url != "" {
		t.PosterURL = &url
	}
}

var posterExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}
