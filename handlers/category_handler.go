package handlers

import (
	"net/http"

	"github.com/aruzhans/dance-battle-system/middleware"
	"github.com/aruzhans/dance-battle-system/models"
	"github.com/aruzhans/dance-battle-system/services"
)

type CategoryHandler struct {
	tournamentService services.TournamentService
	battleService     services.BattleService
	poolService       services.PoolService
}

func NewCategoryHandler(ts services.TournamentService, bs services.BattleService, ps services.PoolService) *CategoryHandler {
	return &CategoryHandler{
		tournamentService: ts,
		battleService:     bs,
		poolService:       ps,
	}
}

// Create обрабатывает POST /tournaments/{tournamentID}/categories.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateCategoryInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	category, err := h.tournamentService.CreateCategory(r.Context(), tournamentID, currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"category": category}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterPerformer обрабатывает POST /categories/{categoryID}/performers.
func (h *CategoryHandler) RegisterPerformer(w http.ResponseWriter, r *http.Request) {
	categoryID, err := getIDFromURL(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RegisterPerformerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	performer, err := h.tournamentService.RegisterPerformer(r.Context(), categoryID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"performer": performer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListBattles обрабатывает GET /categories/{categoryID}/battles
// с опциональным фильтром ?phase=.
func (h *CategoryHandler) ListBattles(w http.ResponseWriter, r *http.Request) {
	categoryID, err := getIDFromURL(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var phase *models.BattlePhase
	if phaseStr := r.URL.Query().Get("phase"); phaseStr != "" {
		p := models.BattlePhase(phaseStr)
		phase = &p
	}

	battles, err := h.battleService.ListByCategory(r.Context(), categoryID, phase)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"battles": battles}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPools обрабатывает GET /categories/{categoryID}/pools.
func (h *CategoryHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	categoryID, err := getIDFromURL(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pools, err := h.poolService.ListByCategory(r.Context(), categoryID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pools": pools}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
