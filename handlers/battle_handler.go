package handlers

import (
	"net/http"

	"github.com/aruzhans/dance-battle-system/services"
)

type BattleHandler struct {
	battleService  services.BattleService
	resultsService services.ResultsService
}

func NewBattleHandler(bs services.BattleService, rs services.ResultsService) *BattleHandler {
	return &BattleHandler{
		battleService:  bs,
		resultsService: rs,
	}
}

// GetByID обрабатывает GET /battles/{battleID}.
func (h *BattleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	battleID, err := getIDFromURL(r, "battleID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	battle, err := h.battleService.GetBattle(r.Context(), battleID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"battle": battle}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Start обрабатывает POST /battles/{battleID}/start.
func (h *BattleHandler) Start(w http.ResponseWriter, r *http.Request) {
	battleID, err := getIDFromURL(r, "battleID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	battle, err := h.battleService.StartBattle(r.Context(), battleID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"battle": battle}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Reorder обрабатывает POST /battles/{battleID}/reorder.
func (h *BattleHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	battleID, err := getIDFromURL(r, "battleID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		NewPosition int `json:"new_position"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	battle, err := h.battleService.ReorderBattle(r.Context(), battleID, input.NewPosition)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"battle": battle}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EncodeResult обрабатывает POST /battles/{battleID}/result.
func (h *BattleHandler) EncodeResult(w http.ResponseWriter, r *http.Request) {
	battleID, err := getIDFromURL(r, "battleID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.BattleOutcomeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.resultsService.EncodeBattleResult(r.Context(), battleID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
