package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/Emerc92/futsapp-tournament-hub/repositories"
	"github.com/Emerc92/futsapp-tournament-hub/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.ScheduleMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Schedule(r.Context(), actor, chi.URLParam(r, "tournamentID"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.GetByID(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListMatchesFilter

	q := r.URL.Query()
	if phase := q.Get("phase"); phase != "" {
		p := models.MatchPhase(phase)
		if p != models.PhaseGroup && p != models.PhaseKnockout {
			badRequestResponse(w, r, errors.New("unknown phase filter"))
			return
		}
		filter.Phase = &p
	}
	if status := q.Get("status"); status != "" {
		s := models.MatchStatus(status)
		switch s {
		case models.MatchStatusScheduled, models.MatchStatusCompleted, models.MatchStatusCancelled:
			filter.Status = &s
		default:
			badRequestResponse(w, r, errors.New("unknown status filter"))
			return
		}
	}

	matches, err := h.matchService.ListByTournament(r.Context(), chi.URLParam(r, "tournamentID"), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.RecordResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.RecordResult(r.Context(), actor, chi.URLParam(r, "matchID"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) RecordWalkover(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		WinnerTeamID string `json:"winner_team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerTeamID == "" {
		badRequestResponse(w, r, errors.New("winner_team_id is required"))
		return
	}

	match, err := h.matchService.RecordWalkover(r.Context(), actor, chi.URLParam(r, "matchID"), input.WinnerTeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := h.matchService.Cancel(r.Context(), actor, chi.URLParam(r, "matchID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
