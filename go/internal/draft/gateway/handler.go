package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/repository"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// DraftService is the slice of the draft core the gateway exposes over HTTP.
type DraftService interface {
	CreateDraft(ctx context.Context, req repository.CreateDraftRequest) (*models.Draft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	StartDraft(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error)
	AdmitPick(ctx context.Context, req draft.PickRequest) (*models.DraftState, *draft.Rejection, error)
	PauseDraft(ctx context.Context, draftID uuid.UUID, reason string) (*models.DraftState, *draft.Rejection, error)
	ResumeDraft(ctx context.Context, draftID uuid.UUID) (*models.DraftState, *draft.Rejection, error)
	UndoLastPick(ctx context.Context, draftID uuid.UUID) (*models.DraftState, *draft.Rejection, error)
	GetState(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error)
	SeedDraftPool(ctx context.Context, draftID uuid.UUID, playerIDs []uuid.UUID) error
	ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error)
}

// Handler serves the draft HTTP API and the WebSocket endpoint.
type Handler struct {
	svc DraftService
	cm  *ConnectionManager
}

func NewHandler(svc DraftService, cm *ConnectionManager) *Handler {
	return &Handler{svc: svc, cm: cm}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/drafts", h.handleCreateDraft)
	mux.HandleFunc("GET /api/drafts/{id}", h.handleGetDraft)
	mux.HandleFunc("GET /api/drafts/{id}/state", h.handleGetState)
	mux.HandleFunc("GET /api/drafts/{id}/players", h.handleListPlayers)
	mux.HandleFunc("POST /api/drafts/{id}/pool", h.handleSeedPool)
	mux.HandleFunc("POST /api/drafts/{id}/start", h.handleStartDraft)
	mux.HandleFunc("POST /api/drafts/{id}/pick", h.handlePick)
	mux.HandleFunc("POST /api/drafts/{id}/pause", h.handlePause)
	mux.HandleFunc("POST /api/drafts/{id}/resume", h.handleResume)
	mux.HandleFunc("POST /api/drafts/{id}/undo", h.handleUndo)
	mux.HandleFunc("GET /api/drafts/{id}/ws", h.handleWebSocket)
}

// stateResponse is the wire shape of a draft state.
type stateResponse struct {
	DraftID          string     `json:"draft_id"`
	Status           string     `json:"status"`
	Round            int        `json:"round"`
	PickIndex        int        `json:"pick_index"`
	OverallPick      int        `json:"overall_pick"`
	OnClockTeamID    string     `json:"on_clock_team_id,omitempty"`
	DeadlineAt       *time.Time `json:"deadline_at,omitempty"`
	TimeRemainingSec *int       `json:"time_remaining_sec,omitempty"`
	PickedPlayerIDs  []string   `json:"picked_player_ids"`
}

func toStateResponse(state *models.DraftState) stateResponse {
	resp := stateResponse{
		DraftID:         state.DraftID.String(),
		Status:          string(state.Status),
		Round:           state.Round,
		PickIndex:       state.PickIndex,
		OverallPick:     state.OverallPick,
		DeadlineAt:      state.DeadlineAt,
		PickedPlayerIDs: make([]string, 0, len(state.PickedPlayerIDs)),
	}
	if state.OnClockTeamID != uuid.Nil {
		resp.OnClockTeamID = state.OnClockTeamID.String()
	}
	if state.DeadlineAt != nil {
		remaining := int(time.Until(*state.DeadlineAt).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		resp.TimeRemainingSec = &remaining
	}
	for _, id := range state.PickedPlayerIDs {
		resp.PickedPlayerIDs = append(resp.PickedPlayerIDs, id.String())
	}
	return resp
}

type createDraftRequest struct {
	ID             string     `json:"id,omitempty"`
	LeagueID       string     `json:"league_id"`
	Rounds         int        `json:"rounds"`
	TimePerPickSec int        `json:"time_per_pick_sec"`
	DraftOrder     []string   `json:"draft_order"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var body createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := uuid.New()
	if body.ID != "" {
		parsed, err := uuid.Parse(body.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid draft id")
			return
		}
		id = parsed
	}
	leagueID, err := uuid.Parse(body.LeagueID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}
	order := make([]uuid.UUID, 0, len(body.DraftOrder))
	for _, s := range body.DraftOrder {
		teamID, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid team id in draft order")
			return
		}
		order = append(order, teamID)
	}

	d, err := h.svc.CreateDraft(r.Context(), repository.CreateDraftRequest{
		ID:       id,
		LeagueID: leagueID,
		Config: models.DraftConfig{
			Rounds:         body.Rounds,
			TimePerPickSec: body.TimePerPickSec,
			DraftOrder:     order,
		},
		ScheduledAt: body.ScheduledAt,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.GetDraft(r.Context(), draftID)
	if err != nil {
		writeError(w, http.StatusNotFound, "draft not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.GetState(r.Context(), draftID)
	if err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to get draft state")
		writeError(w, http.StatusInternalServerError, "failed to get draft state")
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "draft has not started")
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(state))
}

func (h *Handler) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	players, err := h.svc.ListAvailablePlayers(r.Context(), draftID)
	if err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to list available players")
		writeError(w, http.StatusInternalServerError, "failed to list available players")
		return
	}
	out := make([]string, 0, len(players))
	for _, id := range players {
		out = append(out, id.String())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"players": out})
}

func (h *Handler) handleSeedPool(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	var body struct {
		PlayerIDs []string `json:"player_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ids := make([]uuid.UUID, 0, len(body.PlayerIDs))
	for _, s := range body.PlayerIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id")
			return
		}
		ids = append(ids, id)
	}
	if err := h.svc.SeedDraftPool(r.Context(), draftID, ids); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"seeded": len(ids)})
}

func (h *Handler) handleStartDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.StartDraft(r.Context(), draftID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(state))
}

type pickRequestBody struct {
	TeamID          string     `json:"team_id"`
	PlayerID        string     `json:"player_id"`
	ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
	By              string     `json:"by,omitempty"`
}

func (h *Handler) handlePick(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	var body pickRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	teamID, err := uuid.Parse(body.TeamID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	playerID, err := uuid.Parse(body.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	state, rej, err := h.svc.AdmitPick(r.Context(), draft.PickRequest{
		DraftID:         draftID,
		TeamID:          teamID,
		PlayerID:        playerID,
		ClientTimestamp: body.ClientTimestamp,
		By:              body.By,
	})
	h.writeAdmissionResult(w, draftID, state, rej, err)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional for pause.
	_ = json.NewDecoder(r.Body).Decode(&body)

	state, rej, err := h.svc.PauseDraft(r.Context(), draftID, body.Reason)
	h.writeAdmissionResult(w, draftID, state, rej, err)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	state, rej, err := h.svc.ResumeDraft(r.Context(), draftID)
	h.writeAdmissionResult(w, draftID, state, rej, err)
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	state, rej, err := h.svc.UndoLastPick(r.Context(), draftID)
	h.writeAdmissionResult(w, draftID, state, rej, err)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	if err := h.cm.UpgradeConnection(w, r, draftID); err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to upgrade WebSocket connection")
	}
}

// writeAdmissionResult maps the admission outcome onto HTTP: 200 with the new
// state, 409 for lock contention or a stale-state retry, 400 for the logical
// rejections, 500 for collaborator failures.
func (h *Handler) writeAdmissionResult(w http.ResponseWriter, draftID uuid.UUID, state *models.DraftState, rej *draft.Rejection, err error) {
	if err != nil {
		if errors.Is(err, draft.ErrStaleState) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"reason":  "STALE_STATE",
				"message": "draft state changed, retry",
			})
			return
		}
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("admission failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rej != nil {
		status := http.StatusBadRequest
		if rej.Reason == draft.RejectAnotherPickInProgress {
			status = http.StatusConflict
		}
		writeJSON(w, status, rej)
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(state))
}

func (h *Handler) draftID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
