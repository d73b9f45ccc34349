package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
	"github.com/RayZar23/ton-nft-market1/internal/service"
	"github.com/go-chi/chi/v5"
)

type GiveawayHandler struct {
	giveaways service.GiveawayService
	log       logger.Logger
}

func NewGiveawayHandler(giveaways service.GiveawayService, log logger.Logger) *GiveawayHandler {
	return &GiveawayHandler{giveaways: giveaways, log: log}
}

type createGiveawayRequest struct {
	NFTID      string `json:"nftId"`
	DurationMS int64  `json:"duration"`
}

func (h *GiveawayHandler) HandleCreateGiveaway(w http.ResponseWriter, r *http.Request) {
	var req createGiveawayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NFTID == "" {
		writeError(w, http.StatusBadRequest, "nftId is required")
		return
	}

	nft, err := h.giveaways.CreateGiveaway(r.Context(), service.CreateGiveawayParams{
		NFTID:    req.NFTID,
		CallerID: callerID(r),
		Duration: time.Duration(req.DurationMS) * time.Millisecond,
	})
	if err != nil {
		h.log.Warnf("CreateGiveaway for NFT %s rejected: %v", req.NFTID, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"nft": nft})
}

func (h *GiveawayHandler) HandleParticipate(w http.ResponseWriter, r *http.Request) {
	nftID := chi.URLParam(r, "id")

	nft, err := h.giveaways.Participate(r.Context(), nftID, callerID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"nft": nft})
}

func (h *GiveawayHandler) HandleCancelGiveaway(w http.ResponseWriter, r *http.Request) {
	nftID := chi.URLParam(r, "id")

	if err := h.giveaways.CancelGiveaway(r.Context(), nftID, callerID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "giveaway cancelled"})
}

func (h *GiveawayHandler) HandleListGiveaways(w http.ResponseWriter, r *http.Request) {
	result, err := h.giveaways.ListActiveGiveaways(r.Context(), listParamsFromQuery(r))
	if err != nil {
		h.log.Errorf("Failed to list active giveaways: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"giveaways": result.NFTs,
		"pagination": map[string]interface{}{
			"total": result.TotalCount,
			"page":  result.CurrentPage,
			"pages": result.TotalPages,
		},
	})
}
