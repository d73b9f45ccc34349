package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/adapter/redis"
	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"github.com/RayZar23/ton-nft-market1/internal/service"
	"github.com/go-chi/chi/v5"
)

type AuctionHandler struct {
	auctions   service.AuctionService
	sweeper    *service.Sweeper
	bidLimiter *redis.RateLimiter
	log        logger.Logger
}

func NewAuctionHandler(
	auctions service.AuctionService,
	sweeper *service.Sweeper,
	bidLimiter *redis.RateLimiter,
	log logger.Logger,
) *AuctionHandler {
	return &AuctionHandler{
		auctions:   auctions,
		sweeper:    sweeper,
		bidLimiter: bidLimiter,
		log:        log,
	}
}

type createAuctionRequest struct {
	NFTID      string  `json:"nftId"`
	StartPrice float64 `json:"startPrice"`
	DurationMS int64   `json:"duration"`
}

func (h *AuctionHandler) HandleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NFTID == "" {
		writeError(w, http.StatusBadRequest, "nftId is required")
		return
	}

	nft, err := h.auctions.CreateAuction(r.Context(), service.CreateAuctionParams{
		NFTID:      req.NFTID,
		CallerID:   callerID(r),
		StartPrice: req.StartPrice,
		Duration:   time.Duration(req.DurationMS) * time.Millisecond,
	})
	if err != nil {
		h.log.Warnf("CreateAuction for NFT %s rejected: %v", req.NFTID, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"nft": nft})
}

type placeBidRequest struct {
	Amount float64 `json:"amount"`
}

func (h *AuctionHandler) HandlePlaceBid(w http.ResponseWriter, r *http.Request) {
	nftID := chi.URLParam(r, "id")
	bidder := callerID(r)

	if h.bidLimiter != nil {
		allowed, err := h.bidLimiter.Allow(r.Context(), bidder)
		if err != nil {
			h.log.Errorf("Bid rate limiter check failed for user %s: %v", bidder, err)
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many bids, please try again later")
			return
		}
	}

	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	nft, err := h.auctions.PlaceBid(r.Context(), nftID, bidder, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"nft": nft})
}

func (h *AuctionHandler) HandleCancelAuction(w http.ResponseWriter, r *http.Request) {
	nftID := chi.URLParam(r, "id")

	if err := h.auctions.CancelAuction(r.Context(), nftID, callerID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "auction cancelled"})
}

func (h *AuctionHandler) HandleListAuctions(w http.ResponseWriter, r *http.Request) {
	params := listParamsFromQuery(r)

	result, err := h.auctions.ListActiveAuctions(r.Context(), params)
	if err != nil {
		h.log.Errorf("Failed to list active auctions: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"auctions": result.NFTs,
		"pagination": map[string]interface{}{
			"total": result.TotalCount,
			"page":  result.CurrentPage,
			"pages": result.TotalPages,
		},
	})
}

func (h *AuctionHandler) HandleGetAuction(w http.ResponseWriter, r *http.Request) {
	nft, err := h.auctions.GetAuction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"nft": nft})
}

// HandleSweep is the administrative trigger for an immediate expiry pass.
func (h *AuctionHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	h.sweeper.Sweep(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "sweep completed"})
}

func listParamsFromQuery(r *http.Request) repository.ListAuctionsParams {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	minPrice, _ := strconv.ParseFloat(q.Get("minPrice"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("maxPrice"), 64)

	return repository.ListAuctionsParams{
		Category:  q.Get("category"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		Page:      page,
		PageSize:  limit,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
}
