package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"github.com/RayZar23/ton-nft-market1/internal/service"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type successResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Status: "error", Message: message})
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(successResponse{Status: "success", Data: data})
}

// writeServiceError maps engine errors onto HTTP status codes: unknown
// item 404, ownership 403, state/concurrency conflicts 409, validation 400.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyListed),
		errors.Is(err, service.ErrHasBids),
		errors.Is(err, service.ErrHasParticipants),
		errors.Is(err, service.ErrAlreadyParticipant),
		errors.Is(err, service.ErrConflictRetry):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidStartPrice),
		errors.Is(err, service.ErrAuctionNotActive),
		errors.Is(err, service.ErrAuctionExpired),
		errors.Is(err, service.ErrSelfBid),
		errors.Is(err, service.ErrBidTooLow),
		errors.Is(err, service.ErrGiveawayNotActive),
		errors.Is(err, service.ErrGiveawayExpired),
		errors.Is(err, service.ErrSelfParticipation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
