package service

import "errors"

var (
	ErrItemNotFound      = errors.New("nft not found")
	ErrNotOwner          = errors.New("caller does not own this nft")
	ErrAlreadyListed     = errors.New("nft is already listed for sale, auction or giveaway")
	ErrInvalidDuration   = errors.New("duration outside the allowed range")
	ErrInvalidStartPrice = errors.New("start price must be positive")
	ErrAuctionNotActive  = errors.New("nft is not in an active auction")
	ErrAuctionExpired    = errors.New("auction has ended")
	ErrSelfBid           = errors.New("owner cannot bid on their own auction")
	ErrBidTooLow         = errors.New("bid below the minimum increase over current price")
	ErrHasBids           = errors.New("auction already has bids")
	ErrConflictRetry     = errors.New("item was modified concurrently, retries exhausted")

	ErrGiveawayNotActive  = errors.New("nft is not in an active giveaway")
	ErrGiveawayExpired    = errors.New("giveaway has ended")
	ErrSelfParticipation  = errors.New("owner cannot enter their own giveaway")
	ErrAlreadyParticipant = errors.New("user already entered this giveaway")
	ErrHasParticipants    = errors.New("giveaway already has participants")
)
