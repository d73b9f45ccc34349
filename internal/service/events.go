package service

import "time"

// StateChangeEvent is broadcast to connected clients on every auction or
// giveaway lifecycle transition.
type StateChangeEvent struct {
	EventID    string    `json:"eventId"`
	Kind       string    `json:"kind"`
	NFTID      string    `json:"nftId"`
	Owner      string    `json:"owner,omitempty"`
	Bidder     string    `json:"bidder,omitempty"`
	Winner     string    `json:"winner,omitempty"`
	Price      float64   `json:"price,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	EventAuctionStarted   = "auction_started"
	EventBidPlaced        = "bid_placed"
	EventAuctionCancelled = "auction_cancelled"
	EventAuctionClosed    = "auction_closed"
	EventAuctionExpired   = "auction_expired"

	EventGiveawayStarted   = "giveaway_started"
	EventGiveawayEntered   = "giveaway_entered"
	EventGiveawayCancelled = "giveaway_cancelled"
	EventGiveawayClosed    = "giveaway_closed"
	EventGiveawayExpired   = "giveaway_expired"
)
