package entity

import "time"

type TransactionType string

const (
	TransactionAuctionBid  TransactionType = "auction_bid"
	TransactionAuctionSale TransactionType = "auction_sale"
	TransactionGiveaway    TransactionType = "giveaway_transfer"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

type Amount struct {
	Value    float64 `bson:"value"`
	Currency string  `bson:"currency"`
}

type Transaction struct {
	ID        string            `bson:"_id,omitempty"`
	Type      TransactionType   `bson:"type"`
	User      string            `bson:"user"`
	NFTID     string            `bson:"nft"`
	Amount    Amount            `bson:"amount"`
	Status    TransactionStatus `bson:"status"`
	CreatedAt time.Time         `bson:"created_at"`
}
