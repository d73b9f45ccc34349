package entity

import (
	"errors"
	"time"
)

type NFTStatus string

const (
	StatusCreated      NFTStatus = "created"
	StatusOnSale       NFTStatus = "on_sale"
	StatusAuction      NFTStatus = "auction"
	StatusGiveaway     NFTStatus = "giveaway"
	StatusSold         NFTStatus = "sold"
	StatusTransferring NFTStatus = "transferring"
	StatusBurned       NFTStatus = "burned"
)

type Bid struct {
	Bidder    string    `bson:"bidder"`
	Amount    float64   `bson:"amount"`
	Timestamp time.Time `bson:"timestamp"`
}

type Auction struct {
	StartPrice      float64   `bson:"start_price"`
	CurrentPrice    float64   `bson:"current_price"`
	MinBidIncrement float64   `bson:"min_bid_increment"`
	StartTime       time.Time `bson:"start_time"`
	EndTime         time.Time `bson:"end_time"`
	HighestBidder   string    `bson:"highest_bidder,omitempty"`
	Bids            []Bid     `bson:"bids"`
}

type Giveaway struct {
	StartTime    time.Time `bson:"start_time"`
	EndTime      time.Time `bson:"end_time"`
	Participants []string  `bson:"participants"`
	Winner       string    `bson:"winner,omitempty"`
}

type OwnershipRecord struct {
	User  string    `bson:"user"`
	Price float64   `bson:"price"`
	Date  time.Time `bson:"date"`
}

type NFT struct {
	ID             string            `bson:"_id,omitempty"`
	TokenID        string            `bson:"token_id"`
	Name           string            `bson:"name"`
	Description    string            `bson:"description,omitempty"`
	Image          string            `bson:"image,omitempty"`
	Creator        string            `bson:"creator"`
	Owner          string            `bson:"owner"`
	PreviousOwners []OwnershipRecord `bson:"previous_owners,omitempty"`
	Status         NFTStatus         `bson:"status"`
	Price          float64           `bson:"price"`
	Currency       string            `bson:"currency"`
	Category       string            `bson:"category,omitempty"`
	Auction        *Auction          `bson:"auction,omitempty"`
	Giveaway       *Giveaway         `bson:"giveaway,omitempty"`
	CreatedAt      time.Time         `bson:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at"`
	Version        int               `bson:"version"`
}

func NewNFT(tokenID, name, creator string) (*NFT, error) {
	if tokenID == "" {
		return nil, errors.New("token ID cannot be empty")
	}
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}
	if creator == "" {
		return nil, errors.New("creator cannot be empty")
	}
	now := time.Now().UTC()
	return &NFT{
		TokenID:   tokenID,
		Name:      name,
		Creator:   creator,
		Owner:     creator,
		Status:    StatusCreated,
		Currency:  "TON",
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}, nil
}

// IsListed reports whether the NFT is committed to any sale channel.
// An NFT can be in at most one of auction, giveaway or fixed-price sale.
func (n *NFT) IsListed() bool {
	switch n.Status {
	case StatusAuction, StatusGiveaway, StatusOnSale:
		return true
	default:
		return false
	}
}

// StartAuction moves the NFT into the auction state with a fresh bid book.
func (n *NFT) StartAuction(startPrice, minBidIncrement float64, startTime, endTime time.Time) {
	n.Status = StatusAuction
	n.Auction = &Auction{
		StartPrice:      startPrice,
		CurrentPrice:    startPrice,
		MinBidIncrement: minBidIncrement,
		StartTime:       startTime,
		EndTime:         endTime,
		Bids:            []Bid{},
	}
	n.UpdatedAt = startTime
}

// MinNextBid is the smallest amount the next bid must reach.
func (a *Auction) MinNextBid() float64 {
	return a.CurrentPrice + a.CurrentPrice*a.MinBidIncrement
}

// AddBid appends an accepted bid and advances the current price.
// Validation happens in the service layer; the entity only keeps the
// book consistent.
func (n *NFT) AddBid(bidder string, amount float64, at time.Time) {
	n.Auction.Bids = append(n.Auction.Bids, Bid{
		Bidder:    bidder,
		Amount:    amount,
		Timestamp: at,
	})
	n.Auction.CurrentPrice = amount
	n.Auction.HighestBidder = bidder
	n.UpdatedAt = at
}

// CancelAuction reverts an unbid auction back to the idle state.
func (n *NFT) CancelAuction(at time.Time) {
	n.Status = StatusCreated
	n.Auction = nil
	n.UpdatedAt = at
}

// SettleAuction transfers ownership to the highest bidder and records the
// sale. The caller must have verified that at least one bid exists.
func (n *NFT) SettleAuction(at time.Time) {
	previousOwner := n.Owner
	finalPrice := n.Auction.CurrentPrice

	n.PreviousOwners = append(n.PreviousOwners, OwnershipRecord{
		User:  previousOwner,
		Price: finalPrice,
		Date:  at,
	})
	n.Owner = n.Auction.HighestBidder
	n.Status = StatusSold
	n.Price = finalPrice
	n.UpdatedAt = at
}

// ExpireAuctionWithoutBids returns an expired, unbid auction to idle.
func (n *NFT) ExpireAuctionWithoutBids(at time.Time) {
	n.Status = StatusCreated
	n.Auction = nil
	n.UpdatedAt = at
}

// StartGiveaway moves the NFT into the giveaway state.
func (n *NFT) StartGiveaway(startTime, endTime time.Time) {
	n.Status = StatusGiveaway
	n.Giveaway = &Giveaway{
		StartTime:    startTime,
		EndTime:      endTime,
		Participants: []string{},
	}
	n.UpdatedAt = startTime
}

// HasParticipant reports whether the user already entered the giveaway.
func (g *Giveaway) HasParticipant(userID string) bool {
	for _, p := range g.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// SettleGiveaway transfers ownership to the drawn winner.
func (n *NFT) SettleGiveaway(winner string, at time.Time) {
	n.PreviousOwners = append(n.PreviousOwners, OwnershipRecord{
		User: n.Owner,
		Date: at,
	})
	n.Giveaway.Winner = winner
	n.Owner = winner
	n.Status = StatusSold
	n.UpdatedAt = at
}

// CancelGiveaway reverts a giveaway with no participants back to idle.
func (n *NFT) CancelGiveaway(at time.Time) {
	n.Status = StatusCreated
	n.Giveaway = nil
	n.UpdatedAt = at
}
