package entity

import "time"

type NotificationType string

const (
	NotificationAuctionStart     NotificationType = "auction_start"
	NotificationAuctionBid       NotificationType = "auction_bid"
	NotificationAuctionWin       NotificationType = "auction_win"
	NotificationAuctionEnd       NotificationType = "auction_end"
	NotificationAuctionCancelled NotificationType = "auction_cancelled"
	NotificationGiveawayStart    NotificationType = "giveaway_start"
	NotificationGiveawayNew      NotificationType = "giveaway_new"
	NotificationGiveawayWin      NotificationType = "giveaway_win"
	NotificationGiveawayEnd      NotificationType = "giveaway_end"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

// NotificationData carries the fixed payload attached to a notification.
// Each notification type fills the fields relevant to it.
type NotificationData struct {
	NFTID    string  `bson:"nft,omitempty" json:"nft,omitempty"`
	Price    float64 `bson:"price,omitempty" json:"price,omitempty"`
	Currency string  `bson:"currency,omitempty" json:"currency,omitempty"`
}

type Notification struct {
	ID        string               `bson:"_id,omitempty" json:"id"`
	User      string               `bson:"user" json:"user"`
	Type      NotificationType     `bson:"type" json:"type"`
	Title     string               `bson:"title" json:"title"`
	Message   string               `bson:"message" json:"message"`
	Data      NotificationData     `bson:"data,omitempty" json:"data,omitempty"`
	Priority  NotificationPriority `bson:"priority" json:"priority"`
	Read      bool                 `bson:"read" json:"read"`
	CreatedAt time.Time            `bson:"created_at" json:"createdAt"`
}
