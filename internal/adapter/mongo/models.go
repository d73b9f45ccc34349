package mongo

import (
	"fmt"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// nftDocument is the MongoDB shape of entity.NFT. The _id is a real
// ObjectID here; the entity carries its hex form.
type nftDocument struct {
	ID             primitive.ObjectID       `bson:"_id,omitempty"`
	TokenID        string                   `bson:"token_id"`
	Name           string                   `bson:"name"`
	Description    string                   `bson:"description,omitempty"`
	Image          string                   `bson:"image,omitempty"`
	Creator        string                   `bson:"creator"`
	Owner          string                   `bson:"owner"`
	PreviousOwners []entity.OwnershipRecord `bson:"previous_owners,omitempty"`
	Status         entity.NFTStatus         `bson:"status"`
	Price          float64                  `bson:"price"`
	Currency       string                   `bson:"currency"`
	Category       string                   `bson:"category,omitempty"`
	Auction        *entity.Auction          `bson:"auction,omitempty"`
	Giveaway       *entity.Giveaway         `bson:"giveaway,omitempty"`
	CreatedAt      time.Time                `bson:"created_at"`
	UpdatedAt      time.Time                `bson:"updated_at"`
	Version        int                      `bson:"version"`
}

func toNFTDocument(n *entity.NFT) (*nftDocument, error) {
	if n == nil {
		return nil, nil
	}

	var docID primitive.ObjectID
	if n.ID != "" {
		var err error
		docID, err = primitive.ObjectIDFromHex(n.ID)
		if err != nil {
			return nil, fmt.Errorf("toNFTDocument: invalid ID format '%s': %w", n.ID, err)
		}
	}

	return &nftDocument{
		ID:             docID,
		TokenID:        n.TokenID,
		Name:           n.Name,
		Description:    n.Description,
		Image:          n.Image,
		Creator:        n.Creator,
		Owner:          n.Owner,
		PreviousOwners: n.PreviousOwners,
		Status:         n.Status,
		Price:          n.Price,
		Currency:       n.Currency,
		Category:       n.Category,
		Auction:        n.Auction,
		Giveaway:       n.Giveaway,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
		Version:        n.Version,
	}, nil
}

func (d *nftDocument) toEntity() *entity.NFT {
	if d == nil {
		return nil
	}
	return &entity.NFT{
		ID:             d.ID.Hex(),
		TokenID:        d.TokenID,
		Name:           d.Name,
		Description:    d.Description,
		Image:          d.Image,
		Creator:        d.Creator,
		Owner:          d.Owner,
		PreviousOwners: d.PreviousOwners,
		Status:         d.Status,
		Price:          d.Price,
		Currency:       d.Currency,
		Category:       d.Category,
		Auction:        d.Auction,
		Giveaway:       d.Giveaway,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		Version:        d.Version,
	}
}

type notificationDocument struct {
	ID        primitive.ObjectID          `bson:"_id,omitempty"`
	User      string                      `bson:"user"`
	Type      entity.NotificationType     `bson:"type"`
	Title     string                      `bson:"title"`
	Message   string                      `bson:"message"`
	Data      entity.NotificationData     `bson:"data,omitempty"`
	Priority  entity.NotificationPriority `bson:"priority"`
	Read      bool                        `bson:"read"`
	CreatedAt time.Time                   `bson:"created_at"`
}

func (d *notificationDocument) toEntity() *entity.Notification {
	if d == nil {
		return nil
	}
	return &entity.Notification{
		ID:        d.ID.Hex(),
		User:      d.User,
		Type:      d.Type,
		Title:     d.Title,
		Message:   d.Message,
		Data:      d.Data,
		Priority:  d.Priority,
		Read:      d.Read,
		CreatedAt: d.CreatedAt,
	}
}

type transactionDocument struct {
	ID        primitive.ObjectID       `bson:"_id,omitempty"`
	Type      entity.TransactionType   `bson:"type"`
	User      string                   `bson:"user"`
	NFTID     string                   `bson:"nft"`
	Amount    entity.Amount            `bson:"amount"`
	Status    entity.TransactionStatus `bson:"status"`
	CreatedAt time.Time                `bson:"created_at"`
}

func (d *transactionDocument) toEntity() *entity.Transaction {
	if d == nil {
		return nil
	}
	return &entity.Transaction{
		ID:        d.ID.Hex(),
		Type:      d.Type,
		User:      d.User,
		NFTID:     d.NFTID,
		Amount:    d.Amount,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}
