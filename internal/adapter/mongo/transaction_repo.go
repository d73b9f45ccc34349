package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/app/config"
	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const transactionCollectionName = "transactions"

type transactionRepository struct {
	collection *mongo.Collection
}

func NewTransactionRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.TransactionRepository {
	return &transactionRepository{
		collection: client.Database(cfg.Database).Collection(transactionCollectionName),
	}
}

func (r *transactionRepository) Create(ctx context.Context, tx *entity.Transaction) (string, error) {
	doc := transactionDocument{
		Type:      tx.Type,
		User:      tx.User,
		NFTID:     tx.NFTID,
		Amount:    tx.Amount,
		Status:    tx.Status,
		CreatedAt: time.Now().UTC(),
	}

	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	objectID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted ID to ObjectID")
	}
	return objectID.Hex(), nil
}

func (r *transactionRepository) ListByNFT(ctx context.Context, nftID string) ([]entity.Transaction, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"nft": nftID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for nft %s: %w", nftID, err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	txs := make([]entity.Transaction, len(docs))
	for i := range docs {
		txs[i] = *docs[i].toEntity()
	}
	return txs, nil
}
