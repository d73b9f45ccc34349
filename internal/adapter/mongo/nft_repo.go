package mongo

import (
	"context"
	"errors"
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

const nftCollectionName = "nfts"

type nftRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewNFTRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.NFTRepository {
	database := client.Database(cfg.Database)
	return &nftRepository{
		db:         database,
		collection: database.Collection(nftCollectionName),
	}
}

func (r *nftRepository) Create(ctx context.Context, nft *entity.NFT) (string, error) {
	nft.Version = 1
	doc, err := toNFTDocument(nft)
	if err != nil {
		return "", err
	}

	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrAlreadyExists
		}
		return "", fmt.Errorf("failed to create nft: %w", err)
	}

	objectID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted ID to ObjectID")
	}
	return objectID.Hex(), nil
}

func (r *nftRepository) GetByID(ctx context.Context, nftID string) (*entity.NFT, error) {
	objID, err := primitive.ObjectIDFromHex(nftID)
	if err != nil {
		return nil, fmt.Errorf("invalid nft ID format: %w", repository.ErrNotFound)
	}

	var doc nftDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get nft by ID %s: %w", nftID, err)
	}
	return doc.toEntity(), nil
}

// Update replaces every mutable field of the document, matched against the
// version the entity was loaded with. MatchedCount == 0 is disambiguated
// into not-found vs stale-version by re-reading the document.
func (r *nftRepository) Update(ctx context.Context, nft *entity.NFT) error {
	objID, err := primitive.ObjectIDFromHex(nft.ID)
	if err != nil {
		return fmt.Errorf("invalid nft ID format for update: %w", repository.ErrUpdateFailed)
	}

	filter := bson.M{
		"_id":     objID,
		"version": nft.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"owner":           nft.Owner,
			"previous_owners": nft.PreviousOwners,
			"status":          nft.Status,
			"price":           nft.Price,
			"auction":         nft.Auction,
			"giveaway":        nft.Giveaway,
			"updated_at":      time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update nft %s: %w", nft.ID, err)
	}

	if result.MatchedCount == 0 {
		var existing nftDocument
		errFind := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&existing)
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		if errFind == nil && existing.Version != nft.Version {
			return repository.ErrOptimisticLock
		}
		return repository.ErrUpdateFailed
	}
	nft.Version++
	return nil
}

func (r *nftRepository) ListActiveAuctions(ctx context.Context, params repository.ListAuctionsParams) (*repository.ListAuctionsResult, error) {
	filter := bson.M{
		"status":           entity.StatusAuction,
		"auction.end_time": bson.M{"$gt": params.Now},
	}
	if params.Category != "" {
		filter["category"] = params.Category
	}
	if params.MinPrice > 0 || params.MaxPrice > 0 {
		priceFilter := bson.M{}
		if params.MinPrice > 0 {
			priceFilter["$gte"] = params.MinPrice
		}
		if params.MaxPrice > 0 {
			priceFilter["$lte"] = params.MaxPrice
		}
		filter["auction.current_price"] = priceFilter
	}
	return r.list(ctx, filter, params, "auction.end_time")
}

func (r *nftRepository) ListActiveGiveaways(ctx context.Context, params repository.ListAuctionsParams) (*repository.ListAuctionsResult, error) {
	filter := bson.M{
		"status":            entity.StatusGiveaway,
		"giveaway.end_time": bson.M{"$gt": params.Now},
	}
	if params.Category != "" {
		filter["category"] = params.Category
	}
	return r.list(ctx, filter, params, "giveaway.end_time")
}

func (r *nftRepository) list(ctx context.Context, filter bson.M, params repository.ListAuctionsParams, defaultSort string) (*repository.ListAuctionsResult, error) {
	findOptions := options.Find()
	if params.PageSize > 0 {
		if params.Page <= 0 {
			params.Page = 1
		}
		findOptions.SetSkip(int64((params.Page - 1) * params.PageSize))
		findOptions.SetLimit(int64(params.PageSize))
	}

	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = defaultSort
	}
	sortOrder := 1
	if params.SortOrder == "desc" {
		sortOrder = -1
	}
	findOptions.SetSort(bson.D{{Key: sortBy, Value: sortOrder}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list nfts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []nftDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode listed nfts: %w", err)
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count nfts: %w", err)
	}

	totalPages := 0
	if params.PageSize > 0 {
		totalPages = (int(totalCount) + params.PageSize - 1) / params.PageSize
	} else if totalCount > 0 {
		totalPages = 1
	}

	nfts := make([]entity.NFT, len(docs))
	for i := range docs {
		nfts[i] = *docs[i].toEntity()
	}

	return &repository.ListAuctionsResult{
		NFTs:        nfts,
		TotalCount:  totalCount,
		CurrentPage: params.Page,
		PageSize:    params.PageSize,
		TotalPages:  totalPages,
	}, nil
}

func (r *nftRepository) FindExpiredAuctions(ctx context.Context, now time.Time) ([]entity.NFT, error) {
	return r.findExpired(ctx, bson.M{
		"status":           entity.StatusAuction,
		"auction.end_time": bson.M{"$lte": now},
	})
}

func (r *nftRepository) FindExpiredGiveaways(ctx context.Context, now time.Time) ([]entity.NFT, error) {
	return r.findExpired(ctx, bson.M{
		"status":            entity.StatusGiveaway,
		"giveaway.end_time": bson.M{"$lte": now},
	})
}

func (r *nftRepository) findExpired(ctx context.Context, filter bson.M) ([]entity.NFT, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired listings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []nftDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode expired listings: %w", err)
	}

	nfts := make([]entity.NFT, len(docs))
	for i := range docs {
		nfts[i] = *docs[i].toEntity()
	}
	return nfts, nil
}
