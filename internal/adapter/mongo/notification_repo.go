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

const notificationCollectionName = "notifications"

type notificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.NotificationRepository {
	return &notificationRepository{
		collection: client.Database(cfg.Database).Collection(notificationCollectionName),
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification *entity.Notification) (string, error) {
	doc := notificationDocument{
		User:      notification.User,
		Type:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		Data:      notification.Data,
		Priority:  notification.Priority,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if doc.Priority == "" {
		doc.Priority = entity.PriorityMedium
	}

	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create notification: %w", err)
	}

	objectID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted ID to ObjectID")
	}
	return objectID.Hex(), nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, params repository.ListNotificationsParams) ([]entity.Notification, int64, error) {
	filter := bson.M{"user": params.UserID}
	if params.UnreadOnly {
		filter["read"] = false
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if params.PageSize > 0 {
		if params.Page <= 0 {
			params.Page = 1
		}
		findOptions.SetSkip(int64((params.Page - 1) * params.PageSize))
		findOptions.SetLimit(int64(params.PageSize))
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []notificationDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	notifications := make([]entity.Notification, len(docs))
	for i := range docs {
		notifications[i] = *docs[i].toEntity()
	}
	return notifications, totalCount, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID, userID string) error {
	objID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return fmt.Errorf("invalid notification ID format: %w", repository.ErrNotFound)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "user": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", notificationID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
