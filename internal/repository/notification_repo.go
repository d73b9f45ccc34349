package repository

import (
	"context"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
)

type ListNotificationsParams struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) (string, error)
	ListByUser(ctx context.Context, params ListNotificationsParams) ([]entity.Notification, int64, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
}
