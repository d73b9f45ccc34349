package repository

import (
	"context"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) (string, error)
	ListByNFT(ctx context.Context, nftID string) ([]entity.Transaction, error)
}
