package repository

import (
	"context"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
)

type ListAuctionsParams struct {
	Now       time.Time
	Category  string
	MinPrice  float64
	MaxPrice  float64
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

type ListAuctionsResult struct {
	NFTs        []entity.NFT
	TotalCount  int64
	CurrentPage int
	PageSize    int
	TotalPages  int
}

type NFTRepository interface {
	Create(ctx context.Context, nft *entity.NFT) (string, error)
	GetByID(ctx context.Context, nftID string) (*entity.NFT, error)
	// Update persists the whole document guarded by the version the entity
	// was loaded with. A stale version surfaces as ErrOptimisticLock.
	Update(ctx context.Context, nft *entity.NFT) error
	ListActiveAuctions(ctx context.Context, params ListAuctionsParams) (*ListAuctionsResult, error)
	ListActiveGiveaways(ctx context.Context, params ListAuctionsParams) (*ListAuctionsResult, error)
	FindExpiredAuctions(ctx context.Context, now time.Time) ([]entity.NFT, error)
	FindExpiredGiveaways(ctx context.Context, now time.Time) ([]entity.NFT, error)
}
