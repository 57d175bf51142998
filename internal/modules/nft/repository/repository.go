package repository

import (
	"context"
	"sort"
	"sync"

	"anoa.com/mindminer/internal/entity"
	"gorm.io/gorm"
)

type NFTRepository interface {
	Create(ctx context.Context, nft *entity.NFT) error
	FindByWallet(ctx context.Context, wallet string) ([]*entity.NFT, error)
}

type nftRepository struct {
	db *gorm.DB
}

func NewNFTRepository(db *gorm.DB) NFTRepository {
	return &nftRepository{db: db}
}

func (r *nftRepository) Create(ctx context.Context, nft *entity.NFT) error {
	return r.db.WithContext(ctx).Create(nft).Error
}

func (r *nftRepository) FindByWallet(ctx context.Context, wallet string) ([]*entity.NFT, error) {
	var nfts []*entity.NFT
	if err := r.db.WithContext(ctx).
		Where("user_wallet = ?", wallet).
		Order("mint_date DESC").
		Find(&nfts).Error; err != nil {
		return nil, err
	}
	return nfts, nil
}

type memoryNFTRepository struct {
	mu   sync.Mutex
	nfts []*entity.NFT
}

// NewMemoryNFTRepository returns a non-durable repository for tests and local runs.
func NewMemoryNFTRepository() NFTRepository {
	return &memoryNFTRepository{}
}

func (r *memoryNFTRepository) Create(ctx context.Context, nft *entity.NFT) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *nft
	r.nfts = append(r.nfts, &cp)
	return nil
}

func (r *memoryNFTRepository) FindByWallet(ctx context.Context, wallet string) ([]*entity.NFT, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.NFT
	for _, n := range r.nfts {
		if n.UserWallet == wallet {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MintDate.After(out[j].MintDate) })
	return out, nil
}
