package entity

import (
	"time"

	"github.com/google/uuid"
)

type NFT struct {
	ID              string     `gorm:"size:64;primaryKey" json:"id"`
	UserWallet      string     `gorm:"size:64;not null;index" json:"user_wallet"`
	AchievementType string     `gorm:"size:50;not null" json:"achievement_type"`
	HuntID          *uuid.UUID `gorm:"type:uuid;index" json:"hunt_id,omitempty"`
	AssetID         uint64     `json:"asset_id"`
	Rarity          string     `gorm:"size:20" json:"rarity"`
	Metadata        string     `gorm:"type:jsonb" json:"-"` // ARC-3 style document
	TransactionID   string     `gorm:"size:128" json:"transaction_id"`
	MintDate        time.Time  `json:"mint_date"`
}

func (NFT) TableName() string { return "nfts" }
