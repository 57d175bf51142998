package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/internal/modules/nft/repository"
	"anoa.com/mindminer/pkg/apperror"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/google/uuid"
)

// Achievement types minted by reward settlement.
const (
	AchievementFirstDiscovery = "first_discovery"
	AchievementPerfectExpert  = "perfect_expert"
)

var achievementDescriptions = map[string]string{
	AchievementFirstDiscovery: "Commemorates your very first successful knowledge hunt on MindMiner.",
	AchievementPerfectExpert:  "Awarded for finding the exact comment behind an expert-level clue.",
	"speed_demon":             "Awarded for completing multiple hunts with exceptional speed and accuracy.",
	"science_explorer":        "Recognizes mastery in discovering scientific knowledge and research.",
	"perfect_streak":          "Celebrates an impressive streak of consecutive successful hunts.",
	"knowledge_sage":          "The highest honor for accumulated wisdom and discovery achievements.",
}

var achievementRarity = map[string]string{
	AchievementFirstDiscovery: "common",
	AchievementPerfectExpert:  "epic",
	"speed_demon":             "rare",
	"science_explorer":        "rare",
	"perfect_streak":          "epic",
	"knowledge_sage":          "legendary",
}

// Metadata is the ARC-3 style document stored with each NFT.
type Metadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ExternalURL string         `json:"external_url"`
	Attributes  []Attribute    `json:"attributes"`
	Properties  map[string]any `json:"properties,omitempty"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type NFTService interface {
	// MintAchievement records an achievement NFT for wallet. details are merged into the
	// metadata properties.
	MintAchievement(ctx context.Context, wallet, achievementType string, huntID *uuid.UUID, details map[string]any) (*entity.NFT, error)
	ListByWallet(ctx context.Context, wallet string) ([]*entity.NFT, error)
}

type nftService struct {
	repo repository.NFTRepository
	now  func() time.Time
}

func NewNFTService(repo repository.NFTRepository) NFTService {
	return &nftService{repo: repo, now: time.Now}
}

func (s *nftService) MintAchievement(ctx context.Context, wallet, achievementType string, huntID *uuid.UUID, details map[string]any) (*entity.NFT, error) {
	if _, err := types.DecodeAddress(wallet); err != nil {
		return nil, fmt.Errorf("invalid Algorand wallet address: %w", apperror.ErrInvalidInput)
	}
	if achievementType == "" {
		return nil, fmt.Errorf("achievement type is required: %w", apperror.ErrInvalidInput)
	}

	now := s.now()
	meta := BuildMetadata(achievementType, huntID, details, now)
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode nft metadata: %w", err)
	}

	// Asset creation is simulated; ids follow the on-chain shapes.
	assetID := uint64(now.UnixMilli()) + uint64(rand.IntN(1000))
	nft := &entity.NFT{
		ID:              fmt.Sprintf("NFT_%d", assetID),
		UserWallet:      wallet,
		AchievementType: achievementType,
		HuntID:          huntID,
		AssetID:         assetID,
		Rarity:          RarityOf(achievementType),
		Metadata:        string(raw),
		TransactionID:   fmt.Sprintf("TXN_%d_%s", now.UnixMilli(), randomSuffix(10)),
		MintDate:        now,
	}

	if err := s.repo.Create(ctx, nft); err != nil {
		return nil, fmt.Errorf("failed to record nft: %w", err)
	}

	log.Printf("✅ [NFTService] Minted %s (%s) for %s", meta.Name, nft.ID, wallet)
	return nft, nil
}

func (s *nftService) ListByWallet(ctx context.Context, wallet string) ([]*entity.NFT, error) {
	return s.repo.FindByWallet(ctx, wallet)
}

func BuildMetadata(achievementType string, huntID *uuid.UUID, details map[string]any, now time.Time) Metadata {
	meta := Metadata{
		Name:        "MindMiner Achievement: " + formatAchievementName(achievementType),
		Description: describe(achievementType),
		ExternalURL: "https://mindminer.app",
		Attributes: []Attribute{
			{TraitType: "Achievement Type", Value: achievementType},
			{TraitType: "Rarity", Value: RarityOf(achievementType)},
			{TraitType: "Minted Date", Value: now.UTC().Format("2006-01-02")},
		},
		Properties: map[string]any{"category": "Achievement"},
	}
	if huntID != nil {
		meta.Attributes = append(meta.Attributes, Attribute{TraitType: "Hunt ID", Value: huntID.String()})
	}
	for k, v := range details {
		meta.Properties[k] = v
	}
	return meta
}

func RarityOf(achievementType string) string {
	if r, ok := achievementRarity[achievementType]; ok {
		return r
	}
	return "common"
}

func describe(achievementType string) string {
	if d, ok := achievementDescriptions[achievementType]; ok {
		return d
	}
	return "Special achievement earned through exceptional performance in MindMiner hunts."
}

// formatAchievementName turns "first_discovery" into "First Discovery".
func formatAchievementName(achievementType string) string {
	words := strings.Split(achievementType, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func randomSuffix(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
