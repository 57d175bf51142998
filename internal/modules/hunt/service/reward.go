package service

import (
	nftService "anoa.com/mindminer/internal/modules/nft/service"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyExpert       = "expert"
)

// Reward table in microAlgos.
const (
	RewardBeginner     uint64 = 5_000
	RewardIntermediate uint64 = 10_000
	RewardExpert       uint64 = 15_000
	RewardPerfectBonus uint64 = 3_000

	microAlgosPerAlgo = 1_000_000
)

// DifficultyFor grades a hunt by clue length: under 100 characters is beginner, under 200
// intermediate, anything longer expert.
func DifficultyFor(clue string) string {
	n := len([]rune(clue))
	switch {
	case n < 100:
		return DifficultyBeginner
	case n < 200:
		return DifficultyIntermediate
	default:
		return DifficultyExpert
	}
}

// Reward holds amounts in microAlgos.
type Reward struct {
	Base  uint64
	Bonus uint64
}

func (r Reward) Total() uint64 { return r.Base + r.Bonus }

func RewardFor(difficulty string, perfectMatch bool) Reward {
	var r Reward
	switch difficulty {
	case DifficultyExpert:
		r.Base = RewardExpert
	case DifficultyIntermediate:
		r.Base = RewardIntermediate
	default:
		r.Base = RewardBeginner
	}
	if perfectMatch {
		r.Bonus = RewardPerfectBonus
	}
	return r
}

func ToAlgo(micro uint64) float64 {
	return float64(micro) / microAlgosPerAlgo
}

// AchievementFor picks the NFT a win earns, or "" for none. A first win takes precedence.
func AchievementFor(isFirstWin, perfectMatch bool, difficulty string) string {
	if isFirstWin {
		return nftService.AchievementFirstDiscovery
	}
	if perfectMatch && difficulty == DifficultyExpert {
		return nftService.AchievementPerfectExpert
	}
	return ""
}
