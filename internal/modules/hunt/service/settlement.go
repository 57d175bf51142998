package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"anoa.com/mindminer/internal/agent/providers"
	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/internal/metrics"
	"anoa.com/mindminer/internal/modules/hunt/dto"
	"anoa.com/mindminer/internal/modules/hunt/repository"
)

const mintTimeout = 30 * time.Second

// settle pays the reward, folds the win into the player's stats, records the audit fields and
// schedules the achievement mint. Callers must own the active -> won transition. Nothing here
// can undo the win: each failure is logged and the remaining steps still run.
func (s *huntService) settle(ctx context.Context, session *entity.Session, completion int64, verdict dto.VerificationResult) (*dto.RewardDetails, *dto.GameDetails) {
	ctx = context.WithoutCancel(ctx)

	difficulty := DifficultyFor(session.ClueText)
	reward := RewardFor(difficulty, verdict.PerfectMatch)
	algo := ToAlgo(reward.Total())

	memo := fmt.Sprintf("MindMiner reward for game %s", session.GameID)
	txnID, err := s.ledger.Pay(ctx, session.UserWallet, reward.Total(), memo, session.GameID.String())
	pending := false
	if err != nil {
		txnID = providers.SyntheticTransactionID()
		pending = true
		metrics.Fallbacks.WithLabelValues(metrics.StagePayment).Inc()
		log.Printf("❌ [HuntService] Payment for game %s failed, recorded as pending %s: %v", session.GameID, txnID, err)
	} else {
		metrics.RewardMicroAlgos.Add(float64(reward.Total()))
		log.Printf("✅ [HuntService] Paid %.6f ALGO to %s (txn %s)", algo, session.UserWallet, txnID)
	}

	isFirstWin := false
	stats, err := s.stats.ApplyHuntCompletion(ctx, session.UserWallet, completion, algo)
	if err != nil {
		log.Printf("❌ [HuntService] Failed to update stats for %s after game %s: %v", session.UserWallet, session.GameID, err)
	} else {
		isFirstWin = stats.TotalHuntsCompleted == 1
	}

	ok, err := s.sessions.UpdateIfStatus(ctx, session.GameID, entity.SessionWon, repository.SessionUpdate{
		AlgoReward:    &algo,
		TransactionID: &txnID,
	})
	if err != nil || !ok {
		log.Printf("❌ [HuntService] Failed to record reward on game %s (updated: %t): %v", session.GameID, ok, err)
	}

	achievement := AchievementFor(isFirstWin, verdict.PerfectMatch, difficulty)
	if achievement != "" {
		s.mintAchievement(session, achievement, difficulty, completion, verdict.PerfectMatch)
	}

	rewards := &dto.RewardDetails{
		AlgoEarned:     algo,
		BaseReward:     ToAlgo(reward.Base),
		BonusReward:    ToAlgo(reward.Bonus),
		TransactionID:  txnID,
		PaymentPending: pending,
		Achievement:    achievement,
	}
	details := &dto.GameDetails{
		Difficulty:     difficulty,
		CompletionTime: completion,
		PerfectMatch:   verdict.PerfectMatch,
		IsFirstWin:     isFirstWin,
	}
	return rewards, details
}

func (s *huntService) mintAchievement(session *entity.Session, achievement, difficulty string, completion int64, perfect bool) {
	if s.nfts == nil {
		return
	}

	wallet := session.UserWallet
	gameID := session.GameID
	details := map[string]any{
		"subreddit":       session.Subreddit,
		"difficulty":      difficulty,
		"completion_time": completion,
		"perfect_match":   perfect,
	}

	s.runAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), mintTimeout)
		defer cancel()

		nft, err := s.nfts.MintAchievement(ctx, wallet, achievement, &gameID, details)
		if err != nil {
			log.Printf("❌ [HuntService] Failed to mint %s NFT for %s: %v", achievement, wallet, err)
			return
		}
		log.Printf("✅ [HuntService] Minted %s NFT %s for %s", achievement, nft.ID, wallet)
	})
}
