package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/mindminer/internal/agent/providers"
	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/internal/modules/hunt/dto"
	nftService "anoa.com/mindminer/internal/modules/nft/service"
	"anoa.com/mindminer/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// answerVerification makes the fake model judge every non-perfect submission as isCorrect.
func (e *testEnv) answerVerification(isCorrect bool) {
	e.llm.respond = func(parts []string) string {
		if strings.Contains(parts[0], "verifying") {
			return fmt.Sprintf(`{"isCorrect": %t, "perfectMatch": true, "confidence": 0.8, "feedback": "judged", "reasoning": "r", "factMatch": %t, "relevanceScore": 1.7}`, isCorrect, isCorrect)
		}
		if len(parts) == 1 {
			return "Honey never spoils."
		}
		return clueJSON
	}
}

func TestStartHunt_CreatesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.StartHunt(ctx, env.wallet)
	require.NoError(t, err)

	assert.Equal(t, "https://reddit.com/r/science/comments/p1", resp.RedditPostURL)
	assert.Equal(t, "r/science", resp.Subreddit)
	assert.Equal(t, "Find the reply about a creature with more than one pump.", resp.Clue)
	assert.Equal(t, "Honey never spoils.", resp.GeneralFact)
	assert.Equal(t, env.clock.Now().Add(30*time.Minute), resp.ExpirationTime)
	assert.Equal(t, DifficultyBeginner, resp.HuntDetails.Difficulty)
	assert.Equal(t, 2, resp.HuntDetails.CommentCount)

	session, err := env.sessions.FindByID(ctx, resp.GameID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionActive, session.Status)
	assert.Equal(t, winningPermalink, session.WinningCommentPermalink)
	assert.Equal(t, "Octopuses have three hearts.", session.ExtractedFact)

	stats, err := env.stats.FindByWallet(ctx, env.wallet)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalHuntsCompleted)
	assert.Equal(t, "Honey never spoils.", stats.LastGeneralFact)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), winningPermalink)
}

func TestStartHunt_UsesPostSubredditAndPermalink(t *testing.T) {
	env := newTestEnv(t)
	env.reddit.posts[0].Subreddit = "AskHistorians"
	env.reddit.posts[0].Permalink = "/r/AskHistorians/comments/p1/octopus_thread/"

	resp, err := env.svc.StartHunt(context.Background(), env.wallet)
	require.NoError(t, err)
	assert.Equal(t, "https://reddit.com/r/AskHistorians/comments/p1/octopus_thread/", resp.RedditPostURL)
	assert.Equal(t, "r/AskHistorians", resp.Subreddit)

	session, err := env.sessions.FindByID(context.Background(), resp.GameID)
	require.NoError(t, err)
	assert.Equal(t, "AskHistorians", session.Subreddit)
	assert.Equal(t, resp.RedditPostURL, session.TargetPostURL)
}

func TestStartHunt_FallbackWhenModelFails(t *testing.T) {
	env := newTestEnv(t)
	env.llm.err = errors.New("quota exceeded")

	resp, err := env.svc.StartHunt(context.Background(), env.wallet)
	require.NoError(t, err)
	assert.Equal(t, FallbackClue, resp.Clue)
	assert.Equal(t, fallbackFunFacts[0], resp.GeneralFact)

	session, err := env.sessions.FindByID(context.Background(), resp.GameID)
	require.NoError(t, err)
	assert.Equal(t, wrongPermalink, session.WinningCommentPermalink, "fallback targets the first flattened comment")
	assert.Equal(t, FallbackFact, session.ExtractedFact)
}

func TestStartHunt_NoSuitablePost(t *testing.T) {
	env := newTestEnv(t)
	env.reddit.posts = env.reddit.posts[1:]

	_, err := env.svc.StartHunt(context.Background(), env.wallet)
	require.Error(t, err)

	var startErr *apperror.HuntStartFailed
	assert.ErrorAs(t, err, &startErr)
	assert.ErrorIs(t, err, apperror.ErrNoSuitablePost)
	assert.EqualValues(t, maxSelectAttempts, env.reddit.listCalls.Load())

	hunts, err := env.sessions.FindByWallet(context.Background(), env.wallet, 10)
	require.NoError(t, err)
	assert.Empty(t, hunts)
}

func TestStartHunt_NoComments(t *testing.T) {
	env := newTestEnv(t)
	env.reddit.comments = []providers.CommentNode{
		{Comment: providers.Comment{ID: "x", Body: "[deleted]"}},
	}

	_, err := env.svc.StartHunt(context.Background(), env.wallet)
	assert.ErrorIs(t, err, apperror.ErrNoCommentsFound)
	assert.Zero(t, env.llm.Calls())
}

func TestStartHunt_StartLock(t *testing.T) {
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	env.svc.rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = env.svc.rdb.Close() })
	lockKey := "lock:start_hunt:" + env.wallet

	_, err := env.svc.StartHunt(context.Background(), env.wallet)
	require.NoError(t, err)
	assert.False(t, mr.Exists(lockKey), "lock is released after the start")

	require.NoError(t, mr.Set(lockKey, "other-request"))
	_, err = env.svc.StartHunt(context.Background(), env.wallet)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)

	got, err := mr.Get(lockKey)
	require.NoError(t, err)
	assert.Equal(t, "other-request", got, "another request's lock is left in place")
}

func TestStartHunt_RequiresWallet(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.StartHunt(context.Background(), "   ")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestSubmitDiscovery_PerfectMatchWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.startedSession(t)
	callsAfterStart := env.llm.Calls()

	env.clock.Advance(90 * time.Second)
	resp, err := env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, winningPermalink)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, dto.OutcomeWon, resp.Outcome)
	assert.Equal(t, callsAfterStart, env.llm.Calls(), "perfect match must not call the model")
	require.NotNil(t, resp.Verification)
	assert.True(t, resp.Verification.PerfectMatch)
	assert.Equal(t, 1.0, resp.Verification.Confidence)
	assert.Equal(t, "Octopuses have three hearts.", resp.ExtractedFact)

	require.NotNil(t, resp.Rewards)
	assert.InDelta(t, 0.008, resp.Rewards.AlgoEarned, 1e-9)
	assert.InDelta(t, 0.005, resp.Rewards.BaseReward, 1e-9)
	assert.InDelta(t, 0.003, resp.Rewards.BonusReward, 1e-9)
	assert.Equal(t, "TXN-"+session.GameID.String(), resp.Rewards.TransactionID)
	assert.False(t, resp.Rewards.PaymentPending)
	assert.Equal(t, nftService.AchievementFirstDiscovery, resp.Rewards.Achievement)

	require.NotNil(t, resp.GameDetails)
	assert.EqualValues(t, 90, resp.GameDetails.CompletionTime)
	assert.True(t, resp.GameDetails.IsFirstWin)

	stored, err := env.sessions.FindByID(ctx, session.GameID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionWon, stored.Status)
	require.NotNil(t, stored.AlgoReward)
	assert.InDelta(t, 0.008, *stored.AlgoReward, 1e-9)
	require.NotNil(t, stored.TransactionID)
	assert.Equal(t, resp.Rewards.TransactionID, *stored.TransactionID)

	stats, err := env.stats.FindByWallet(ctx, env.wallet)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalHuntsCompleted)
	assert.InDelta(t, 0.008, stats.TotalRewardEarned, 1e-9)
	assert.InDelta(t, 90, stats.AvgCompletionTime, 1e-9)

	nfts, err := env.nfts.FindByWallet(ctx, env.wallet)
	require.NoError(t, err)
	require.Len(t, nfts, 1)
	assert.Equal(t, nftService.AchievementFirstDiscovery, nfts[0].AchievementType)
	assert.Equal(t, session.GameID, *nfts[0].HuntID)
}

func TestSubmitDiscovery_ModelAcceptsNonPerfectMatch(t *testing.T) {
	env := newTestEnv(t)
	env.answerVerification(true)
	session := env.startedSession(t)

	resp, err := env.svc.SubmitDiscovery(context.Background(), session.GameID, env.wallet, wrongPermalink)
	require.NoError(t, err)

	assert.Equal(t, dto.OutcomeWon, resp.Outcome)
	assert.False(t, resp.Verification.PerfectMatch, "model cannot claim a perfect match")
	assert.False(t, resp.Verification.Fallback)
	require.NotNil(t, resp.Verification.RelevanceScore)
	assert.Equal(t, 1.0, *resp.Verification.RelevanceScore)
	assert.Zero(t, resp.Rewards.BonusReward)
}

func TestSubmitDiscovery_WrongAnswerLoses(t *testing.T) {
	env := newTestEnv(t)
	env.answerVerification(false)
	ctx := context.Background()
	session := env.startedSession(t)

	env.clock.Advance(time.Minute)
	resp, err := env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, wrongPermalink)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, dto.OutcomeLost, resp.Outcome)
	assert.Equal(t, "judged", resp.Message)
	assert.Nil(t, resp.Rewards)
	assert.Empty(t, resp.ExtractedFact)

	stored, err := env.sessions.FindByID(ctx, session.GameID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionLost, stored.Status)
	require.NotNil(t, stored.SubmittedPermalink)
	assert.Equal(t, wrongPermalink, *stored.SubmittedPermalink)
	assert.Nil(t, stored.AlgoReward)

	stats, err := env.stats.FindByWallet(ctx, env.wallet)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalHuntsCompleted)
	assert.Zero(t, env.ledger.calls.Load())
}

func TestSubmitDiscovery_HeuristicWhenModelDown(t *testing.T) {
	env := newTestEnv(t)
	session := env.startedSession(t)
	env.llm.err = errors.New("model offline")

	resp, err := env.svc.SubmitDiscovery(context.Background(), session.GameID, env.wallet, wrongPermalink)
	require.NoError(t, err)

	assert.Equal(t, dto.OutcomeWon, resp.Outcome)
	assert.True(t, resp.Verification.Fallback)
	assert.False(t, resp.Verification.PerfectMatch)
	assert.InDelta(t, 0.6+0.3*0.9, resp.Verification.Confidence, 1e-9)
}

func TestSubmitDiscovery_Timeout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.startedSession(t)

	env.clock.Advance(31 * time.Minute)
	resp, err := env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, winningPermalink)
	require.NoError(t, err)

	assert.Equal(t, dto.OutcomeTimeout, resp.Outcome)
	require.NotNil(t, resp.ExpiredAt)
	assert.Equal(t, session.ExpirationTimestamp, *resp.ExpiredAt)
	assert.Zero(t, env.ledger.calls.Load())

	again, err := env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, winningPermalink)
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeGameInactive, again.Outcome)
	assert.Equal(t, string(entity.SessionTimeout), again.CurrentStatus)
}

func TestSubmitDiscovery_OwnershipMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.startedSession(t)

	_, err := env.svc.SubmitDiscovery(ctx, session.GameID, "SOMEONEELSE", winningPermalink)
	assert.ErrorIs(t, err, apperror.ErrOwnershipMismatch)

	stored, err := env.sessions.FindByID(ctx, session.GameID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionActive, stored.Status)
}

func TestSubmitDiscovery_UnknownGame(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.SubmitDiscovery(context.Background(), uuid.New(), env.wallet, winningPermalink)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

func TestSubmitDiscovery_InvalidPermalinkKeepsSessionActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.startedSession(t)

	resp, err := env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, "/r/science/comments/nope/")
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeInvalidPermalink, resp.Outcome)

	stored, err := env.sessions.FindByID(ctx, session.GameID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionActive, stored.Status)
}

func TestSubmitDiscovery_UpstreamFailureKeepsSessionActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.startedSession(t)
	env.reddit.commentErr = fmt.Errorf("reddit GET /api/info: %w", apperror.ErrUpstreamUnavailable)

	_, err := env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, winningPermalink)
	assert.ErrorIs(t, err, apperror.ErrUpstreamUnavailable)

	stored, err := env.sessions.FindByID(ctx, session.GameID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionActive, stored.Status)
}

func TestSubmitDiscovery_ConcurrentWinsSettleOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.startedSession(t)

	const submitters = 10
	outcomes := make([]string, submitters)
	var wg sync.WaitGroup
	for i := range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, winningPermalink)
			if assert.NoError(t, err) {
				outcomes[i] = resp.Outcome
			}
		}()
	}
	wg.Wait()

	won := 0
	for _, o := range outcomes {
		if o == dto.OutcomeWon {
			won++
		} else {
			assert.Equal(t, dto.OutcomeGameInactive, o)
		}
	}
	assert.Equal(t, 1, won)
	assert.EqualValues(t, 1, env.ledger.calls.Load())

	stats, err := env.stats.FindByWallet(ctx, env.wallet)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalHuntsCompleted)

	nfts, err := env.nfts.FindByWallet(ctx, env.wallet)
	require.NoError(t, err)
	assert.Len(t, nfts, 1)
}

func TestSubmitDiscovery_PaymentFailureStillWins(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.fail = true
	ctx := context.Background()
	session := env.startedSession(t)

	resp, err := env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, winningPermalink)
	require.NoError(t, err)

	assert.Equal(t, dto.OutcomeWon, resp.Outcome)
	assert.True(t, resp.Rewards.PaymentPending)
	assert.True(t, strings.HasPrefix(resp.Rewards.TransactionID, "MOCK_TXN_"))

	stored, err := env.sessions.FindByID(ctx, session.GameID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionWon, stored.Status)
	require.NotNil(t, stored.TransactionID)
	assert.Equal(t, resp.Rewards.TransactionID, *stored.TransactionID)
}

func TestSubmitDiscovery_AverageAcrossWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.startedSession(t)
	env.clock.Advance(60 * time.Second)
	resp, err := env.svc.SubmitDiscovery(ctx, first.GameID, env.wallet, winningPermalink)
	require.NoError(t, err)
	assert.True(t, resp.GameDetails.IsFirstWin)

	second := env.startedSession(t)
	env.clock.Advance(120 * time.Second)
	resp, err = env.svc.SubmitDiscovery(ctx, second.GameID, env.wallet, winningPermalink)
	require.NoError(t, err)
	assert.False(t, resp.GameDetails.IsFirstWin)
	assert.Empty(t, resp.Rewards.Achievement, "beginner perfect match earns no second NFT")

	stats, err := env.stats.FindByWallet(ctx, env.wallet)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalHuntsCompleted)
	assert.InDelta(t, 90, stats.AvgCompletionTime, 1e-9)
	assert.InDelta(t, 0.016, stats.TotalRewardEarned, 1e-9)
}

func TestCleanupExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.startedSession(t)
	b := env.startedSession(t)

	n, err := env.svc.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(31 * time.Minute)
	n, err = env.svc.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = env.svc.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, s := range []*entity.Session{a, b} {
		stored, err := env.sessions.FindByID(ctx, s.GameID)
		require.NoError(t, err)
		assert.Equal(t, entity.SessionTimeout, stored.Status)
	}
}

func TestGetSession_RevealsFactOnlyAfterWin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.startedSession(t)

	view, err := env.svc.GetSession(ctx, session.GameID)
	require.NoError(t, err)
	assert.Empty(t, view.ExtractedFact)
	assert.Equal(t, string(entity.SessionActive), view.Status)

	_, err = env.svc.SubmitDiscovery(ctx, session.GameID, env.wallet, winningPermalink)
	require.NoError(t, err)

	view, err = env.svc.GetSession(ctx, session.GameID)
	require.NoError(t, err)
	assert.Equal(t, "Octopuses have three hearts.", view.ExtractedFact)

	hunts, err := env.svc.ListWalletHunts(ctx, env.wallet, 0)
	require.NoError(t, err)
	require.Len(t, hunts, 1)
	assert.Equal(t, session.GameID, hunts[0].GameID)
}
