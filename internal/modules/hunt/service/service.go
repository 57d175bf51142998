package service

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"anoa.com/mindminer/internal/agent/providers"
	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/internal/metrics"
	"anoa.com/mindminer/internal/modules/hunt/dto"
	"anoa.com/mindminer/internal/modules/hunt/repository"
	nftService "anoa.com/mindminer/internal/modules/nft/service"
	statsRepo "anoa.com/mindminer/internal/modules/stats/repository"
	"anoa.com/mindminer/pkg/apperror"
	"anoa.com/mindminer/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultHistoryLimit = 20

type Options struct {
	HuntDuration       time.Duration
	SelectorRetryDelay time.Duration
	StartLockTTL       time.Duration
}

type HuntService interface {
	StartHunt(ctx context.Context, wallet string) (*dto.StartHuntResponse, error)
	SubmitDiscovery(ctx context.Context, gameID uuid.UUID, wallet, submittedPermalink string) (*dto.SubmitDiscoveryResponse, error)
	CleanupExpiredSessions(ctx context.Context) (int64, error)
	GetSession(ctx context.Context, gameID uuid.UUID) (*dto.SessionView, error)
	ListWalletHunts(ctx context.Context, wallet string, limit int) ([]dto.SessionView, error)
}

type huntService struct {
	sessions repository.SessionRepository
	stats    statsRepo.UserStatsRepository
	reddit   providers.RedditClient
	llm      providers.LLMProvider
	ledger   providers.Ledger
	nfts     nftService.NFTService
	rdb      *redis.Client

	selector *PostSelector
	clues    *ClueGenerator
	verifier *SubmissionVerifier

	opts     Options
	now      func() time.Time
	intN     func(n int) int
	runAsync func(func())
}

// NewHuntService wires the hunt lifecycle. llm may be nil, in which case every AI stage uses
// its fallback; rdb may be nil, which disables the start lock.
func NewHuntService(
	sessions repository.SessionRepository,
	stats statsRepo.UserStatsRepository,
	reddit providers.RedditClient,
	llm providers.LLMProvider,
	ledger providers.Ledger,
	nfts nftService.NFTService,
	rdb *redis.Client,
	opts Options,
) HuntService {
	return newHuntService(sessions, stats, reddit, llm, ledger, nfts, rdb, opts, time.Now, rand.IntN, rand.Float64)
}

func newHuntService(
	sessions repository.SessionRepository,
	stats statsRepo.UserStatsRepository,
	reddit providers.RedditClient,
	llm providers.LLMProvider,
	ledger providers.Ledger,
	nfts nftService.NFTService,
	rdb *redis.Client,
	opts Options,
	now func() time.Time,
	intN func(n int) int,
	randFloat func() float64,
) *huntService {
	if opts.HuntDuration <= 0 {
		opts.HuntDuration = 30 * time.Minute
	}
	if opts.StartLockTTL <= 0 {
		opts.StartLockTTL = time.Minute
	}

	return &huntService{
		sessions: sessions,
		stats:    stats,
		reddit:   reddit,
		llm:      llm,
		ledger:   ledger,
		nfts:     nfts,
		rdb:      rdb,
		selector: NewPostSelector(reddit, opts.SelectorRetryDelay, intN),
		clues:    NewClueGenerator(llm),
		verifier: NewSubmissionVerifier(llm, randFloat),
		opts:     opts,
		now:      now,
		intN:     intN,
		runAsync: func(f func()) { go f() },
	}
}

func (s *huntService) StartHunt(ctx context.Context, wallet string) (*dto.StartHuntResponse, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet address is required: %w", apperror.ErrInvalidInput)
	}

	lock, err := ratelimiter.CheckAndSetLock(ctx, s.rdb, "start_hunt:"+wallet, s.opts.StartLockTTL)
	switch {
	case err != nil:
		log.Printf("⚠️ [HuntService] Start lock unavailable for %s, continuing: %v", wallet, err)
	case lock == nil:
		return nil, apperror.New(http.StatusConflict, "a hunt is already being started for this wallet", nil)
	default:
		defer func() {
			if err := ratelimiter.ClearLock(context.Background(), s.rdb, lock); err != nil {
				log.Printf("⚠️ [HuntService] Failed to release start lock for %s: %v", wallet, err)
			}
		}()
	}

	log.Printf("[HuntService] Starting hunt for wallet: %s", wallet)

	if err := s.stats.EnsureExists(ctx, wallet); err != nil {
		return nil, &apperror.HuntStartFailed{Reason: fmt.Errorf("ensure user stats: %w", err)}
	}

	_, post, err := s.selector.SelectSuitablePost(ctx)
	if err != nil {
		return nil, &apperror.HuntStartFailed{Reason: err}
	}
	log.Printf("[HuntService] Selected post %s from r/%s", post.ID, post.Subreddit)

	tree, err := s.reddit.GetPostComments(ctx, post.ID)
	if err != nil {
		log.Printf("❌ [HuntService] Failed to fetch comments for post %s: %v", post.ID, err)
		return nil, &apperror.HuntStartFailed{Reason: fmt.Errorf("post %s: %w", post.ID, apperror.ErrNoCommentsFound)}
	}
	comments := FlattenComments(tree)
	if len(comments) == 0 {
		return nil, &apperror.HuntStartFailed{Reason: fmt.Errorf("post %s: %w", post.ID, apperror.ErrNoCommentsFound)}
	}

	clue := s.clues.Generate(ctx, post, comments)
	funFact := s.generateFunFact(ctx)

	now := s.now()
	session := &entity.Session{
		GameID:                  uuid.New(),
		UserWallet:              wallet,
		Subreddit:               post.Subreddit,
		TargetPostURL:           CanonicalPostURL(post),
		PostTitle:               post.Title,
		PostScore:               post.Score,
		PostCommentCount:        post.NumComments,
		WinningCommentPermalink: clue.WinningComment.Permalink,
		ClueText:                clue.Clue,
		ExtractedFact:           clue.Fact,
		ExpirationTimestamp:     now.Add(s.opts.HuntDuration),
		Status:                  entity.SessionActive,
		CreatedAt:               now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, &apperror.HuntStartFailed{Reason: fmt.Errorf("create game session: %w", err)}
	}
	metrics.HuntsStarted.Inc()

	// flavor text only
	if err := s.stats.UpdateLastGeneralFact(ctx, wallet, funFact); err != nil {
		log.Printf("⚠️ [HuntService] Failed to store last general fact for %s: %v", wallet, err)
	}

	log.Printf("✅ [HuntService] Hunt %s started for %s (fallback clue: %t)", session.GameID, wallet, clue.Fallback)

	return &dto.StartHuntResponse{
		GameID:         session.GameID,
		RedditPostURL:  session.TargetPostURL,
		Clue:           session.ClueText,
		GeneralFact:    funFact,
		Subreddit:      "r/" + post.Subreddit,
		ExpirationTime: session.ExpirationTimestamp,
		HuntDetails: dto.HuntDetails{
			PostTitle:    post.Title,
			PostScore:    post.Score,
			CommentCount: post.NumComments,
			Difficulty:   DifficultyFor(session.ClueText),
		},
	}, nil
}

func (s *huntService) SubmitDiscovery(ctx context.Context, gameID uuid.UUID, wallet, submittedPermalink string) (*dto.SubmitDiscoveryResponse, error) {
	wallet = strings.TrimSpace(wallet)
	submittedPermalink = strings.TrimSpace(submittedPermalink)
	if wallet == "" || submittedPermalink == "" {
		return nil, fmt.Errorf("wallet address and submitted permalink are required: %w", apperror.ErrInvalidInput)
	}

	session, err := s.sessions.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if session.Status != entity.SessionActive {
		return s.inactive(session), nil
	}

	now := s.now()
	if session.IsExpired(now) {
		return s.expire(ctx, session)
	}

	if session.UserWallet != wallet {
		return nil, apperror.ErrOwnershipMismatch
	}

	comment, err := s.reddit.GetCommentByPermalink(ctx, submittedPermalink)
	if err != nil {
		return nil, fmt.Errorf("fetch submitted comment: %w", err)
	}
	if comment == nil {
		metrics.HuntOutcomes.WithLabelValues(dto.OutcomeInvalidPermalink).Inc()
		return &dto.SubmitDiscoveryResponse{
			Outcome:            dto.OutcomeInvalidPermalink,
			Message:            "Could not retrieve comment from the provided permalink",
			SubmittedPermalink: submittedPermalink,
		}, nil
	}

	verdict := s.verifier.Verify(ctx, session, comment, submittedPermalink)
	if verdict.Fallback {
		log.Printf("⚠️ [HuntService] Game %s judged by heuristic verdict (correct: %t)", gameID, verdict.IsCorrect)
	}

	completion := int64(now.Sub(session.CreatedAt) / time.Second)
	if completion < 0 {
		completion = 0
	}

	if !verdict.IsCorrect {
		return s.lose(ctx, session, submittedPermalink, completion, verdict)
	}
	return s.win(ctx, session, submittedPermalink, completion, verdict)
}

func (s *huntService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.MarkExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	if n > 0 {
		metrics.SessionsExpired.Add(float64(n))
		log.Printf("🧹 [HuntService] %d expired sessions marked as timeout", n)
	}
	return n, nil
}

func (s *huntService) GetSession(ctx context.Context, gameID uuid.UUID) (*dto.SessionView, error) {
	session, err := s.sessions.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	view := ToSessionView(session)
	return &view, nil
}

func (s *huntService) ListWalletHunts(ctx context.Context, wallet string, limit int) ([]dto.SessionView, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	sessions, err := s.sessions.FindByWallet(ctx, wallet, limit)
	if err != nil {
		return nil, err
	}

	views := make([]dto.SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, ToSessionView(session))
	}
	return views, nil
}

// inactive reports the status a terminal session already holds.
func (s *huntService) inactive(session *entity.Session) *dto.SubmitDiscoveryResponse {
	metrics.HuntOutcomes.WithLabelValues(dto.OutcomeGameInactive).Inc()
	return &dto.SubmitDiscoveryResponse{
		Outcome:       dto.OutcomeGameInactive,
		Message:       fmt.Sprintf("Game is no longer active. Status: %s", session.Status),
		CurrentStatus: string(session.Status),
	}
}

// lostRace re-reads a session whose transition was taken by another writer.
func (s *huntService) lostRace(ctx context.Context, gameID uuid.UUID) (*dto.SubmitDiscoveryResponse, error) {
	current, err := s.sessions.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.inactive(current), nil
}

func (s *huntService) expire(ctx context.Context, session *entity.Session) (*dto.SubmitDiscoveryResponse, error) {
	timeout := entity.SessionTimeout
	ok, err := s.sessions.UpdateIfStatus(ctx, session.GameID, entity.SessionActive, repository.SessionUpdate{Status: &timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to mark session timeout: %w", err)
	}
	if !ok {
		return s.lostRace(ctx, session.GameID)
	}

	metrics.SessionsExpired.Inc()
	metrics.HuntOutcomes.WithLabelValues(dto.OutcomeTimeout).Inc()

	expiredAt := session.ExpirationTimestamp
	return &dto.SubmitDiscoveryResponse{
		Outcome:   dto.OutcomeTimeout,
		Message:   "Time has expired for this hunt",
		ExpiredAt: &expiredAt,
	}, nil
}

func (s *huntService) lose(ctx context.Context, session *entity.Session, permalink string, completion int64, verdict dto.VerificationResult) (*dto.SubmitDiscoveryResponse, error) {
	lost := entity.SessionLost
	ok, err := s.sessions.UpdateIfStatus(ctx, session.GameID, entity.SessionActive, repository.SessionUpdate{
		Status:             &lost,
		SubmittedPermalink: &permalink,
		CompletionTime:     &completion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark session lost: %w", err)
	}
	if !ok {
		return s.lostRace(ctx, session.GameID)
	}

	metrics.HuntOutcomes.WithLabelValues(dto.OutcomeLost).Inc()
	return &dto.SubmitDiscoveryResponse{
		Outcome:            dto.OutcomeLost,
		Message:            verdict.Feedback,
		SubmittedPermalink: permalink,
		CompletionTime:     &completion,
		Verification:       &verdict,
	}, nil
}

func (s *huntService) win(ctx context.Context, session *entity.Session, permalink string, completion int64, verdict dto.VerificationResult) (*dto.SubmitDiscoveryResponse, error) {
	won := entity.SessionWon
	ok, err := s.sessions.UpdateIfStatus(ctx, session.GameID, entity.SessionActive, repository.SessionUpdate{
		Status:             &won,
		SubmittedPermalink: &permalink,
		CompletionTime:     &completion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark session won: %w", err)
	}
	if !ok {
		return s.lostRace(ctx, session.GameID)
	}

	// This caller owns the won transition; settlement runs exactly once from here.
	rewards, details := s.settle(ctx, session, completion, verdict)

	metrics.HuntOutcomes.WithLabelValues(dto.OutcomeWon).Inc()
	return &dto.SubmitDiscoveryResponse{
		Success:            true,
		Outcome:            dto.OutcomeWon,
		Message:            "Congratulations! You found the correct answer!",
		SubmittedPermalink: permalink,
		CompletionTime:     &completion,
		Verification:       &verdict,
		Rewards:            rewards,
		GameDetails:        details,
		ExtractedFact:      session.ExtractedFact,
	}, nil
}

func PostURL(subreddit, postID string) string {
	return fmt.Sprintf("https://reddit.com/r/%s/comments/%s", subreddit, postID)
}

// CanonicalPostURL prefers the permalink Reddit reported for the post.
func CanonicalPostURL(post providers.Post) string {
	if post.Permalink != "" {
		return "https://reddit.com" + post.Permalink
	}
	return PostURL(post.Subreddit, post.ID)
}

func ToSessionView(session *entity.Session) dto.SessionView {
	view := dto.SessionView{
		GameID:              session.GameID,
		UserWallet:          session.UserWallet,
		Subreddit:           session.Subreddit,
		RedditPostURL:       session.TargetPostURL,
		Clue:                session.ClueText,
		Status:              string(session.Status),
		ExpirationTimestamp: session.ExpirationTimestamp,
		SubmittedPermalink:  session.SubmittedPermalink,
		CompletionTime:      session.CompletionTime,
		AlgoReward:          session.AlgoReward,
		TransactionID:       session.TransactionID,
		CreatedAt:           session.CreatedAt,
	}
	if session.Status == entity.SessionWon {
		view.ExtractedFact = session.ExtractedFact
	}
	return view
}
