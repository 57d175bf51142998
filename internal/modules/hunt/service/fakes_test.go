package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"anoa.com/mindminer/internal/agent/providers"
	"anoa.com/mindminer/internal/entity"
	huntRepo "anoa.com/mindminer/internal/modules/hunt/repository"
	nftRepo "anoa.com/mindminer/internal/modules/nft/repository"
	nftService "anoa.com/mindminer/internal/modules/nft/service"
	statsRepo "anoa.com/mindminer/internal/modules/stats/repository"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/stretchr/testify/require"
)

const (
	winningPermalink = "/r/science/comments/p1/thread/c2/"
	wrongPermalink   = "/r/science/comments/p1/thread/c1/"
)

// fakeLLM answers each prompt with respond, or fails every call when err is set.
type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	respond func(parts []string) string
	err     error
}

func (f *fakeLLM) Complete(ctx context.Context, parts []string, maxTokens int32, temperature float32) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.respond(parts), nil
}

func (f *fakeLLM) Close() {}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeReddit struct {
	posts      []providers.Post
	postsErr   error
	listCalls  atomic.Int32
	comments   []providers.CommentNode
	byLink     map[string]providers.Comment
	commentErr error
}

func (f *fakeReddit) GetAccessToken(ctx context.Context) (string, error) { return "token", nil }

func (f *fakeReddit) ListHotPosts(ctx context.Context, subreddit string, limit int) ([]providers.Post, error) {
	f.listCalls.Add(1)
	return f.posts, f.postsErr
}

func (f *fakeReddit) GetPostComments(ctx context.Context, postID string) ([]providers.CommentNode, error) {
	return f.comments, nil
}

func (f *fakeReddit) GetCommentByPermalink(ctx context.Context, permalink string) (*providers.Comment, error) {
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	c, ok := f.byLink[permalink]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type countingLedger struct {
	calls atomic.Int32
	fail  bool
}

func (l *countingLedger) Pay(ctx context.Context, toAddress string, amountMicroAlgos uint64, memo, idempotencyKey string) (string, error) {
	l.calls.Add(1)
	if l.fail {
		return "", errors.New("node unreachable")
	}
	return "TXN-" + idempotencyKey, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	svc      *huntService
	sessions huntRepo.SessionRepository
	stats    statsRepo.UserStatsRepository
	nfts     nftRepo.NFTRepository
	reddit   *fakeReddit
	llm      *fakeLLM
	ledger   *countingLedger
	clock    *fakeClock
	wallet   string
}

func sampleComments() []providers.CommentNode {
	return []providers.CommentNode{
		{
			Comment: providers.Comment{ID: "c1", Author: "alice", Body: "Cats sleep a lot.", Permalink: wrongPermalink},
			Replies: []providers.CommentNode{
				{Comment: providers.Comment{ID: "c2", Author: "bob", Body: "Octopuses have three hearts and copper blood.", Permalink: winningPermalink}},
			},
		},
	}
}

// clueJSON points the clue at the second flattened comment (c2).
const clueJSON = `{"fact":"Octopuses have three hearts.","clue":"Find the reply about a creature with more than one pump.","winning_comment_id":"c2","reasoning":"most educational","index":1}`

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	account := crypto.GenerateAccount()
	reddit := &fakeReddit{
		posts: []providers.Post{
			{ID: "p1", Subreddit: "science", Title: "Octopus thread", Score: 120, NumComments: 2},
			{ID: "big", Subreddit: "science", Title: "Too busy", Score: 9000, NumComments: 500},
		},
		comments: sampleComments(),
		byLink: map[string]providers.Comment{
			winningPermalink: {ID: "c2", Author: "bob", Body: "Octopuses have three hearts and copper blood.", Permalink: winningPermalink},
			wrongPermalink:   {ID: "c1", Author: "alice", Body: "Cats sleep a lot.", Permalink: wrongPermalink},
		},
	}
	llm := &fakeLLM{respond: func(parts []string) string {
		if len(parts) == 1 {
			return "Honey never spoils."
		}
		return clueJSON
	}}
	ledger := &countingLedger{}
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	sessions := huntRepo.NewMemorySessionRepository()
	stats := statsRepo.NewMemoryUserStatsRepository()
	nfts := nftRepo.NewMemoryNFTRepository()

	svc := newHuntService(
		sessions, stats, reddit, llm, ledger, nftService.NewNFTService(nfts), nil,
		Options{HuntDuration: 30 * time.Minute},
		clock.Now,
		func(n int) int { return 0 },
		func() float64 { return 0.9 },
	)
	svc.runAsync = func(f func()) { f() }

	return &testEnv{
		svc:      svc,
		sessions: sessions,
		stats:    stats,
		nfts:     nfts,
		reddit:   reddit,
		llm:      llm,
		ledger:   ledger,
		clock:    clock,
		wallet:   account.Address.String(),
	}
}

func (e *testEnv) startedSession(t *testing.T) *entity.Session {
	t.Helper()

	resp, err := e.svc.StartHunt(context.Background(), e.wallet)
	require.NoError(t, err)

	session, err := e.sessions.FindByID(context.Background(), resp.GameID)
	require.NoError(t, err)
	return session
}
