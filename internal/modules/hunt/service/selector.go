package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"anoa.com/mindminer/internal/agent/providers"
	"anoa.com/mindminer/pkg/apperror"
)

// HuntSubreddits is the allow-list posts are drawn from.
var HuntSubreddits = []string{
	"todayilearned",
	"explainlikeimfive",
	"science",
	"technology",
	"askscience",
	"history",
	"space",
	"futurology",
	"psychology",
	"philosophy",
}

const (
	hotPostLimit       = 25
	maxSelectAttempts  = 5
	maxSuitableComment = 20
)

// PostSelector draws a random allow-listed subreddit and picks a post small enough for the
// clue generator to read every comment.
type PostSelector struct {
	reddit     providers.RedditClient
	subreddits []string
	delay      time.Duration
	intN       func(n int) int
}

func NewPostSelector(reddit providers.RedditClient, delay time.Duration, intN func(n int) int) *PostSelector {
	return &PostSelector{
		reddit:     reddit,
		subreddits: HuntSubreddits,
		delay:      delay,
		intN:       intN,
	}
}

// IsSuitablePost reports whether p has at least one and at most 20 comments and is not pinned.
func IsSuitablePost(p providers.Post) bool {
	return p.NumComments > 0 && p.NumComments <= maxSuitableComment && !p.Stickied
}

// SelectSuitablePost returns the subreddit name and chosen post, or ErrNoSuitablePost once
// every attempt came back empty.
func (s *PostSelector) SelectSuitablePost(ctx context.Context) (string, providers.Post, error) {
	for attempt := 1; attempt <= maxSelectAttempts; attempt++ {
		subreddit := s.subreddits[s.intN(len(s.subreddits))]
		log.Printf("[PostSelector] Attempt %d: searching r/%s", attempt, subreddit)

		posts, err := s.reddit.ListHotPosts(ctx, subreddit, hotPostLimit)
		if err != nil {
			// a failed fetch counts as an empty attempt
			log.Printf("⚠️ [PostSelector] Failed to fetch r/%s: %v", subreddit, err)
		}

		var suitable []providers.Post
		for _, p := range posts {
			if IsSuitablePost(p) {
				suitable = append(suitable, p)
			}
		}

		if len(suitable) > 0 {
			post := suitable[s.intN(len(suitable))]
			if post.Subreddit == "" {
				post.Subreddit = subreddit
			}
			return subreddit, post, nil
		}

		log.Printf("[PostSelector] No suitable posts in r/%s", subreddit)

		if attempt < maxSelectAttempts && s.delay > 0 {
			select {
			case <-ctx.Done():
				return "", providers.Post{}, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return "", providers.Post{}, fmt.Errorf("after %d attempts: %w", maxSelectAttempts, apperror.ErrNoSuitablePost)
}
