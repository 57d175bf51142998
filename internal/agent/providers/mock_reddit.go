package providers

import (
	"context"
	"time"
)

// MockRedditClient serves fixed development data when Reddit credentials are not configured.
type MockRedditClient struct{}

func NewMockRedditClient() *MockRedditClient {
	return &MockRedditClient{}
}

func (m *MockRedditClient) GetAccessToken(ctx context.Context) (string, error) {
	return "mock_token", nil
}

func (m *MockRedditClient) ListHotPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	now := float64(time.Now().Unix())
	return []Post{
		{
			ID:          "mock_post_1",
			Subreddit:   subreddit,
			Title:       "TIL that octopuses have three hearts and blue blood",
			Score:       1247,
			NumComments: 15,
			CreatedUTC:  now,
		},
		{
			ID:          "mock_post_2",
			Subreddit:   subreddit,
			Title:       "ELI5: Why do we get brain freeze when eating cold things?",
			Selftext:    "I never understood this phenomenon...",
			Score:       892,
			NumComments: 8,
			IsSelf:      true,
			CreatedUTC:  now,
		},
	}, nil
}

func (m *MockRedditClient) GetPostComments(ctx context.Context, postID string) ([]CommentNode, error) {
	return []CommentNode{
		{Comment: mockComments[0]},
		{Comment: mockComments[1]},
	}, nil
}

func (m *MockRedditClient) GetCommentByPermalink(ctx context.Context, permalink string) (*Comment, error) {
	for _, c := range mockComments {
		if c.Permalink == permalink {
			cm := c
			return &cm, nil
		}
	}
	return &Comment{
		ID:         "mock_comment",
		Author:     "TestUser",
		Body:       "This is a mock comment for testing purposes.",
		Score:      42,
		CreatedUTC: float64(time.Now().Unix()),
		Permalink:  permalink,
	}, nil
}

var mockComments = []Comment{
	{
		ID:        "comment_1",
		Author:    "ScienceExpert",
		Body:      "Octopuses actually have three hearts because two pump blood to the gills while the third pumps blood to the rest of the body. Their blue blood comes from copper-based hemocyanin instead of iron-based hemoglobin.",
		Score:     156,
		Permalink: "/r/todayilearned/comments/mock_post_1/comment_1",
	},
	{
		ID:        "comment_2",
		Author:    "CuriousUser",
		Body:      "That's fascinating! I had no idea about the copper-based blood.",
		Score:     23,
		Permalink: "/r/todayilearned/comments/mock_post_1/comment_2",
	},
}
