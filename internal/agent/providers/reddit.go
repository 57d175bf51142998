package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"anoa.com/mindminer/pkg/apperror"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// Post is one Reddit submission (kind t3).
type Post struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Stickied    bool    `json:"stickied"`
	IsSelf      bool    `json:"is_self"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Comment is one Reddit comment (kind t1).
type Comment struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
}

// CommentNode is a comment with its direct replies, in Reddit's order.
type CommentNode struct {
	Comment
	Replies []CommentNode
}

// RedditClient is the narrow set of Reddit operations the hunt core needs.
type RedditClient interface {
	GetAccessToken(ctx context.Context) (string, error)
	ListHotPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)
	GetPostComments(ctx context.Context, postID string) ([]CommentNode, error)
	// GetCommentByPermalink returns (nil, nil) when the permalink does not resolve to a comment.
	GetCommentByPermalink(ctx context.Context, permalink string) (*Comment, error)
}

type RedditOptions struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	AuthBaseURL  string // https://www.reddit.com
	APIBaseURL   string // https://oauth.reddit.com
	Timeout      time.Duration
	// RequestsPerSecond paces outgoing API calls; Reddit allows ~100 per minute for OAuth apps.
	RequestsPerSecond float64
}

type redditClient struct {
	apiBase     string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewRedditClient builds an OAuth (client credentials) Reddit client. Tokens are cached and
// refreshed by the oauth2 token source.
func NewRedditClient(opts RedditOptions) RedditClient {
	if opts.AuthBaseURL == "" {
		opts.AuthBaseURL = "https://www.reddit.com"
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://oauth.reddit.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 1.5
	}

	base := &http.Client{
		Timeout:   opts.Timeout,
		Transport: &userAgentTransport{userAgent: opts.UserAgent, base: http.DefaultTransport},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	cc := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     strings.TrimRight(opts.AuthBaseURL, "/") + "/api/v1/access_token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ts := cc.TokenSource(ctx)

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = opts.Timeout

	return &redditClient{
		apiBase:     strings.TrimRight(opts.APIBaseURL, "/"),
		tokenSource: ts,
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 5),
	}
}

func (c *redditClient) GetAccessToken(ctx context.Context) (string, error) {
	tok, err := c.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("reddit authentication: %v: %w", err, apperror.ErrUpstreamUnavailable)
	}
	return tok.AccessToken, nil
}

func (c *redditClient) ListHotPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("raw_json", "1")

	var l listing
	if err := c.getJSON(ctx, "/r/"+url.PathEscape(subreddit)+"/hot", q, &l); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p Post
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (c *redditClient) GetPostComments(ctx context.Context, postID string) ([]CommentNode, error) {
	q := url.Values{}
	q.Set("raw_json", "1")
	q.Set("limit", "100")

	// [0] is the post listing, [1] the comment listing
	var listings []listing
	if err := c.getJSON(ctx, "/comments/"+url.PathEscape(postID), q, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	return decodeCommentChildren(listings[1].Data.Children)
}

var permalinkCommentID = regexp.MustCompile(`/comments/[^/]+/[^/]*/([^/?#]+)`)

// CommentIDFromPermalink extracts the comment id from a Reddit comment permalink or URL.
func CommentIDFromPermalink(permalink string) (string, bool) {
	m := permalinkCommentID.FindStringSubmatch(permalink)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (c *redditClient) GetCommentByPermalink(ctx context.Context, permalink string) (*Comment, error) {
	commentID, ok := CommentIDFromPermalink(permalink)
	if !ok {
		return nil, nil
	}

	q := url.Values{}
	q.Set("id", "t1_"+commentID)
	q.Set("raw_json", "1")

	var l listing
	if err := c.getJSON(ctx, "/api/info", q, &l); err != nil {
		return nil, err
	}

	for _, child := range l.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var rc rawComment
		if err := json.Unmarshal(child.Data, &rc); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		cm := rc.comment()
		return &cm, nil
	}
	return nil, nil
}

func (c *redditClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("reddit rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reddit GET %s: %v: %w", path, err, apperror.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("reddit GET %s: status %d: %w", path, resp.StatusCode, apperror.ErrUpstreamUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("reddit GET %s: decode: %v: %w", path, err, apperror.ErrUpstreamUnavailable)
	}
	return nil
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type rawComment struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Permalink  string          `json:"permalink"`
	Replies    json.RawMessage `json:"replies"` // "" when there are none, otherwise a listing
}

func (rc rawComment) comment() Comment {
	return Comment{
		ID:         rc.ID,
		Author:     rc.Author,
		Body:       rc.Body,
		Score:      rc.Score,
		CreatedUTC: rc.CreatedUTC,
		Permalink:  rc.Permalink,
	}
}

func decodeCommentChildren(children []thing) ([]CommentNode, error) {
	nodes := make([]CommentNode, 0, len(children))
	for _, child := range children {
		// "more" stubs carry no body
		if child.Kind != "t1" {
			continue
		}

		var rc rawComment
		if err := json.Unmarshal(child.Data, &rc); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}

		node := CommentNode{Comment: rc.comment()}
		if len(rc.Replies) > 0 && rc.Replies[0] == '{' {
			var replies listing
			if err := json.Unmarshal(rc.Replies, &replies); err != nil {
				return nil, fmt.Errorf("decode replies: %w", err)
			}
			sub, err := decodeCommentChildren(replies.Data.Children)
			if err != nil {
				return nil, err
			}
			node.Replies = sub
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.userAgent != "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(r)
}
