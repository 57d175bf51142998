package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"anoa.com/mindminer/internal/agent/providers"
	"anoa.com/mindminer/internal/metrics"
	"anoa.com/mindminer/pkg/textutil"
)

const (
	promptCommentLimit = 10
	clueMaxTokens      = 500
	clueTemperature    = 0.7

	FallbackClue = "Look for a comment that explains the biological reason behind an unusual cardiovascular system and mentions a specific metal that gives blood its unique color."
	FallbackFact = "Octopuses have three hearts and blue blood due to copper-based hemocyanin instead of iron-based hemoglobin."
)

// ErrClueDecode marks a model response that does not satisfy the clue schema.
var ErrClueDecode = errors.New("invalid clue response")

// ClueResult is the generator output. Fallback is set when the fixed clue was used.
type ClueResult struct {
	Clue           string
	Fact           string
	WinningComment providers.Comment
	Reasoning      string
	Fallback       bool
}

type clueResponse struct {
	Fact             string          `json:"fact"`
	Clue             string          `json:"clue"`
	WinningCommentID string          `json:"winning_comment_id"`
	Index            json.RawMessage `json:"index"`
	Reasoning        string          `json:"reasoning"`
}

// ClueGenerator asks the model for a clue and always returns a usable result.
type ClueGenerator struct {
	llm providers.LLMProvider
}

func NewClueGenerator(llm providers.LLMProvider) *ClueGenerator {
	return &ClueGenerator{llm: llm}
}

// FlattenComments walks the tree depth-first and drops empty or removed bodies.
func FlattenComments(nodes []providers.CommentNode) []providers.Comment {
	var out []providers.Comment
	var walk func([]providers.CommentNode)
	walk = func(ns []providers.CommentNode) {
		for _, n := range ns {
			body := strings.TrimSpace(n.Body)
			if body != "" && body != "[deleted]" && body != "[removed]" {
				out = append(out, n.Comment)
			}
			walk(n.Replies)
		}
	}
	walk(nodes)
	return out
}

// Generate never fails; comments must be non-empty.
func (g *ClueGenerator) Generate(ctx context.Context, post providers.Post, comments []providers.Comment) ClueResult {
	if g.llm == nil {
		return fallbackClue(comments)
	}

	candidates := comments
	if len(candidates) > promptCommentLimit {
		candidates = candidates[:promptCommentLimit]
	}

	text, err := g.llm.Complete(ctx, BuildCluePrompt(post, candidates), clueMaxTokens, clueTemperature)
	if err != nil {
		log.Printf("⚠️ [ClueGenerator] Completion failed, using fallback clue: %v", err)
		metrics.Fallbacks.WithLabelValues(metrics.StageClue).Inc()
		return fallbackClue(comments)
	}

	result, err := DecodeClueResponse(text, candidates)
	if err != nil {
		log.Printf("⚠️ [ClueGenerator] %v, using fallback clue", err)
		metrics.Fallbacks.WithLabelValues(metrics.StageClue).Inc()
		return fallbackClue(comments)
	}
	return result
}

func BuildCluePrompt(post providers.Post, comments []providers.Comment) []string {
	body := strings.TrimSpace(post.Selftext)
	if body == "" {
		body = "Link post"
	}

	var sb strings.Builder
	for i, c := range comments {
		fmt.Fprintf(&sb, "[%d] Comment by %s (id %s): %s\n\n", i, c.Author, c.ID, c.Body)
	}

	prompt := fmt.Sprintf(`You are an AI assistant for MindMiner, a Reddit knowledge hunt game. Analyze the following Reddit post and comments to:

1. Extract the most educational/interesting fact from the comments
2. Generate a "Ctrl+F resistant" clue that guides players to find the specific comment containing this fact
3. Identify which comment contains the winning fact

POST:
Title: %s
Content: %s

COMMENTS:
%s
REQUIREMENTS:
- The clue should be specific enough to guide players but not so obvious that they can just Ctrl+F for keywords
- Do not quote exact phrases from the comment
- The clue should describe what to look for rather than exact words to search
- Choose a comment that contains genuinely interesting information

Respond with JSON only:
{
  "fact": "The educational fact extracted from the winning comment",
  "clue": "A Ctrl+F resistant clue that guides players to the winning comment",
  "winning_comment_id": "The id of the comment containing the fact",
  "reasoning": "Brief explanation of why this comment was chosen",
  "index": <the number in brackets of the winning comment>
}`, post.Title, body, sb.String())

	return []string{
		"You are an expert at analyzing Reddit content and creating engaging educational hunt clues.",
		prompt,
	}
}

// DecodeClueResponse parses text strictly against the clue schema. The index must address
// comments; it may be a JSON number or a numeric string.
func DecodeClueResponse(text string, comments []providers.Comment) (ClueResult, error) {
	var resp clueResponse
	dec := json.NewDecoder(strings.NewReader(textutil.StripCodeFences(text)))
	if err := dec.Decode(&resp); err != nil {
		return ClueResult{}, fmt.Errorf("%w: %v", ErrClueDecode, err)
	}

	idx, err := parseIndex(resp.Index)
	if err != nil {
		return ClueResult{}, fmt.Errorf("%w: %v", ErrClueDecode, err)
	}
	if idx < 0 || idx >= len(comments) {
		return ClueResult{}, fmt.Errorf("%w: index %d outside %d comments", ErrClueDecode, idx, len(comments))
	}

	clue := textutil.StripMarkup(resp.Clue)
	fact := textutil.StripMarkup(resp.Fact)
	if clue == "" || fact == "" {
		return ClueResult{}, fmt.Errorf("%w: empty clue or fact", ErrClueDecode)
	}

	return ClueResult{
		Clue:           clue,
		Fact:           fact,
		WinningComment: comments[idx],
		Reasoning:      resp.Reasoning,
	}, nil
}

func parseIndex(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("missing index")
	}

	var n json.Number
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		n = json.Number(strings.TrimSpace(s))
	} else {
		n = json.Number(raw)
	}

	i, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, fmt.Errorf("non-numeric index %q", n)
	}
	return i, nil
}

func fallbackClue(comments []providers.Comment) ClueResult {
	return ClueResult{
		Clue:           FallbackClue,
		Fact:           FallbackFact,
		WinningComment: comments[0],
		Fallback:       true,
	}
}
