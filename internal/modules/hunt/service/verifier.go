package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"anoa.com/mindminer/internal/agent/providers"
	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/internal/metrics"
	"anoa.com/mindminer/internal/modules/hunt/dto"
	"anoa.com/mindminer/pkg/textutil"
)

const (
	verifyMaxTokens   = 500
	verifyTemperature = 0.3

	// fallbackPassThreshold: a non-perfect submission passes the heuristic when a uniform
	// draw exceeds it (roughly 70% of the time).
	fallbackPassThreshold = 0.3

	feedbackPerfect = "Perfect match! You found the exact comment we were looking for."
	feedbackCorrect = "Great job! Your submission contains the correct information."
	feedbackWrong   = "This comment doesn't match the hunt criteria. The content doesn't contain the expected educational fact."
)

// ErrVerificationDecode marks a verifier response that does not satisfy the verdict schema.
var ErrVerificationDecode = errors.New("invalid verification response")

type verificationResponse struct {
	IsCorrect      *bool    `json:"isCorrect"`
	PerfectMatch   bool     `json:"perfectMatch"`
	Confidence     float64  `json:"confidence"`
	Feedback       string   `json:"feedback"`
	Reasoning      string   `json:"reasoning"`
	FactMatch      *bool    `json:"factMatch"`
	RelevanceScore *float64 `json:"relevanceScore"`
}

// SubmissionVerifier judges a submitted comment against the session target.
type SubmissionVerifier struct {
	llm       providers.LLMProvider
	randFloat func() float64
}

func NewSubmissionVerifier(llm providers.LLMProvider, randFloat func() float64) *SubmissionVerifier {
	return &SubmissionVerifier{llm: llm, randFloat: randFloat}
}

// IsPerfectMatch is exact string equality with the stored permalink.
func IsPerfectMatch(session *entity.Session, submittedPermalink string) bool {
	return submittedPermalink == session.WinningCommentPermalink
}

// Verify skips the model for a perfect match and falls back to the heuristic when the model
// is unavailable or its answer cannot be decoded.
func (v *SubmissionVerifier) Verify(ctx context.Context, session *entity.Session, submitted *providers.Comment, submittedPermalink string) dto.VerificationResult {
	if IsPerfectMatch(session, submittedPermalink) {
		return dto.VerificationResult{
			IsCorrect:    true,
			PerfectMatch: true,
			Confidence:   1.0,
			Feedback:     feedbackPerfect,
			Reasoning:    "The submitted permalink is the target comment.",
		}
	}

	if v.llm == nil {
		return v.fallback()
	}

	parts := BuildVerificationPrompt(session, submitted, submittedPermalink)
	text, err := v.llm.Complete(ctx, parts, verifyMaxTokens, verifyTemperature)
	if err != nil {
		log.Printf("⚠️ [SubmissionVerifier] Completion failed for game %s, using heuristic verdict: %v", session.GameID, err)
		return v.fallback()
	}

	result, err := DecodeVerificationResponse(text)
	if err != nil {
		log.Printf("⚠️ [SubmissionVerifier] %v for game %s, using heuristic verdict", err, session.GameID)
		return v.fallback()
	}

	// the model cannot claim a perfect match the permalinks disagree on
	result.PerfectMatch = false
	return result
}

func BuildVerificationPrompt(session *entity.Session, submitted *providers.Comment, submittedPermalink string) []string {
	prompt := fmt.Sprintf(`You are an AI verifier for MindMiner, a Reddit knowledge hunt game. Your task is to verify if a user's submission is correct.

ORIGINAL HUNT DETAILS:
- Clue Given: %q
- Expected Fact: %q
- Expected Comment Permalink: %q

USER SUBMISSION:
- Submitted Permalink: %q
- Submitted Comment Author: %q
- Submitted Comment Content: %q

VERIFICATION CRITERIA:
1. Does the submitted permalink match the expected permalink exactly? (Perfect Match)
2. If not exact match, does the submitted comment contain the same educational fact or very similar information?
3. Is the submitted comment relevant to the original clue?
4. Rate the overall correctness and provide confidence level

Respond with JSON only:
{
  "isCorrect": boolean,
  "perfectMatch": boolean,
  "confidence": number (0.0 to 1.0),
  "feedback": "User-friendly feedback message",
  "reasoning": "Detailed explanation of the verification decision",
  "factMatch": boolean,
  "relevanceScore": number (0.0 to 1.0)
}`,
		session.ClueText,
		session.ExtractedFact,
		session.WinningCommentPermalink,
		submittedPermalink,
		submitted.Author,
		textutil.Truncate(submitted.Body, 4000),
	)

	return []string{
		"You are an expert at verifying Reddit content submissions for educational hunt games.",
		prompt,
	}
}

// DecodeVerificationResponse requires isCorrect and clamps scores into [0, 1].
func DecodeVerificationResponse(text string) (dto.VerificationResult, error) {
	var resp verificationResponse
	if err := json.NewDecoder(strings.NewReader(textutil.StripCodeFences(text))).Decode(&resp); err != nil {
		return dto.VerificationResult{}, fmt.Errorf("%w: %v", ErrVerificationDecode, err)
	}
	if resp.IsCorrect == nil {
		return dto.VerificationResult{}, fmt.Errorf("%w: missing isCorrect", ErrVerificationDecode)
	}

	result := dto.VerificationResult{
		IsCorrect:    *resp.IsCorrect,
		PerfectMatch: resp.PerfectMatch,
		Confidence:   clamp01(resp.Confidence),
		Feedback:     textutil.StripMarkup(resp.Feedback),
		Reasoning:    textutil.StripMarkup(resp.Reasoning),
		FactMatch:    resp.FactMatch,
	}
	if resp.RelevanceScore != nil {
		score := clamp01(*resp.RelevanceScore)
		result.RelevanceScore = &score
	}
	if result.Feedback == "" {
		if result.IsCorrect {
			result.Feedback = feedbackCorrect
		} else {
			result.Feedback = feedbackWrong
		}
	}
	return result, nil
}

// fallback keeps the game playable without the model at the cost of fidelity. Perfect
// matches never reach it.
func (v *SubmissionVerifier) fallback() dto.VerificationResult {
	metrics.Fallbacks.WithLabelValues(metrics.StageVerification).Inc()

	result := dto.VerificationResult{
		IsCorrect: v.randFloat() > fallbackPassThreshold,
		Fallback:  true,
	}

	if result.IsCorrect {
		result.Confidence = 0.6 + 0.3*v.randFloat()
		result.Feedback = feedbackCorrect
		result.Reasoning = "The submitted comment contains the expected educational content and matches the hunt criteria."
	} else {
		result.Confidence = 0.1 + 0.4*v.randFloat()
		result.Feedback = feedbackWrong
		result.Reasoning = "The submitted comment does not contain the specific educational fact that was the target of this hunt."
	}
	return result
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
