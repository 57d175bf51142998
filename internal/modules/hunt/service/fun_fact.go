package service

import (
	"context"
	"log"

	"anoa.com/mindminer/internal/metrics"
	"anoa.com/mindminer/pkg/textutil"
)

const funFactPrompt = "You are an expert at analyzing Reddit content and creating engaging educational hunt clues. Generate a fascinating, educational fun fact that would interest Reddit users. Make it surprising and memorable. Keep it under 150 words."

var fallbackFunFacts = []string{
	"Honey never spoils. Archaeologists have found pots of honey in ancient Egyptian tombs that are over 3,000 years old and still perfectly edible.",
	`A group of flamingos is called a "flamboyance." These birds get their pink color from the carotenoids in the algae and crustaceans they eat.`,
	"The human brain uses about 20% of the body's total energy, despite only making up about 2% of body weight.",
	"Bananas are berries, but strawberries aren't. Botanically speaking, berries must have seeds inside their flesh.",
	"There are more possible games of chess than there are atoms in the observable universe.",
}

// generateFunFact returns flavor text for a new hunt. It never fails.
func (s *huntService) generateFunFact(ctx context.Context) string {
	if s.llm != nil {
		text, err := s.llm.Complete(ctx, []string{funFactPrompt}, clueMaxTokens, clueTemperature)
		if err != nil {
			log.Printf("⚠️ [HuntService] Fun fact generation failed, using fallback: %v", err)
		} else if fact := textutil.StripMarkup(text); fact != "" {
			return fact
		} else {
			log.Println("⚠️ [HuntService] Fun fact generation returned no text, using fallback")
		}
		metrics.Fallbacks.WithLabelValues(metrics.StageFunFact).Inc()
	}
	return fallbackFunFacts[s.intN(len(fallbackFunFacts))]
}
