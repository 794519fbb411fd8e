package calendar

import (
	"strings"

	"github.com/PortNumber53/content-calendar/internal/models"
)

// AssetClassifier decides the asset type from an item's content-type suggestion.
type AssetClassifier interface {
	Classify(contentTypeSuggestion string) models.AssetType
}

// ClassifierFunc adapts a function to AssetClassifier.
type ClassifierFunc func(string) models.AssetType

func (f ClassifierFunc) Classify(s string) models.AssetType { return f(s) }

// SubstringRule maps any matching keyword to Type.
type SubstringRule struct {
	Type     models.AssetType
	Keywords []string
}

// SubstringClassifier is a case-insensitive keyword heuristic. Rules are tried
// in order; Fallback applies when none matches. It guesses, it does not verify.
type SubstringClassifier struct {
	Rules    []SubstringRule
	Fallback models.AssetType
}

// DefaultClassifier checks "image" before the video keywords, so an
// "image story" is an image prompt.
var DefaultClassifier = SubstringClassifier{
	Rules: []SubstringRule{
		{Type: models.AssetImagePrompt, Keywords: []string{"image"}},
		{Type: models.AssetVideoScriptConcept, Keywords: []string{"video", "reel", "story"}},
	},
	Fallback: models.AssetGeneratedText,
}

func (c SubstringClassifier) Classify(contentTypeSuggestion string) models.AssetType {
	s := strings.ToLower(contentTypeSuggestion)
	for _, rule := range c.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(s, strings.ToLower(kw)) {
				return rule.Type
			}
		}
	}
	return c.Fallback
}
