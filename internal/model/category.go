package model

import "strings"

// Diagram category constants. Every brief is classified into exactly one of
// these before references are selected; styling rules also key off them.
const (
	CategoryPipeline         = "pipeline"
	CategoryStagedProgress   = "staged-progression"
	CategoryCanvas           = "canvas"
	CategoryComparisonCards  = "comparison-cards"
	CategoryMatrix           = "matrix"
	CategoryWheel            = "wheel"
	CategoryConceptExplainer = "concept-explainer"
)

// DefaultCategory is used whenever a classifier label falls outside the
// known set. An unbounded label space would corrupt reference filtering.
const DefaultCategory = CategoryPipeline

var validCategories = map[string]bool{
	CategoryPipeline:         true,
	CategoryStagedProgress:   true,
	CategoryCanvas:           true,
	CategoryComparisonCards:  true,
	CategoryMatrix:           true,
	CategoryWheel:            true,
	CategoryConceptExplainer: true,
}

// Categories returns the fixed category set in a stable order.
func Categories() []string {
	return []string{
		CategoryPipeline,
		CategoryStagedProgress,
		CategoryCanvas,
		CategoryComparisonCards,
		CategoryMatrix,
		CategoryWheel,
		CategoryConceptExplainer,
	}
}

// NormalizeCategory folds and trims a raw classifier label and validates it
// against the fixed category set. The second return value reports whether
// the label was recognized; unrecognized labels coerce to DefaultCategory.
func NormalizeCategory(label string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(label))
	if validCategories[c] {
		return c, true
	}
	return DefaultCategory, false
}
