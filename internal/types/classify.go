package types

import (
	"strings"
	"unicode"
)

// ToolCategory groups tools on the Overview tab.
type ToolCategory string

const (
	CategoryProgramming ToolCategory = "Programming"
	CategoryAIML        ToolCategory = "AI/ML"
	CategoryData        ToolCategory = "Data"
	CategoryOther       ToolCategory = "Other"
)

type categoryRule struct {
	category ToolCategory
	keywords []string
}

// toolRules is ordered: a tool lands in the first category that matches.
var toolRules = []categoryRule{
	{CategoryProgramming, []string{"python", "sql", "r"}},
	{CategoryAIML, []string{"ai", "ml", "powerapp", "azure", "openai", "llm", "nlp", "bert", "tensorflow"}},
	{CategoryData, []string{"excel", "csv", "db", "database"}},
}

// ToolGroup is a category with its tools in declaration order.
type ToolGroup struct {
	Category ToolCategory `json:"category"`
	Tools    []string     `json:"tools"`
}

// CategorizeTools assigns every tool to exactly one category. Empty categories are omitted and
// the result follows the category order Programming, AI/ML, Data, Other.
func CategorizeTools(tools []string) []ToolGroup {
	buckets := make(map[ToolCategory][]string)
	for _, tool := range tools {
		c := categorize(tool)
		buckets[c] = append(buckets[c], tool)
	}

	var groups []ToolGroup
	for _, c := range []ToolCategory{CategoryProgramming, CategoryAIML, CategoryData, CategoryOther} {
		if len(buckets[c]) > 0 {
			groups = append(groups, ToolGroup{Category: c, Tools: buckets[c]})
		}
	}
	return groups
}

func categorize(tool string) ToolCategory {
	lower := strings.ToLower(tool)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, rule := range toolRules {
		for _, kw := range rule.keywords {
			if matchKeyword(lower, words, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// matchKeyword matches short keywords (two characters or fewer) as whole words so that "r" does
// not match every tool containing the letter.
func matchKeyword(lower string, words []string, kw string) bool {
	if len(kw) > 2 {
		return strings.Contains(lower, kw)
	}
	for _, w := range words {
		if w == kw {
			return true
		}
	}
	return false
}

// ImpactKind classifies an impact statement for styling.
type ImpactKind string

const (
	ImpactEfficiency ImpactKind = "efficiency"
	ImpactAccuracy   ImpactKind = "accuracy"
	ImpactGeneral    ImpactKind = "general"
)

// ImpactItem is an impact statement with its class.
type ImpactItem struct {
	Text string     `json:"text"`
	Kind ImpactKind `json:"kind"`
}

// ClassifyImpact classifies each statement: "efficiency" wins over "accuracy", anything else is
// general.
func ClassifyImpact(statements []string) []ImpactItem {
	items := make([]ImpactItem, 0, len(statements))
	for _, s := range statements {
		lower := strings.ToLower(s)
		kind := ImpactGeneral
		switch {
		case strings.Contains(lower, string(ImpactEfficiency)):
			kind = ImpactEfficiency
		case strings.Contains(lower, string(ImpactAccuracy)):
			kind = ImpactAccuracy
		}
		items = append(items, ImpactItem{Text: s, Kind: kind})
	}
	return items
}
