package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCategorizeTools(t *testing.T) {
	tools := []string{"Python", "PostgreSQL", "R", "Azure OpenAI", "PowerApps", "Excel", "Power BI", "Tableau", "scikit-learn"}

	got := CategorizeTools(tools)
	want := []ToolGroup{
		{Category: CategoryProgramming, Tools: []string{"Python", "PostgreSQL", "R"}},
		{Category: CategoryAIML, Tools: []string{"Azure OpenAI", "PowerApps"}},
		{Category: CategoryData, Tools: []string{"Excel"}},
		{Category: CategoryOther, Tools: []string{"Power BI", "Tableau", "scikit-learn"}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CategorizeTools() mismatch (-want +got):\n%s", diff)
	}
}

func TestCategorizeTools_ShortKeywordsMatchWholeWords(t *testing.T) {
	// "r" must not pull every tool containing the letter into Programming.
	got := CategorizeTools([]string{"Tableau Server", "R Studio", "ML Flow"})
	want := []ToolGroup{
		{Category: CategoryProgramming, Tools: []string{"R Studio"}},
		{Category: CategoryAIML, Tools: []string{"ML Flow"}},
		{Category: CategoryOther, Tools: []string{"Tableau Server"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CategorizeTools() mismatch (-want +got):\n%s", diff)
	}
}

func TestCategorizeTools_FirstMatchingCategoryOnly(t *testing.T) {
	// "SQL Database" matches Programming and Data; it is listed once, under Programming.
	// "Azure SQL" matches Programming before AI/ML.
	got := CategorizeTools([]string{"SQL Database", "Azure SQL", "TensorFlow", "BERT"})
	want := []ToolGroup{
		{Category: CategoryProgramming, Tools: []string{"SQL Database", "Azure SQL"}},
		{Category: CategoryAIML, Tools: []string{"TensorFlow", "BERT"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CategorizeTools() mismatch (-want +got):\n%s", diff)
	}
}

func TestCategorizeTools_Empty(t *testing.T) {
	assert.Nil(t, CategorizeTools(nil))
}

func TestClassifyImpact(t *testing.T) {
	got := ClassifyImpact([]string{
		"Improved processing efficiency by 60%",
		"Reached 94% Accuracy on held-out data",
		"Efficiency and accuracy both improved",
		"Delivered $2M in insights",
	})

	want := []ImpactKind{ImpactEfficiency, ImpactAccuracy, ImpactEfficiency, ImpactGeneral}
	for i, item := range got {
		assert.Equal(t, want[i], item.Kind, item.Text)
	}
}
