package rag

import (
	"strings"
	"testing"
)

func Test_ContextBuilder_EmptyResultsYieldsSentinel(t *testing.T) {
	t.Parallel()

	b := NewContextBuilder()
	block := b.Build(nil)

	if !block.Empty() {
		t.Fatal("expected sentinel block for empty result set")
	}
	if block.Text() != NoContextSentinel {
		t.Errorf("want sentinel text %q, got %q", NoContextSentinel, block.Text())
	}
}

func Test_ContextBuilder_RendersRankedNumberedList(t *testing.T) {
	t.Parallel()

	docs := []Document{
		{
			Rank:     1,
			Category: "sales",
			Content:  "Cloud Storage Pro sold strongly in Q1.",
			Score:    0.91,
			Attributes: map[string]string{
				"product": "Cloud Storage Pro",
				"revenue": "125000.00",
				"region":  "North America",
				"quarter": "Q1 2024",
			},
		},
		{
			Rank:     2,
			Category: "marketing",
			Content:  "Spring email push drove signups.",
			Score:    0.74,
			Attributes: map[string]string{
				"campaign_name": "Spring Push",
				"channel":       "Email",
				"budget":        "15000.00",
				"conversions":   "420",
			},
		},
	}

	block := NewContextBuilder().Build(docs)
	text := block.Text()

	if block.Empty() || block.Len() != 2 {
		t.Fatalf("want non-empty block of 2 results, got empty=%v len=%d", block.Empty(), block.Len())
	}
	for _, want := range []string{
		"1. [SALES] (Relevance: 0.91)",
		"2. [MARKETING] (Relevance: 0.74)",
		"Product: Cloud Storage Pro, Revenue: $125000.00, Region: North America, Quarter: Q1 2024",
		"Campaign: Spring Push, Channel: Email, Budget: $15000.00, Conversions: 420",
		"Cloud Storage Pro sold strongly in Q1.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("block missing %q:\n%s", want, text)
		}
	}
}

func Test_ContextBuilder_UnknownCategoryFallsBackToGeneric(t *testing.T) {
	t.Parallel()

	docs := []Document{
		{
			Rank:       1,
			Category:   "support",
			Content:    "Ticket volume rose 12%.",
			Score:      0.5,
			Attributes: map[string]string{"team": "Tier 1", "backlog": "34"},
		},
	}

	text := NewContextBuilder().Build(docs).Text()

	// Generic rendering is sorted key=value pairs.
	if !strings.Contains(text, "backlog=34, team=Tier 1") {
		t.Errorf("generic summary line missing: %s", text)
	}
}

func Test_ContextBuilder_RegisteredCategoryOverridesGeneric(t *testing.T) {
	t.Parallel()

	b := NewContextBuilder()
	b.Register("support", func(attrs map[string]string) string {
		return "Team: " + attrs["team"]
	})

	docs := []Document{
		{Rank: 1, Category: "support", Content: "x", Attributes: map[string]string{"team": "Tier 1"}},
	}

	text := b.Build(docs).Text()
	if !strings.Contains(text, "Team: Tier 1") {
		t.Errorf("custom formatter not applied: %s", text)
	}
}
