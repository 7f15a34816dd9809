package rag

import (
	"fmt"
	"sort"
	"strings"
)

// NoContextSentinel is the context block text used when retrieval matched
// nothing. Downstream stages treat it as valid (degraded) input, not a
// failure - the agent still runs and reports the absence of data.
const NoContextSentinel = "No relevant information found."

// AttributeFormatter renders the category-specific summary line appended to
// each result in the context block. It receives the document's attribute map
// and returns a single line, or "" to omit the line.
type AttributeFormatter func(attrs map[string]string) string

// ContextBlock is the ordered, prompt-ready rendering of a retrieval result
// set. It is immutable once built and consumed exactly once per pipeline run.
type ContextBlock struct {
	// text is the rendered block.
	text string

	// results is the number of documents included. Zero means the sentinel.
	results int
}

// Text returns the rendered context block string.
func (b ContextBlock) Text() string { return b.text }

// Empty reports whether the block is the "no information found" sentinel.
func (b ContextBlock) Empty() bool { return b.results == 0 }

// Len returns the number of documents rendered into the block.
func (b ContextBlock) Len() int { return b.results }

// ContextBuilder renders retrieval results into a ContextBlock using a
// registry of per-category attribute formatters. New document categories are
// added by registering a formatter - no formatting code changes required.
type ContextBuilder struct {
	// formatters maps category tag to its summary-line formatter.
	formatters map[string]AttributeFormatter
}

// NewContextBuilder constructs a ContextBuilder pre-registered with the
// shipped sales and marketing formatters.
func NewContextBuilder() *ContextBuilder {
	b := &ContextBuilder{formatters: make(map[string]AttributeFormatter)}
	b.Register("sales", formatSalesAttributes)
	b.Register("marketing", formatMarketingAttributes)
	return b
}

// Register adds or replaces the attribute formatter for a category tag.
func (b *ContextBuilder) Register(category string, f AttributeFormatter) {
	b.formatters[category] = f
}

// Build renders docs into a ContextBlock. Documents must already be ranked
// (the retriever assigns Rank); each entry is rendered as
//
//	rank. [CATEGORY] (Relevance: 0.87)
//	   <content>
//	   <category-specific summary line>
//
// An empty doc set produces the NoContextSentinel block.
func (b *ContextBuilder) Build(docs []Document) ContextBlock {
	if len(docs) == 0 {
		return ContextBlock{text: NoContextSentinel}
	}

	var sb strings.Builder
	sb.WriteString("Retrieved relevant information:\n")

	for _, doc := range docs {
		fmt.Fprintf(&sb, "\n%d. [%s] (Relevance: %.2f)\n", doc.Rank, strings.ToUpper(doc.Category), doc.Score)
		fmt.Fprintf(&sb, "   %s\n", doc.Content)

		if line := b.summaryLine(doc); line != "" {
			fmt.Fprintf(&sb, "   %s\n", line)
		}
	}

	return ContextBlock{text: sb.String(), results: len(docs)}
}

// summaryLine resolves the formatter for the document's category, falling
// back to a generic key=value rendering for unregistered categories.
func (b *ContextBuilder) summaryLine(doc Document) string {
	if f, ok := b.formatters[doc.Category]; ok {
		return f(doc.Attributes)
	}
	return formatGenericAttributes(doc.Attributes)
}

// formatSalesAttributes renders the sales summary line.
func formatSalesAttributes(attrs map[string]string) string {
	return fmt.Sprintf("Product: %s, Revenue: $%s, Region: %s, Quarter: %s",
		attrs["product"], attrs["revenue"], attrs["region"], attrs["quarter"])
}

// formatMarketingAttributes renders the marketing summary line.
func formatMarketingAttributes(attrs map[string]string) string {
	return fmt.Sprintf("Campaign: %s, Channel: %s, Budget: $%s, Conversions: %s",
		attrs["campaign_name"], attrs["channel"], attrs["budget"], attrs["conversions"])
}

// formatGenericAttributes renders attributes as sorted key=value pairs so
// unknown categories still surface their metadata deterministically.
func formatGenericAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, attrs[k]))
	}
	return strings.Join(parts, ", ")
}
