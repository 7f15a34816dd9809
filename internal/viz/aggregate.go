// Package viz renders the fixed catalog of business charts from the sales and
// marketing datasets. Aggregation is separated from rendering: the functions
// in this file are pure and deterministic so chart data can be tested without
// touching PNG output.
package viz

import (
	"sort"

	"github.com/brieflyhq/briefly/internal/dataset"
)

// LabeledValue is one labelled data point in an aggregated series.
type LabeledValue struct {
	// Label is the category label (region, quarter, channel).
	Label string
	// Value is the aggregated numeric value.
	Value float64
}

// ProductPerformance aggregates one product's totals.
type ProductPerformance struct {
	// Product is the product name.
	Product string
	// Revenue is the summed revenue across all records.
	Revenue float64
	// Units is the summed units sold across all records.
	Units int
}

// CampaignMetrics carries one campaign's budget and conversions pair for the
// dual-axis campaign chart. Campaigns are not aggregated - each record is one
// bar group.
type CampaignMetrics struct {
	// Name is the campaign name, truncated for axis labels.
	Name string
	// Budget is the campaign budget.
	Budget float64
	// Conversions is the campaign conversion count.
	Conversions int
}

// campaignLabelMax bounds campaign names on chart axes.
const campaignLabelMax = 25

// RevenueByRegion sums revenue per region. Output is sorted by region name so
// the result is independent of input order.
func RevenueByRegion(sales []dataset.SalesRecord) []LabeledValue {
	totals := make(map[string]float64)
	for _, s := range sales {
		totals[s.Region] += s.Revenue
	}
	return sortedValues(totals)
}

// RevenueByQuarter sums revenue per quarter, sorted by quarter label so the
// series reads in time order.
func RevenueByQuarter(sales []dataset.SalesRecord) []LabeledValue {
	totals := make(map[string]float64)
	for _, s := range sales {
		totals[s.Quarter] += s.Revenue
	}
	return sortedValues(totals)
}

// RevenueByProduct sums revenue and units per product, sorted by product name.
func RevenueByProduct(sales []dataset.SalesRecord) []ProductPerformance {
	type acc struct {
		revenue float64
		units   int
	}
	totals := make(map[string]*acc)
	for _, s := range sales {
		a, ok := totals[s.Product]
		if !ok {
			a = &acc{}
			totals[s.Product] = a
		}
		a.revenue += s.Revenue
		a.units += s.UnitsSold
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ProductPerformance, 0, len(names))
	for _, name := range names {
		out = append(out, ProductPerformance{
			Product: name,
			Revenue: totals[name].revenue,
			Units:   totals[name].units,
		})
	}
	return out
}

// CampaignPerformance returns one budget/conversions pair per campaign in
// dataset order, with names truncated for axis labels.
func CampaignPerformance(marketing []dataset.MarketingRecord) []CampaignMetrics {
	out := make([]CampaignMetrics, 0, len(marketing))
	for _, m := range marketing {
		name := m.CampaignName
		if len(name) > campaignLabelMax {
			name = name[:campaignLabelMax]
		}
		out = append(out, CampaignMetrics{
			Name:        name,
			Budget:      m.Budget,
			Conversions: m.Conversions,
		})
	}
	return out
}

// ConversionsByChannel sums conversions per marketing channel, sorted by
// channel name.
func ConversionsByChannel(marketing []dataset.MarketingRecord) []LabeledValue {
	totals := make(map[string]float64)
	for _, m := range marketing {
		totals[m.Channel] += float64(m.Conversions)
	}
	return sortedValues(totals)
}

// sortedValues flattens a totals map into label-sorted pairs.
func sortedValues(totals map[string]float64) []LabeledValue {
	labels := make([]string, 0, len(totals))
	for label := range totals {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]LabeledValue, 0, len(labels))
	for _, label := range labels {
		out = append(out, LabeledValue{Label: label, Value: totals[label]})
	}
	return out
}
