package viz

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/brieflyhq/briefly/internal/dataset"
)

func sampleSales() []dataset.SalesRecord {
	return []dataset.SalesRecord{
		{ID: 1, Product: "Cloud Storage Pro", Revenue: 100, UnitsSold: 10, Region: "North America", Quarter: "Q1 2024"},
		{ID: 2, Product: "Cloud Storage Pro", Revenue: 200, UnitsSold: 20, Region: "North America", Quarter: "Q2 2024"},
		{ID: 3, Product: "Analytics Suite", Revenue: 50, UnitsSold: 5, Region: "Europe", Quarter: "Q1 2024"},
	}
}

func sampleMarketing() []dataset.MarketingRecord {
	return []dataset.MarketingRecord{
		{ID: 1, CampaignName: "Spring Push", Channel: "Email", Budget: 1000, Conversions: 40},
		{ID: 2, CampaignName: "Summer Social Media Blitz Extended Edition", Channel: "Social Media", Budget: 2000, Conversions: 90},
		{ID: 3, CampaignName: "Retarget", Channel: "Email", Budget: 500, Conversions: 15},
	}
}

func Test_RevenueByRegion_Sums(t *testing.T) {
	t.Parallel()

	got := RevenueByRegion(sampleSales())
	want := []LabeledValue{
		{Label: "Europe", Value: 50},
		{Label: "North America", Value: 300},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func Test_RevenueByRegion_InputOrderInvariant(t *testing.T) {
	t.Parallel()

	base := sampleSales()
	want := RevenueByRegion(base)

	for i := 0; i < 10; i++ {
		shuffled := make([]dataset.SalesRecord, len(base))
		copy(shuffled, base)
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		if got := RevenueByRegion(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("aggregation depends on input order: %+v vs %+v", got, want)
		}
	}
}

func Test_RevenueByQuarter_TimeOrdered(t *testing.T) {
	t.Parallel()

	got := RevenueByQuarter(sampleSales())
	want := []LabeledValue{
		{Label: "Q1 2024", Value: 150},
		{Label: "Q2 2024", Value: 200},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func Test_RevenueByProduct_SumsRevenueAndUnits(t *testing.T) {
	t.Parallel()

	got := RevenueByProduct(sampleSales())
	want := []ProductPerformance{
		{Product: "Analytics Suite", Revenue: 50, Units: 5},
		{Product: "Cloud Storage Pro", Revenue: 300, Units: 30},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func Test_CampaignPerformance_PreservesOrderAndTruncates(t *testing.T) {
	t.Parallel()

	got := CampaignPerformance(sampleMarketing())
	if len(got) != 3 {
		t.Fatalf("want 3 campaigns, got %d", len(got))
	}
	if got[0].Name != "Spring Push" || got[0].Budget != 1000 || got[0].Conversions != 40 {
		t.Errorf("first campaign: %+v", got[0])
	}
	if len(got[1].Name) != 25 {
		t.Errorf("long campaign name not truncated to 25: %q (%d)", got[1].Name, len(got[1].Name))
	}
}

func Test_ConversionsByChannel_Sums(t *testing.T) {
	t.Parallel()

	got := ConversionsByChannel(sampleMarketing())
	want := []LabeledValue{
		{Label: "Email", Value: 55},
		{Label: "Social Media", Value: 90},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func Test_Aggregations_EmptyInput(t *testing.T) {
	t.Parallel()

	if got := RevenueByRegion(nil); len(got) != 0 {
		t.Errorf("want empty, got %+v", got)
	}
	if got := RevenueByProduct(nil); len(got) != 0 {
		t.Errorf("want empty, got %+v", got)
	}
	if got := ConversionsByChannel(nil); len(got) != 0 {
		t.Errorf("want empty, got %+v", got)
	}
}
