// Package dataset defines the sales and marketing record types that feed the
// report pipeline, plus JSON loaders for the on-disk dataset files. The same
// records back both the vector-store ingestion (as documents) and the chart
// generator (as raw aggregation input).
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// SalesRecord is a single sales transaction row.
type SalesRecord struct {
	// ID is the unique record identifier within the sales dataset.
	ID int `json:"id"`
	// Product is the product name sold.
	Product string `json:"product"`
	// Category is the product category (e.g. "Software", "Hardware").
	Category string `json:"category"`
	// Revenue is the transaction revenue in dollars.
	Revenue float64 `json:"revenue"`
	// UnitsSold is the number of units in the transaction.
	UnitsSold int `json:"units_sold"`
	// Region is the sales region (e.g. "North America").
	Region string `json:"region"`
	// Quarter is the fiscal quarter label (e.g. "Q1 2024").
	Quarter string `json:"quarter"`
	// CustomerSegment is the buyer segment (e.g. "Enterprise").
	CustomerSegment string `json:"customer_segment"`
	// SalesRep is the responsible sales representative.
	SalesRep string `json:"sales_rep"`
	// Description is the free-text summary embedded into the vector store.
	Description string `json:"description"`
}

// MarketingRecord is a single marketing campaign row.
type MarketingRecord struct {
	// ID is the unique record identifier within the marketing dataset.
	ID int `json:"id"`
	// CampaignName is the campaign's display name.
	CampaignName string `json:"campaign_name"`
	// Channel is the marketing channel (e.g. "Social Media", "Email").
	Channel string `json:"channel"`
	// Budget is the campaign budget in dollars.
	Budget float64 `json:"budget"`
	// Impressions is the total ad impressions served.
	Impressions int `json:"impressions"`
	// Clicks is the total click count.
	Clicks int `json:"clicks"`
	// Conversions is the total conversion count.
	Conversions int `json:"conversions"`
	// Quarter is the fiscal quarter label (e.g. "Q1 2024").
	Quarter string `json:"quarter"`
	// TargetSegment is the audience segment targeted.
	TargetSegment string `json:"target_segment"`
	// Description is the free-text summary embedded into the vector store.
	Description string `json:"description"`
}

// LoadSales reads and parses the sales dataset JSON file.
func LoadSales(path string) ([]SalesRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read sales file %s: %w", path, err)
	}
	var records []SalesRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("dataset: parse sales file %s: %w", path, err)
	}
	return records, nil
}

// LoadMarketing reads and parses the marketing dataset JSON file.
func LoadMarketing(path string) ([]MarketingRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read marketing file %s: %w", path, err)
	}
	var records []MarketingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("dataset: parse marketing file %s: %w", path, err)
	}
	return records, nil
}

// Attributes returns the metadata map stored alongside the record's document
// in the vector store. Numeric fields are stringified so the payload stays a
// flat string map.
func (s SalesRecord) Attributes() map[string]string {
	return map[string]string{
		"id":               fmt.Sprintf("%d", s.ID),
		"product":          s.Product,
		"product_category": s.Category,
		"revenue":          fmt.Sprintf("%.2f", s.Revenue),
		"units_sold":       fmt.Sprintf("%d", s.UnitsSold),
		"region":           s.Region,
		"quarter":          s.Quarter,
		"customer_segment": s.CustomerSegment,
		"sales_rep":        s.SalesRep,
	}
}

// Attributes returns the metadata map stored alongside the record's document
// in the vector store.
func (m MarketingRecord) Attributes() map[string]string {
	return map[string]string{
		"id":             fmt.Sprintf("%d", m.ID),
		"campaign_name":  m.CampaignName,
		"channel":        m.Channel,
		"budget":         fmt.Sprintf("%.2f", m.Budget),
		"impressions":    fmt.Sprintf("%d", m.Impressions),
		"clicks":         fmt.Sprintf("%d", m.Clicks),
		"conversions":    fmt.Sprintf("%d", m.Conversions),
		"quarter":        m.Quarter,
		"target_segment": m.TargetSegment,
	}
}
