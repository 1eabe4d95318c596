// Package model contains the domain types passed between the analytics
// engines, the interaction recorder and the adapters.
package model

// Snapshot is a point-in-time set of financial figures for one subject.
// A nil field means the figure is absent; formulas state how they treat
// absence and never read it as zero.
type Snapshot struct {
	SubjectID         string `json:"subject_id" koanf:"subject_id"`
	IsProjectionBased bool   `json:"is_projection_based" koanf:"is_projection_based"`

	TotalAssets        *float64 `json:"total_assets,omitempty" koanf:"total_assets"`
	TotalLiabilities   *float64 `json:"total_liabilities,omitempty" koanf:"total_liabilities"`
	CurrentAssets      *float64 `json:"current_assets,omitempty" koanf:"current_assets"`
	CurrentLiabilities *float64 `json:"current_liabilities,omitempty" koanf:"current_liabilities"`
	RetainedEarnings   *float64 `json:"retained_earnings,omitempty" koanf:"retained_earnings"`
	ShareholderEquity  *float64 `json:"shareholder_equity,omitempty" koanf:"shareholder_equity"`

	Revenue   *float64 `json:"revenue,omitempty" koanf:"revenue"`
	NetIncome *float64 `json:"net_income,omitempty" koanf:"net_income"`
	EBIT      *float64 `json:"ebit,omitempty" koanf:"ebit"`

	CurrentRevenue     *float64 `json:"current_revenue,omitempty" koanf:"current_revenue"`
	PreviousRevenue    *float64 `json:"previous_revenue,omitempty" koanf:"previous_revenue"`
	TimeBetweenPeriods *float64 `json:"time_between_periods,omitempty" koanf:"time_between_periods"`

	CurrentValuation        *float64 `json:"current_valuation,omitempty" koanf:"current_valuation"`
	ExpectedFutureValuation *float64 `json:"expected_future_valuation,omitempty" koanf:"expected_future_valuation"`
	YearsToFutureValuation  *float64 `json:"years_to_future_valuation,omitempty" koanf:"years_to_future_valuation"`

	ProjectedRevenueFinalYear *float64 `json:"projected_revenue_final_year,omitempty" koanf:"projected_revenue_final_year"`
	ValuationMultiple         *float64 `json:"valuation_multiple,omitempty" koanf:"valuation_multiple"`
	YearsToProjection         *float64 `json:"years_to_projection,omitempty" koanf:"years_to_projection"`
}

// Sales is the revenue figure used by ratio formulas: Revenue, falling
// back to CurrentRevenue.
func (s *Snapshot) Sales() *float64 {
	if s.Revenue != nil {
		return s.Revenue
	}
	return s.CurrentRevenue
}

// Confidence grades how trustworthy the source figures are.
type Confidence string

const (
	ConfidenceHigh    Confidence = "High"
	ConfidenceMedium  Confidence = "Medium"
	ConfidenceLow     Confidence = "Low"
	ConfidenceUnknown Confidence = ""
)

// Rank orders confidence tiers; unknown ranks lowest.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Profile carries the descriptive attributes of a subject used for
// presentation, filtering and ownership checks.
type Profile struct {
	CompanyName      string     `json:"company_name" koanf:"company_name"`
	Industry         string     `json:"industry" koanf:"industry"`
	OwnerID          string     `json:"-" koanf:"owner_id"`
	FundingAsk       *float64   `json:"funding_ask,omitempty" koanf:"funding_ask"`
	MarketGrowthRate *float64   `json:"market_growth_rate,omitempty" koanf:"market_growth_rate"`
	Confidence       Confidence `json:"data_source_confidence,omitempty" koanf:"data_source_confidence"`
}

// Subject is a snapshot together with its profile, as stored in the catalog.
type Subject struct {
	Snapshot Snapshot `koanf:"snapshot"`
	Profile  Profile  `koanf:"profile"`
}

// Float returns a pointer to v. It keeps literal snapshots readable.
func Float(v float64) *float64 {
	return &v
}
