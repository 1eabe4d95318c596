// Package collection filters and orders enriched entities for listing.
package collection

import (
	"fmt"
	"strings"

	"github.com/okian/fundora/internal/domain/model"
)

// Tier buckets market growth: below 10% Low, below 20% Medium, else High.
type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

const (
	lowGrowthCeiling    = 10.0
	mediumGrowthCeiling = 20.0
)

// ParseTier accepts Low, Medium or High in any case.
func ParseTier(s string) (Tier, error) {
	for _, t := range []Tier{TierLow, TierMedium, TierHigh} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: market growth tier %q", ErrInvalidFilter, s)
}

// TierOf returns the tier of a market growth percentage.
func TierOf(growth float64) Tier {
	switch {
	case growth < lowGrowthCeiling:
		return TierLow
	case growth < mediumGrowthCeiling:
		return TierMedium
	default:
		return TierHigh
	}
}

// Range is an inclusive numeric range with optional bounds.
type Range struct {
	Min *float64
	Max *float64
}

func (r Range) contains(v float64) bool {
	return (r.Min == nil || v >= *r.Min) && (r.Max == nil || v <= *r.Max)
}

// Filters combine with AND. Zero values disable a filter. Any filter on a
// value excludes entities where that value is missing.
type Filters struct {
	Industry         string
	RiskSlider       *int
	RiskTolerance    model.RiskLevel
	MinReturn        *float64
	MinGrowthRate    *float64
	FundingAsk       *Range
	MarketGrowthTier Tier
	MinMarketGrowth  *float64
}

// Validate checks ranges and enumerations.
func (f Filters) Validate() error {
	if f.RiskSlider != nil && (*f.RiskSlider < 0 || *f.RiskSlider > 100) {
		return fmt.Errorf("%w: risk slider %d outside 0..100", ErrInvalidFilter, *f.RiskSlider)
	}
	if f.RiskTolerance != model.RiskNone && !f.RiskTolerance.Classified() {
		return fmt.Errorf("%w: risk tolerance %q", ErrInvalidFilter, f.RiskTolerance)
	}
	if f.FundingAsk != nil && f.FundingAsk.Min != nil && f.FundingAsk.Max != nil && *f.FundingAsk.Min > *f.FundingAsk.Max {
		return fmt.Errorf("%w: funding ask min above max", ErrInvalidFilter)
	}
	if f.MarketGrowthTier != "" {
		if _, err := ParseTier(string(f.MarketGrowthTier)); err != nil {
			return err
		}
	}
	return nil
}

// Match reports whether e passes every active filter.
func (f Filters) Match(e *model.EnrichedEntity) bool {
	if f.Industry != "" && !strings.EqualFold(strings.TrimSpace(e.Profile.Industry), strings.TrimSpace(f.Industry)) {
		return false
	}
	if f.RiskSlider != nil && !sliderAllows(*f.RiskSlider, e.Score.RiskLevel) {
		return false
	}
	if f.RiskTolerance != model.RiskNone && e.Score.RiskLevel != f.RiskTolerance {
		return false
	}
	if !atLeast(e.ProjectedReturn, f.MinReturn) {
		return false
	}
	if !atLeast(e.RevenueGrowth, f.MinGrowthRate) {
		return false
	}
	if f.FundingAsk != nil && (e.Profile.FundingAsk == nil || !f.FundingAsk.contains(*e.Profile.FundingAsk)) {
		return false
	}
	if f.MarketGrowthTier != "" && (e.Profile.MarketGrowthRate == nil || TierOf(*e.Profile.MarketGrowthRate) != f.MarketGrowthTier) {
		return false
	}
	return atLeast(e.Profile.MarketGrowthRate, f.MinMarketGrowth)
}

// sliderAllows maps a 0..100 appetite to the highest admitted level:
// up to 33 Low only, up to 66 Low and Medium, above that everything.
func sliderAllows(slider int, level model.RiskLevel) bool {
	switch {
	case slider <= 33:
		return level == model.RiskLow
	case slider <= 66:
		return level == model.RiskLow || level == model.RiskMedium
	default:
		return true
	}
}

func atLeast(v, min *float64) bool {
	if min == nil {
		return true
	}
	return v != nil && *v >= *min
}
