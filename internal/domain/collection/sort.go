package collection

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/fundora/internal/domain/model"
)

// SortKey selects the listing order. SortNone keeps the input order.
type SortKey string

const (
	SortNone                SortKey = ""
	SortProjectedReturnAsc  SortKey = "projectedReturnAsc"
	SortProjectedReturnDesc SortKey = "projectedReturnDesc"
	SortRewardDesc          SortKey = "rewardDesc"
	SortRiskAsc             SortKey = "riskAsc"
	SortConfidenceDesc      SortKey = "confidenceDesc"
	SortCompanyName         SortKey = "companyName"
	SortFundingAskAsc       SortKey = "fundingAskAsc"
	SortFundingAskDesc      SortKey = "fundingAskDesc"
	SortMarketGrowthAsc     SortKey = "marketGrowthAsc"
	SortMarketGrowthDesc    SortKey = "marketGrowthDesc"
)

var sortKeys = []SortKey{
	SortProjectedReturnAsc, SortProjectedReturnDesc, SortRewardDesc, SortRiskAsc,
	SortConfidenceDesc, SortCompanyName, SortFundingAskAsc, SortFundingAskDesc,
	SortMarketGrowthAsc, SortMarketGrowthDesc,
}

// SortKeys lists every supported key.
func SortKeys() []SortKey {
	return slices.Clone(sortKeys)
}

// ParseSortKey matches s against the supported keys ignoring case. An empty
// string yields SortNone.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortNone, nil
	}
	for _, k := range sortKeys {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return SortNone, fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

// FilterAndSort returns the entities passing f, ordered by key. The input
// slice is not modified and ties keep their input order.
func FilterAndSort(entities []model.EnrichedEntity, f Filters, key SortKey) []model.EnrichedEntity {
	out := make([]model.EnrichedEntity, 0, len(entities))
	for i := range entities {
		if f.Match(&entities[i]) {
			out = append(out, entities[i])
		}
	}
	if less := comparator(key); less != nil {
		slices.SortStableFunc(out, less)
	}
	return out
}

func comparator(key SortKey) func(a, b model.EnrichedEntity) int {
	switch key {
	case SortProjectedReturnAsc:
		return func(a, b model.EnrichedEntity) int { return ascMissingLast(a.ProjectedReturn, b.ProjectedReturn) }
	case SortProjectedReturnDesc:
		return func(a, b model.EnrichedEntity) int { return descMissingLast(a.ProjectedReturn, b.ProjectedReturn) }
	case SortRewardDesc:
		return func(a, b model.EnrichedEntity) int {
			return descMissingLast(rewardValue(a.Score.Reward), rewardValue(b.Score.Reward))
		}
	case SortRiskAsc:
		return func(a, b model.EnrichedEntity) int {
			return cmp.Compare(a.Score.RiskLevel.Severity(), b.Score.RiskLevel.Severity())
		}
	case SortConfidenceDesc:
		// Unknown confidence ranks 0 and so lands last.
		return func(a, b model.EnrichedEntity) int {
			return cmp.Compare(b.Profile.Confidence.Rank(), a.Profile.Confidence.Rank())
		}
	case SortCompanyName:
		return func(a, b model.EnrichedEntity) int {
			an, bn := strings.TrimSpace(a.Profile.CompanyName), strings.TrimSpace(b.Profile.CompanyName)
			switch {
			case an == "" && bn == "":
				return 0
			case an == "":
				return 1
			case bn == "":
				return -1
			}
			return cmp.Compare(strings.ToLower(an), strings.ToLower(bn))
		}
	case SortFundingAskAsc:
		return func(a, b model.EnrichedEntity) int { return ascMissingLast(a.Profile.FundingAsk, b.Profile.FundingAsk) }
	case SortFundingAskDesc:
		return func(a, b model.EnrichedEntity) int { return descMissingLast(a.Profile.FundingAsk, b.Profile.FundingAsk) }
	case SortMarketGrowthAsc:
		return func(a, b model.EnrichedEntity) int {
			return ascMissingLast(a.Profile.MarketGrowthRate, b.Profile.MarketGrowthRate)
		}
	case SortMarketGrowthDesc:
		return func(a, b model.EnrichedEntity) int {
			return descMissingLast(a.Profile.MarketGrowthRate, b.Profile.MarketGrowthRate)
		}
	default:
		return nil
	}
}

func rewardValue(r model.Reward) *float64 {
	if !r.Valid {
		return nil
	}
	return &r.Value
}

func ascMissingLast(a, b *float64) int {
	if c, done := missing(a, b); done {
		return c
	}
	return cmp.Compare(*a, *b)
}

func descMissingLast(a, b *float64) int {
	if c, done := missing(a, b); done {
		return c
	}
	return cmp.Compare(*b, *a)
}

// missing orders nil after any value, whatever the direction.
func missing(a, b *float64) (int, bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return 1, true
	case b == nil:
		return -1, true
	}
	return 0, false
}
