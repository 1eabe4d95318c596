// Package returns computes annualised projected returns for a snapshot.
//
// Manually entered financials use a valuation IRR, falling back to revenue
// CAGR when no valuation series exists. Projection-derived records use the
// implied exit valuation (final-year revenue times a multiple). Both are
// clamped to [MinReturn, MaxReturn] percent and rounded to cents of a
// percent. The engine never raises: missing or non-positive inputs yield nil.
package returns

import (
	"math"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/pkg/metrics"
)

// Clamp bounds for every projected return, in percent.
const (
	MinReturn = -100.0
	MaxReturn = 200.0
)

// Factors scales manual-branch returns by risk level.
type Factors struct {
	Low    float64
	Medium float64
	High   float64
}

// DefaultFactors are the stock risk haircuts.
var DefaultFactors = Factors{Low: 1.00, Medium: 0.75, High: 0.50} //nolint:gochecknoglobals // read-only defaults

func (f Factors) of(level model.RiskLevel) (float64, bool) {
	switch level {
	case model.RiskLow:
		return f.Low, true
	case model.RiskMedium:
		return f.Medium, true
	case model.RiskHigh:
		return f.High, true
	default:
		return 0, false
	}
}

// Detail is a projected return together with the method that produced it.
type Detail struct {
	Value  *float64
	Method model.ReturnMethod
}

// Projection reports whether the value came from the projection branch.
func (d Detail) Projection() bool {
	return d.Method == model.MethodProjectionIRR
}

// Engine computes projected returns. It is stateless after construction.
type Engine struct {
	factors Factors
}

// New builds an Engine with DefaultFactors unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{factors: DefaultFactors}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factors returns the configured adjustment factors.
func (e *Engine) Factors() Factors {
	return e.factors
}

// ProjectedReturn returns the unadjusted projected return or nil.
func (e *Engine) ProjectedReturn(s model.Snapshot) *float64 {
	return e.Detail(s).Value
}

// Detail dispatches on the record shape and reports which method was used.
func (e *Engine) Detail(s model.Snapshot) Detail {
	var d Detail
	if s.IsProjectionBased {
		d = projection(&s)
	} else {
		d = manual(&s)
	}
	metrics.RecordReturn(string(d.Method))
	return d
}

// Adjust applies the risk haircut to a manual-branch result. Projection
// results, unclassified risk and nil values pass through unchanged.
func (e *Engine) Adjust(d Detail, level model.RiskLevel) *float64 {
	if d.Value == nil || d.Projection() {
		return d.Value
	}
	f, ok := e.factors.of(level)
	if !ok {
		return d.Value
	}
	return finish(*d.Value * f)
}

// AdjustedReturn is Detail followed by Adjust.
func (e *Engine) AdjustedReturn(s model.Snapshot, level model.RiskLevel) *float64 {
	return e.Adjust(e.Detail(s), level)
}

// RevenueGrowth is the revenue CAGR of a snapshot regardless of its shape,
// or nil when the revenue series is incomplete.
func RevenueGrowth(s model.Snapshot) *float64 {
	return cagr(&s)
}

func manual(s *model.Snapshot) Detail {
	if s.CurrentValuation != nil && s.ExpectedFutureValuation != nil && s.YearsToFutureValuation != nil {
		return Detail{
			Value:  irr(*s.CurrentValuation, *s.ExpectedFutureValuation, *s.YearsToFutureValuation),
			Method: model.MethodValuationIRR,
		}
	}
	if v := cagr(s); v != nil {
		return Detail{Value: v, Method: model.MethodRevenueCAGR}
	}
	return Detail{Method: model.MethodNone}
}

func projection(s *model.Snapshot) Detail {
	none := Detail{Method: model.MethodNone}
	if s.ProjectedRevenueFinalYear == nil || s.ValuationMultiple == nil ||
		s.CurrentValuation == nil || s.YearsToProjection == nil {
		return none
	}
	if *s.ProjectedRevenueFinalYear <= 0 || *s.ValuationMultiple <= 0 {
		return none
	}
	future := *s.ProjectedRevenueFinalYear * *s.ValuationMultiple
	v := irr(*s.CurrentValuation, future, *s.YearsToProjection)
	if v == nil {
		return none
	}
	return Detail{Value: v, Method: model.MethodProjectionIRR}
}

// cagr uses current revenue (falling back to revenue), previous revenue and
// the period length in years, which defaults to 1 when absent.
func cagr(s *model.Snapshot) *float64 {
	current := s.CurrentRevenue
	if current == nil {
		current = s.Revenue
	}
	if current == nil || s.PreviousRevenue == nil {
		return nil
	}
	years := 1.0
	if s.TimeBetweenPeriods != nil {
		years = *s.TimeBetweenPeriods
	}
	return irr(*s.PreviousRevenue, *current, years)
}

// irr is the annualised growth from present to future over years, in percent.
func irr(present, future, years float64) *float64 {
	if present <= 0 || future <= 0 || years <= 0 {
		return nil
	}
	return finish((math.Pow(future/present, 1/years) - 1) * 100)
}

func finish(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	v = math.Max(MinReturn, math.Min(MaxReturn, v))
	v = math.Round(v*100) / 100
	return &v
}
