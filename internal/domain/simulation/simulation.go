// Package simulation projects an investment forward with annual compounding.
//
// All arithmetic is carried out on decimals so that a zero rate returns the
// principal unchanged and round figures stay round.
package simulation

import (
	"fmt"
	"math"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/pkg/metrics"
	"github.com/shopspring/decimal"
)

// DefaultRate is the annual growth used when an entity carries no return.
const DefaultRate = 0.07

// MaxYears is the longest horizon Simulate accepts.
const MaxYears = 100

const (
	places = 2
	// carry is the precision kept between compounding periods.
	carry = 10
)

// YearRow is one compounding period.
type YearRow struct {
	Year   int             `json:"year"`
	Start  decimal.Decimal `json:"start"`
	Growth decimal.Decimal `json:"growth"`
	End    decimal.Decimal `json:"end"`
}

// Point is one value of the growth chart. Year 0 is the principal.
type Point struct {
	Year  int             `json:"year"`
	Value decimal.Decimal `json:"value"`
}

// Result holds a completed simulation. Monetary values are rounded to cents.
type Result struct {
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"rate"`
	Years      int             `json:"years"`
	FinalValue decimal.Decimal `json:"final_value"`
	TotalGain  decimal.Decimal `json:"total_gain"`
	ROIPercent decimal.Decimal `json:"roi_percent"`
	Yearly     []YearRow       `json:"yearly"`
	Chart      []Point         `json:"chart"`
}

// Simulate compounds principal at annualRate (a fraction, 0.07 = 7%) for
// the given number of whole years.
func Simulate(principal, annualRate float64, years int) (Result, error) {
	switch {
	case math.IsNaN(principal) || math.IsInf(principal, 0) || principal <= 0:
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidPrincipal, principal)
	case years < 1 || years > MaxYears:
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidYears, years)
	case math.IsNaN(annualRate) || math.IsInf(annualRate, 0) || annualRate < -1:
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRate, annualRate)
	}

	p := decimal.NewFromFloat(principal)
	r := decimal.NewFromFloat(annualRate)

	res := Result{
		Principal: p.Round(places),
		Rate:      r,
		Years:     years,
		Yearly:    make([]YearRow, 0, years),
		Chart:     make([]Point, 0, years+1),
	}
	res.Chart = append(res.Chart, Point{Year: 0, Value: p.Round(places)})

	value := p
	for y := 1; y <= years; y++ {
		growth := value.Mul(r)
		end := value.Add(growth)
		res.Yearly = append(res.Yearly, YearRow{
			Year:   y,
			Start:  value.Round(places),
			Growth: growth.Round(places),
			End:    end.Round(places),
		})
		res.Chart = append(res.Chart, Point{Year: y, Value: end.Round(places)})
		value = end.Round(carry)
	}

	gain := value.Sub(p)
	res.FinalValue = value.Round(places)
	res.TotalGain = gain.Round(places)
	res.ROIPercent = gain.Div(p).Mul(decimal.NewFromInt(100)).Round(places)

	metrics.RecordSimulation()
	return res, nil
}

// RateFor returns the growth rate to simulate an entity with: its
// risk-adjusted projected return as a fraction, or fallback when it has none.
func RateFor(e model.EnrichedEntity, fallback float64) float64 {
	if e.AdjustedReturn != nil {
		return *e.AdjustedReturn / 100
	}
	if e.ProjectedReturn != nil {
		return *e.ProjectedReturn / 100
	}
	return fallback
}
