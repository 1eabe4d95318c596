package scoring

import "github.com/okian/fundora/internal/domain/model"

// zPrime is Altman's Z' for private companies:
//
//	Z' = 0.717·WC/TA + 0.847·RE/TA + 3.107·EBIT/TA + 0.420·BVE/TL + 0.998·Sales/TA
//
// WC is current assets minus current liabilities and contributes 0 unless
// both are present. BVE is total assets minus total liabilities; the BVE/TL
// term is 0 when liabilities are absent or not positive. Absent retained
// earnings, EBIT or sales contribute 0.
type zPrime struct{}

func (zPrime) Name() string { return ModelZPrime }

func (zPrime) Z(s *model.Snapshot) (float64, bool) {
	ta, ok := assets(s)
	if !ok {
		return 0, false
	}

	var leverage float64
	if s.TotalLiabilities != nil && *s.TotalLiabilities > 0 {
		leverage = (ta - *s.TotalLiabilities) / *s.TotalLiabilities
	}

	z := 0.717*(workingCapital(s)/ta) +
		0.847*(value(s.RetainedEarnings)/ta) +
		3.107*(value(s.EBIT)/ta) +
		0.420*leverage +
		0.998*(value(s.Sales())/ta)
	return z, true
}

func (zPrime) Classify(z float64) int {
	switch {
	case z > 3.5:
		return 1
	case z > 2.9:
		return 2
	case z > 1.8:
		return 3
	case z > 1.23:
		return 4
	default:
		return 5
	}
}

// classic is the original Altman Z for public manufacturers:
//
//	Z = 1.2·WC/TA + 1.4·RE/TA + 3.3·EBIT/TA + 0.6·Equity/TL + 1.0·Sales/TA
//
// Equity is shareholder equity, falling back to total assets minus total
// liabilities. When liabilities are absent or not positive the equity term
// uses the ratio 1.0. It only produces scores 1, 3 and 5.
type classic struct{}

func (classic) Name() string { return ModelClassic }

func (classic) Z(s *model.Snapshot) (float64, bool) {
	ta, ok := assets(s)
	if !ok {
		return 0, false
	}

	leverage := 1.0
	if s.TotalLiabilities != nil && *s.TotalLiabilities > 0 {
		equity := ta - *s.TotalLiabilities
		if s.ShareholderEquity != nil {
			equity = *s.ShareholderEquity
		}
		leverage = equity / *s.TotalLiabilities
	}

	z := 1.2*(workingCapital(s)/ta) +
		1.4*(value(s.RetainedEarnings)/ta) +
		3.3*(value(s.EBIT)/ta) +
		0.6*leverage +
		1.0*(value(s.Sales())/ta)
	return z, true
}

func (classic) Classify(z float64) int {
	switch {
	case z > 2.99:
		return 1
	case z > 1.81:
		return 3
	default:
		return 5
	}
}
