package returns_test

import (
	"math/rand"
	"testing"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/internal/domain/returns"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManualBranch(t *testing.T) {
	Convey("Given a manually entered snapshot", t, func() {
		engine := returns.New()

		Convey("When the valuation series is complete", func() {
			s := model.Snapshot{
				CurrentValuation:        model.Float(100),
				ExpectedFutureValuation: model.Float(400),
				YearsToFutureValuation:  model.Float(2),
				CurrentRevenue:          model.Float(150),
				PreviousRevenue:         model.Float(100),
			}
			d := engine.Detail(s)

			Convey("Then the valuation IRR wins over revenue growth", func() {
				So(d.Method, ShouldEqual, model.MethodValuationIRR)
				So(*d.Value, ShouldEqual, 100)
			})
		})

		Convey("When valuation inputs are present but not positive", func() {
			s := model.Snapshot{
				CurrentValuation:        model.Float(0),
				ExpectedFutureValuation: model.Float(400),
				YearsToFutureValuation:  model.Float(2),
				CurrentRevenue:          model.Float(150),
				PreviousRevenue:         model.Float(100),
			}

			Convey("Then the result is nil without falling back", func() {
				So(engine.ProjectedReturn(s), ShouldBeNil)
			})
		})

		Convey("When only the revenue series exists", func() {
			s := model.Snapshot{
				CurrentRevenue:     model.Float(121),
				PreviousRevenue:    model.Float(100),
				TimeBetweenPeriods: model.Float(2),
			}
			d := engine.Detail(s)

			Convey("Then revenue CAGR is used", func() {
				So(d.Method, ShouldEqual, model.MethodRevenueCAGR)
				So(*d.Value, ShouldEqual, 10)
			})

			Convey("And the period defaults to one year", func() {
				s.TimeBetweenPeriods = nil
				s.CurrentRevenue = nil
				s.Revenue = model.Float(150)
				So(*engine.ProjectedReturn(s), ShouldEqual, 50)
			})
		})

		Convey("When nothing usable is present", func() {
			d := engine.Detail(model.Snapshot{PreviousRevenue: model.Float(100)})

			Convey("Then there is no return", func() {
				So(d.Value, ShouldBeNil)
				So(d.Method, ShouldEqual, model.MethodNone)
			})
		})

		Convey("When growth is extreme", func() {
			up := model.Snapshot{
				CurrentValuation:        model.Float(1),
				ExpectedFutureValuation: model.Float(1000),
				YearsToFutureValuation:  model.Float(1),
			}

			Convey("Then the value is clamped", func() {
				So(*engine.ProjectedReturn(up), ShouldEqual, returns.MaxReturn)
			})
		})
	})
}

func TestProjectionBranch(t *testing.T) {
	Convey("Given a projection-based snapshot", t, func() {
		engine := returns.New()
		s := model.Snapshot{
			IsProjectionBased:         true,
			ProjectedRevenueFinalYear: model.Float(50),
			ValuationMultiple:         model.Float(4),
			CurrentValuation:          model.Float(100),
			YearsToProjection:         model.Float(1),
			// Manual fields must be ignored for this shape.
			ExpectedFutureValuation: model.Float(1000),
			YearsToFutureValuation:  model.Float(1),
		}

		Convey("When computing the return", func() {
			d := engine.Detail(s)

			Convey("Then the implied exit valuation drives the IRR", func() {
				So(d.Method, ShouldEqual, model.MethodProjectionIRR)
				So(*d.Value, ShouldEqual, 100)
			})

			Convey("And risk adjustment never applies", func() {
				So(*engine.Adjust(d, model.RiskHigh), ShouldEqual, 100)
			})
		})

		Convey("When any projection input is not positive", func() {
			for _, mutate := range []func(*model.Snapshot){
				func(m *model.Snapshot) { m.ProjectedRevenueFinalYear = model.Float(0) },
				func(m *model.Snapshot) { m.ValuationMultiple = model.Float(-2) },
				func(m *model.Snapshot) { m.CurrentValuation = nil },
				func(m *model.Snapshot) { m.YearsToProjection = model.Float(0) },
			} {
				c := s
				mutate(&c)
				So(engine.ProjectedReturn(c), ShouldBeNil)
			}
		})

		Convey("When revenue and multiple are both negative", func() {
			c := s
			c.ProjectedRevenueFinalYear = model.Float(-50)
			c.ValuationMultiple = model.Float(-4)

			Convey("Then the positive product is still rejected", func() {
				So(engine.ProjectedReturn(c), ShouldBeNil)
			})
		})
	})
}

func TestAdjust(t *testing.T) {
	Convey("Given a manual return of 100%", t, func() {
		engine := returns.New()
		d := returns.Detail{Value: model.Float(100), Method: model.MethodValuationIRR}

		Convey("Then each level applies its factor", func() {
			So(*engine.Adjust(d, model.RiskLow), ShouldEqual, 100)
			So(*engine.Adjust(d, model.RiskMedium), ShouldEqual, 75)
			So(*engine.Adjust(d, model.RiskHigh), ShouldEqual, 50)
			So(*engine.Adjust(d, model.RiskNone), ShouldEqual, 100)
		})

		Convey("Then custom factors are honoured", func() {
			custom := returns.New(returns.WithFactors(returns.Factors{Medium: 0.85, High: 0.7}))
			So(custom.Factors().Low, ShouldEqual, 1)
			So(*custom.Adjust(d, model.RiskMedium), ShouldEqual, 85)
			So(*custom.Adjust(d, model.RiskHigh), ShouldEqual, 70)
		})

		Convey("Then a nil value stays nil", func() {
			So(engine.Adjust(returns.Detail{Method: model.MethodNone}, model.RiskLow), ShouldBeNil)
		})
	})
}

func TestReturnBounds(t *testing.T) {
	Convey("Given random snapshots of both shapes", t, func() {
		engine := returns.New()
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic fixture data

		pick := func() *float64 {
			if rng.Intn(6) == 0 {
				return nil
			}
			return model.Float(rng.Float64()*2e6 - 2e5)
		}

		Convey("Then every non-nil result is within the clamp", func() {
			for i := 0; i < 5000; i++ {
				s := model.Snapshot{
					IsProjectionBased:         rng.Intn(2) == 0,
					CurrentValuation:          pick(),
					ExpectedFutureValuation:   pick(),
					YearsToFutureValuation:    pick(),
					CurrentRevenue:            pick(),
					PreviousRevenue:           pick(),
					TimeBetweenPeriods:        pick(),
					ProjectedRevenueFinalYear: pick(),
					ValuationMultiple:         pick(),
					YearsToProjection:         pick(),
				}
				if v := engine.ProjectedReturn(s); v != nil {
					So(*v, ShouldBeBetweenOrEqual, returns.MinReturn, returns.MaxReturn)
				}
				if g := returns.RevenueGrowth(s); g != nil {
					So(*g, ShouldBeBetweenOrEqual, returns.MinReturn, returns.MaxReturn)
				}
			}
		})
	})
}
