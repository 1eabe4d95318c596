package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRiskLevel(t *testing.T) {
	convey.Convey("Given risk levels", t, func() {
		convey.Convey("When ordering by severity", func() {
			convey.Convey("Then unclassified sorts after High", func() {
				convey.So(model.RiskLow.Severity(), convey.ShouldBeLessThan, model.RiskMedium.Severity())
				convey.So(model.RiskMedium.Severity(), convey.ShouldBeLessThan, model.RiskHigh.Severity())
				convey.So(model.RiskHigh.Severity(), convey.ShouldBeLessThan, model.RiskNone.Severity())
				convey.So(model.RiskNone.Classified(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When parsing user input", func() {
			l, ok := model.ParseRiskLevel(" medium ")
			_, bad := model.ParseRiskLevel("extreme")

			convey.Convey("Then case and padding are ignored", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(l, convey.ShouldEqual, model.RiskMedium)
				convey.So(bad, convey.ShouldBeFalse)
			})
		})
	})
}

func TestScoreResultJSON(t *testing.T) {
	convey.Convey("Given a score result without data", t, func() {
		res := model.ScoreResult{RiskLevel: model.RiskNone, Reward: model.RewardNA, Model: "zprime"}

		convey.Convey("When it is encoded", func() {
			b, err := json.Marshal(res)

			convey.Convey("Then missing values are null and reward is N/A", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldContainSubstring, `"risk_level":null`)
				convey.So(string(b), convey.ShouldContainSubstring, `"risk_score":null`)
				convey.So(string(b), convey.ShouldContainSubstring, `"reward_potential":"N/A"`)
			})
		})

		convey.Convey("When the reward is valid", func() {
			res.Reward = model.RewardOf(4)
			res.RiskLevel = model.RiskLow
			b, err := json.Marshal(res)

			convey.Convey("Then it is a number", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldContainSubstring, `"reward_potential":4`)
				convey.So(string(b), convey.ShouldContainSubstring, `"risk_level":"Low"`)
				convey.So(res.Reward.String(), convey.ShouldEqual, "4")
			})
		})
	})
}

func TestSnapshotSales(t *testing.T) {
	convey.Convey("Given a snapshot with only current revenue", t, func() {
		s := model.Snapshot{CurrentRevenue: model.Float(120)}

		convey.Convey("Then sales falls back to it", func() {
			convey.So(*s.Sales(), convey.ShouldEqual, 120)
			s.Revenue = model.Float(90)
			convey.So(*s.Sales(), convey.ShouldEqual, 90)
		})
	})

	convey.Convey("Given confidence tiers", t, func() {
		convey.So(model.ConfidenceHigh.Rank(), convey.ShouldBeGreaterThan, model.ConfidenceMedium.Rank())
		convey.So(model.ConfidenceLow.Rank(), convey.ShouldBeGreaterThan, model.ConfidenceUnknown.Rank())
	})
}
