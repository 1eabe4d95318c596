// Package scoring classifies financial distress risk and reward potential
// from a financial snapshot.
//
// Risk is computed by a named RiskModel strategy. The canonical strategy is
// Altman's Z' for private companies ("zprime"); the original Altman Z
// ("classic") remains selectable because older dashboards were built on it.
package scoring

import (
	"math"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/pkg/metrics"
)

// Model names accepted by ModelByName.
const (
	ModelZPrime  = "zprime"
	ModelClassic = "classic"
)

// RiskModel turns a snapshot into a Z value and maps Z to a 1..5 risk score.
type RiskModel interface {
	Name() string
	// Z computes the weighted ratio sum. ok is false when the snapshot lacks
	// positive total assets.
	Z(s *model.Snapshot) (z float64, ok bool)
	// Classify maps z to 1 (safest) .. 5 (most distressed). Higher z never
	// yields a higher score.
	Classify(z float64) int
}

// Engine computes ScoreResults with one risk model. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	risk RiskModel
}

// New builds an Engine. Without options it uses the zprime model.
func New(opts ...Option) *Engine {
	e := &Engine{risk: zPrime{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModelName returns the active risk model name.
func (e *Engine) ModelName() string {
	return e.risk.Name()
}

// Score classifies risk and reward. Insufficient data yields RiskNone, a
// nil score and an N/A reward; it is never an error.
func (e *Engine) Score(s model.Snapshot) model.ScoreResult {
	res := model.ScoreResult{
		RiskLevel: model.RiskNone,
		Reward:    Reward(s),
		Model:     e.risk.Name(),
	}

	z, ok := e.risk.Z(&s)
	if ok && !math.IsNaN(z) && !math.IsInf(z, 0) {
		score := e.risk.Classify(z)
		res.RiskScore = &score
		res.RiskLevel = LevelForScore(score)
		res.Z = &z
	}

	metrics.RecordScore(res.Model, levelLabel(res.RiskLevel))
	return res
}

// LevelForScore collapses a 1..5 score into a level: 1-2 Low, 3 Medium,
// 4-5 High. Anything else is RiskNone.
func LevelForScore(score int) model.RiskLevel {
	switch score {
	case 1, 2:
		return model.RiskLow
	case 3:
		return model.RiskMedium
	case 4, 5:
		return model.RiskHigh
	default:
		return model.RiskNone
	}
}

// Reward maps return on equity to a 1..5 scale. Equity is total assets
// minus total liabilities, and absent figures count as zero, so the result
// is N/A exactly when equity is not positive.
func Reward(s model.Snapshot) model.Reward {
	equity := value(s.TotalAssets) - value(s.TotalLiabilities)
	if equity <= 0 {
		return model.RewardNA
	}
	roe := value(s.NetIncome) * 100 / equity
	switch {
	case math.IsNaN(roe) || math.IsInf(roe, 0):
		return model.RewardNA
	case roe >= 20:
		return model.RewardOf(5)
	case roe >= 15:
		return model.RewardOf(4)
	case roe >= 10:
		return model.RewardOf(3)
	case roe >= 5:
		return model.RewardOf(2)
	default:
		return model.RewardOf(1)
	}
}

// ModelByName resolves a risk model.
func ModelByName(name string) (RiskModel, error) {
	switch name {
	case "", ModelZPrime:
		return zPrime{}, nil
	case ModelClassic:
		return classic{}, nil
	default:
		return nil, ErrUnknownModel
	}
}

func levelLabel(l model.RiskLevel) string {
	if l == model.RiskNone {
		return "none"
	}
	return string(l)
}

// value returns *p, or 0 when p is nil. Callers use it only for terms whose
// absence is documented to contribute nothing.
func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func assets(s *model.Snapshot) (float64, bool) {
	if s.TotalAssets == nil || *s.TotalAssets <= 0 {
		return 0, false
	}
	return *s.TotalAssets, true
}

func workingCapital(s *model.Snapshot) float64 {
	if s.CurrentAssets == nil || s.CurrentLiabilities == nil {
		return 0
	}
	return *s.CurrentAssets - *s.CurrentLiabilities
}
