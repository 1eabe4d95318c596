package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RiskLevel is the qualitative risk classification. RiskNone means the
// snapshot did not carry enough data to classify.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
	RiskNone   RiskLevel = ""
)

// Severity orders levels Low < Medium < High; RiskNone sorts after all.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 4
	}
}

// Classified reports whether r is one of Low, Medium or High.
func (r RiskLevel) Classified() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// ParseRiskLevel accepts Low, Medium or High in any case.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	for _, l := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, true
		}
	}
	return RiskNone, false
}

// MarshalJSON renders RiskNone as null.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	if r == RiskNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// Reward is a 1..5 reward-potential score, or N/A when equity is not positive.
type Reward struct {
	Value float64
	Valid bool
}

// RewardNA is the not-applicable reward.
var RewardNA = Reward{}

// RewardOf wraps a score.
func RewardOf(v float64) Reward {
	return Reward{Value: v, Valid: true}
}

func (r Reward) String() string {
	if !r.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON renders the score as a number or the string "N/A".
func (r Reward) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(r.Value)
}

// ScoreResult is produced fresh by every score computation.
type ScoreResult struct {
	RiskLevel RiskLevel `json:"risk_level"`
	RiskScore *int      `json:"risk_score"`
	Reward    Reward    `json:"reward_potential"`
	Model     string    `json:"risk_model"`
	Z         *float64  `json:"z_score,omitempty"`
}
