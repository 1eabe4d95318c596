package model

// ReturnMethod names the calculation that produced a projected return.
type ReturnMethod string

const (
	MethodValuationIRR  ReturnMethod = "valuation_irr"
	MethodRevenueCAGR   ReturnMethod = "revenue_cagr"
	MethodProjectionIRR ReturnMethod = "projection_irr"
	MethodNone          ReturnMethod = "none"
)

// EnrichedEntity is a subject with its computed metrics. The computed
// fields live for one request and are never persisted.
type EnrichedEntity struct {
	Snapshot        Snapshot     `json:"-"`
	Profile         Profile      `json:"profile"`
	SubjectID       string       `json:"subject_id"`
	Score           ScoreResult  `json:"score"`
	ProjectedReturn *float64     `json:"projected_return"`
	AdjustedReturn  *float64     `json:"risk_adjusted_return"`
	ReturnMethod    ReturnMethod `json:"return_method"`
	RevenueGrowth   *float64     `json:"revenue_growth"`
}
