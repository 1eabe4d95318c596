package scoring

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRiskModel selects the risk strategy. A nil model keeps the default.
func WithRiskModel(m RiskModel) Option {
	return func(e *Engine) {
		if m != nil {
			e.risk = m
		}
	}
}
