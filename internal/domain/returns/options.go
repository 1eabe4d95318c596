package returns

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithFactors overrides the risk adjustment factors. Non-positive factors
// are ignored individually.
func WithFactors(f Factors) Option {
	return func(e *Engine) {
		if f.Low > 0 {
			e.factors.Low = f.Low
		}
		if f.Medium > 0 {
			e.factors.Medium = f.Medium
		}
		if f.High > 0 {
			e.factors.High = f.High
		}
	}
}
