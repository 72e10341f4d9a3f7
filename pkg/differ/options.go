package differ

// Option is a functional option for configuring a Differ.
type Option func(*differ)

// WithIgnoredFields excludes persisted fields from comparison. Use
// "position" to ignore coordinate changes.
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}

// WithMovementThreshold ignores position changes shorter than metres.
func WithMovementThreshold(metres float64) Option {
	return func(d *differ) {
		if metres > 0 {
			d.movementThreshold = metres
		}
	}
}
