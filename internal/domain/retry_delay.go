package domain

// RetryDelay is the shape-selected delay configuration carried on a
// Node: a bare millisecond scalar picks a Fixed retry policy, a
// {base, max} pair picks Exponential. Exactly one of the two is set.
type RetryDelay struct {
	FixedMs     int64
	Exponential *ExponentialDelay
}

// ExponentialDelay is the {base, max} pair for exponential backoff.
type ExponentialDelay struct {
	BaseMs int64
	MaxMs  int64
}

// IsExponential reports whether this delay selects the Exponential
// retry policy rather than Fixed.
func (d RetryDelay) IsExponential() bool {
	return d.Exponential != nil
}
