// Package evaluation scores the current champion on the held-out data and decides whether the
// newly trained challenger replaces it.
package evaluation

// Decision is the outcome of comparing a challenger with the champion
type Decision struct {
	Accepted bool
	Baseline float64
	Delta    float64
}

// Decide accepts the challenger only when it strictly beats the champion. An absent champion is a
// baseline of zero. No minimum improvement is applied.
func Decide(challenger float64, champion *float64) Decision {
	baseline := 0.0
	if champion != nil {
		baseline = *champion
	}
	return Decision{
		Accepted: challenger > baseline,
		Baseline: baseline,
		Delta:    challenger - baseline,
	}
}
