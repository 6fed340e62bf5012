package gbdt

import "math"

// EarlyStopping tracks the validation metric and signals when it has not
// improved for Rounds consecutive iterations. Lower is better.
type EarlyStopping struct {
	Rounds          int     // rounds without improvement before stopping
	BestScore       float64 // best validation score so far
	BestIteration   int     // zero-based iteration of BestScore
	RoundsNoImprove int
	Enabled         bool
}

// NewEarlyStopping returns a disabled handler when rounds <= 0.
func NewEarlyStopping(rounds int) *EarlyStopping {
	if rounds <= 0 {
		return &EarlyStopping{Enabled: false, BestIteration: -1}
	}
	return &EarlyStopping{
		Rounds:        rounds,
		BestScore:     math.Inf(1),
		BestIteration: -1,
		Enabled:       true,
	}
}

// Update records the score of iteration and reports whether to stop.
func (es *EarlyStopping) Update(iteration int, score float64) bool {
	if !es.Enabled || math.IsNaN(score) {
		return false
	}
	if score < es.BestScore {
		es.BestScore = score
		es.BestIteration = iteration
		es.RoundsNoImprove = 0
	} else {
		es.RoundsNoImprove++
	}
	return es.RoundsNoImprove >= es.Rounds
}

// ShouldStop returns whether training should stop.
func (es *EarlyStopping) ShouldStop() bool {
	return es.Enabled && es.RoundsNoImprove >= es.Rounds
}
