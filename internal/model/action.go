package model

// ValidateAction checks that raw decoded exactly to a 4-real vector. A nil
// slice or wrong length both mark the action invalid; Game.Step treats an
// invalid action as a corrective echo rather than an error (spec.md §4.2).
func ValidateAction(raw []float64) Action {
	if len(raw) != 4 {
		return Action{Valid: false}
	}
	var values [4]float64
	copy(values[:], raw)
	return Action{Values: values, Valid: true}
}
