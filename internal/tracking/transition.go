package tracking

// CanAdvance reports whether an order may move from one stage to another.
// Stages are strictly linear: one step forward, never back, never past the end.
func CanAdvance(from, to int) bool {
	return from >= 0 && to == from+1 && to < StageCount
}
