package catalog

// IsLowStock reports whether the entry is at or below its reorder threshold.
func IsLowStock(e Entry) bool {
	return e.Stock <= e.ReorderThreshold
}

func CountLowStock(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if IsLowStock(e) {
			n++
		}
	}
	return n
}

// LowStock returns the low entries in catalog order.
func LowStock(entries []Entry) []Entry {
	out := make([]Entry, 0)
	for _, e := range entries {
		if IsLowStock(e) {
			out = append(out, e)
		}
	}
	return out
}
