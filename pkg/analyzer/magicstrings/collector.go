package magicstrings

// duplicates returns the raw values seen more than once, in first-seen
// order. Keys are compared byte for byte, so "a" and @"a" differ. Empty
// literals never count.
func duplicates(occs []occurrence) []string {
	counts := make(map[string]int, len(occs))
	var order []string
	for _, o := range occs {
		if IsEmptyLiteral(o.raw) {
			continue
		}
		if counts[o.raw] == 0 {
			order = append(order, o.raw)
		}
		counts[o.raw]++
	}

	out := make([]string, 0, len(order))
	for _, raw := range order {
		if counts[raw] > 1 {
			out = append(out, raw)
		}
	}
	return out
}
