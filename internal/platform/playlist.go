package platform

import (
	"strconv"
	"strings"
)

// ParsePlaylistItems expands a playlist range expression into 1-based entry
// indices against total entries. Supported forms: "all" (or empty), comma
// separated indices, and ranges such as "2-5,8". A malformed expression
// silently falls back to all entries; playlist tasks should never fail on a
// typo in the range box.
func ParsePlaylistItems(expr string, total int) []int {
	expr = strings.TrimSpace(strings.ToLower(expr))
	if expr == "" || expr == "all" {
		return allIndices(total)
	}

	var out []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return allIndices(total)
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || start < 1 || end < start {
				return allIndices(total)
			}
			for i := start; i <= end && i <= total; i++ {
				if !seen[i] {
					seen[i] = true
					out = append(out, i)
				}
			}
			continue
		}

		idx, err := strconv.Atoi(part)
		if err != nil || idx < 1 {
			return allIndices(total)
		}
		if idx <= total && !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}

	if len(out) == 0 {
		return allIndices(total)
	}
	return out
}

func allIndices(total int) []int {
	out := make([]int, 0, total)
	for i := 1; i <= total; i++ {
		out = append(out, i)
	}
	return out
}
