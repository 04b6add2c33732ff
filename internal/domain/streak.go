package domain

import "sort"

// CurrentStreak walks back from asOf and counts consecutive days for which
// attended reports true. It stops at the first day that was not attended.
func CurrentStreak(asOf Day, attended func(Day) bool) int {
	streak := 0
	for d := asOf; attended(d); d = d.AddDays(-1) {
		streak++
	}
	return streak
}

// BestStreak returns the length of the longest run of consecutive calendar
// days in days. Input order and duplicates do not matter.
func BestStreak(days []Day) int {
	if len(days) == 0 {
		return 0
	}

	uniq := make(map[Day]struct{}, len(days))
	sorted := make([]Day, 0, len(days))
	for _, d := range days {
		if _, ok := uniq[d]; ok {
			continue
		}
		uniq[d] = struct{}{}
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
