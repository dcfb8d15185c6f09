package memory

import "sort"

func sortBySeq[T any](rows []T, seq func(T) int64) {
	sort.Slice(rows, func(i, j int) bool { return seq(rows[i]) < seq(rows[j]) })
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
