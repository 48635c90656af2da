package database

import "sort"

// sortScreenshots orders screenshots by position ascending, then by creation time ascending.
// Backends without server side ordering use it to honour the listing order.
func sortScreenshots(screenshots []*Screenshot) {
	sort.SliceStable(screenshots, func(i, j int) bool {
		if screenshots[i].Position != screenshots[j].Position {
			return screenshots[i].Position < screenshots[j].Position
		}
		return screenshots[i].CreatedAt.Before(screenshots[j].CreatedAt)
	})
}
