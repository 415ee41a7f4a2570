package fieldgen

import "time"

// nowISO8601 formats the current wall-clock time per spec.md §4.A's only
// required timestamp format.
func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}
