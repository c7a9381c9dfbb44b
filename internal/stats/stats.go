// Package stats aggregates request counts for staff views.
package stats

import (
	"smartgn/internal/requests/models"
)

// Summary is the status breakdown over a set of requests.
type Summary struct {
	Total     int            `json:"total"`
	Pending   int            `json:"pending"`
	Verified  int            `json:"verified"`
	Completed int            `json:"completed"`
	Declined  int            `json:"declined"`
	ByType    map[string]int `json:"byType"`
}

// Summarize folds requests into a Summary. It keeps no state between calls.
func Summarize(requests []*models.Request) Summary {
	sum := Summary{Total: len(requests), ByType: make(map[string]int)}
	for _, r := range requests {
		switch r.Status {
		case models.StatusPending:
			sum.Pending++
		case models.StatusVerified:
			sum.Verified++
		case models.StatusCompleted:
			sum.Completed++
		case models.StatusDeclined:
			sum.Declined++
		}
		sum.ByType[r.RequestType]++
	}
	return sum
}
