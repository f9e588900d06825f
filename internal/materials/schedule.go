package materials

import (
	"sort"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Schedule is the split of recommendations under a time budget
type Schedule struct {
	Selected     []model.MaterialRecommendation
	Queued       []model.MaterialRecommendation
	TotalMinutes int
}

// ScheduleWithin orders recommendations by priority (high first) then estimated time
// (shortest first) and greedily selects each one that still fits the budget.
// Recommendations that do not fit are queued. The input is not modified.
func ScheduleWithin(recs []model.MaterialRecommendation, budgetMinutes int) Schedule {
	ordered := make([]model.MaterialRecommendation, len(recs))
	copy(ordered, recs)
	for i := range ordered {
		if ordered[i].EstimatedMinutes <= 0 {
			ordered[i].EstimatedMinutes = DefaultMinutes
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Priority.Rank(), ordered[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return ordered[i].EstimatedMinutes < ordered[j].EstimatedMinutes
	})

	var s Schedule
	for _, rec := range ordered {
		if s.TotalMinutes+rec.EstimatedMinutes <= budgetMinutes {
			rec.Status = model.StatusSelected
			s.Selected = append(s.Selected, rec)
			s.TotalMinutes += rec.EstimatedMinutes
			continue
		}
		rec.Status = model.StatusQueued
		s.Queued = append(s.Queued, rec)
	}
	return s
}
