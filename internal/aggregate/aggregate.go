// Package aggregate holds pure computations over a task snapshot.
package aggregate

import (
	"sort"

	"github.com/mauzec/todo-ds/internal/core"
)

type PriorityDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`

	PriorityDistribution PriorityDistribution `json:"priority_distribution"`
}

// Sort returns a new slice ordered incomplete first, then by priority rank.
// Equal keys keep their input order. The input is not modified.
func Sort(tasks []*core.Task) []*core.Task {
	res := make([]*core.Task, len(tasks))
	copy(res, tasks)
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		return a.Priority.Rank() < b.Priority.Rank()
	})
	return res
}

// ComputeStats counts tasks by completion and priority in one pass.
// A priority outside the enum is counted as medium, the same rank Sort gives it.
func ComputeStats(tasks []*core.Task) Stats {
	st := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			st.Completed++
		}
		switch t.Priority {
		case core.PriorityHigh:
			st.PriorityDistribution.High++
		case core.PriorityLow:
			st.PriorityDistribution.Low++
		default:
			st.PriorityDistribution.Medium++
		}
	}
	st.Pending = st.Total - st.Completed
	return st
}
