package status

import "github.com/ethpandaops/allure-runtime/pkg/model"

var severity = map[model.Status]int{
	model.StatusFailed:  4,
	model.StatusBroken:  3,
	model.StatusPassed:  2,
	model.StatusSkipped: 1,
}

// Worst returns the more severe of a and b. Failed outranks broken, broken
// outranks passed, passed outranks skipped, and any status outranks absent.
func Worst(a, b model.Status) model.Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// WorstOf folds Worst over statuses.
func WorstOf(statuses ...model.Status) model.Status {
	var worst model.Status
	for _, s := range statuses {
		worst = Worst(worst, s)
	}
	return worst
}
