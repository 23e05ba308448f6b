package service

import (
	"sort"

	"github.com/meditrade/pricing/internal/pricing/domain"
	"github.com/shopspring/decimal"
)

// stackOutcome is the conflict-resolution verdict for one line: either the
// single best exclusive discount or the full set of stackable ones.
type stackOutcome struct {
	applied []domain.ApplicabilityResult
	best    *domain.ApplicabilityResult
	total   decimal.Decimal
}

// resolveStack picks between candidate A, the single best discount by
// amount, and candidate B, the sum of all stackable discounts. B wins only
// when it is strictly greater; on a tie the single discount is applied so
// the order consumes fewer usage slots.
func resolveStack(results []domain.ApplicabilityResult) stackOutcome {
	var candidates []domain.ApplicabilityResult
	for _, r := range results {
		if r.IsApplicable && r.CalculatedDiscountAmount.IsPositive() {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return stackOutcome{total: decimal.Zero}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return betterCandidate(candidates[i], candidates[j])
	})
	bestSingle := candidates[0]

	var stackables []domain.ApplicabilityResult
	stackTotal := decimal.Zero
	for _, r := range candidates {
		if r.Discount.Stackable {
			stackables = append(stackables, r)
			stackTotal = stackTotal.Add(r.CalculatedDiscountAmount)
		}
	}

	if stackTotal.GreaterThan(bestSingle.CalculatedDiscountAmount) {
		// stackables is already sorted best-first; the top contributor
		// becomes the line's headline discount.
		return stackOutcome{
			applied: stackables,
			best:    &stackables[0],
			total:   stackTotal,
		}
	}

	return stackOutcome{
		applied: []domain.ApplicabilityResult{bestSingle},
		best:    &bestSingle,
		total:   bestSingle.CalculatedDiscountAmount,
	}
}

// betterCandidate orders by amount descending, then priority descending,
// then id ascending for determinism.
func betterCandidate(a, b domain.ApplicabilityResult) bool {
	if cmp := a.CalculatedDiscountAmount.Cmp(b.CalculatedDiscountAmount); cmp != 0 {
		return cmp > 0
	}
	if a.Discount.Priority != b.Discount.Priority {
		return a.Discount.Priority > b.Discount.Priority
	}
	return a.Discount.ID < b.Discount.ID
}
