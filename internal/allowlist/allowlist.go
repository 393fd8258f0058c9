// Package allowlist decides which sources change fetch state when a user
// picks a selection out of a set of candidates.
package allowlist

import (
	"slices"

	"steamnews/internal/domain"
)

// Diff compares the current fetch flags of candidates with the ids the user
// selected. Sources that were on and are not selected are disabled; selected
// sources that were off are enabled. Selected ids outside candidates are
// ignored. Both results are sorted.
func Diff(candidates []domain.Source, selected []int64) (enable, disable []int64) {
	chosen := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}

	for _, src := range candidates {
		_, isChosen := chosen[src.ID]
		switch {
		case src.ShouldFetch && !isChosen:
			disable = append(disable, src.ID)
		case !src.ShouldFetch && isChosen:
			enable = append(enable, src.ID)
		}
	}

	slices.Sort(enable)
	slices.Sort(disable)
	return enable, disable
}
