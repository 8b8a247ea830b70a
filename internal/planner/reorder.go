package planner

import (
	"fmt"
	"slices"
	"sort"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
)

// Plan returns the moves that turn current into desired.
//
// Both slices must hold the same ids without duplicates; otherwise an error wrapping
// [shared.ErrSetMismatch] is returned before anything is computed.
// An already ordered input yields an empty plan.
func Plan(current, desired []int) ([]models.MoveOperation, error) {
	rank, err := rankOf(current, desired)
	if err != nil {
		return nil, err
	}

	ranks := make([]int, len(current))
	for i, id := range current {
		ranks[i] = rank[id]
	}

	fixed := make(map[int]bool, len(current))
	for _, idx := range LIS(ranks) {
		fixed[current[idx]] = true
	}

	movers := make([]int, 0, len(current)-len(fixed))
	for _, id := range current {
		if !fixed[id] {
			movers = append(movers, id)
		}
	}
	sort.Slice(movers, func(i, j int) bool { return rank[movers[i]] < rank[movers[j]] })

	// placed holds the ranks of fixed ids in ascending order; the working list mirrors the remote order.
	placed := make([]int, 0, len(current))
	for id := range fixed {
		placed = append(placed, rank[id])
	}
	slices.Sort(placed)

	working := slices.Clone(current)
	ops := make([]models.MoveOperation, 0, len(movers))
	for _, id := range movers {
		r := rank[id]
		from := slices.Index(working, id)
		working = slices.Delete(working, from, from+1)

		at := 0
		if k := sort.SearchInts(placed, r); k > 0 {
			at = slices.Index(working, desired[placed[k-1]-1]) + 1
		}
		working = slices.Insert(working, at, id)
		placed = slices.Insert(placed, sort.SearchInts(placed, r), r)

		ops = append(ops, models.MoveOperation{ID: id, TargetPosition: at + 1})
	}
	return ops, nil
}

// LIS returns the indices of one longest strictly increasing subsequence of seq, in ascending order.
//
// Runs in O(n log n); among equally long subsequences the one ending earliest in the
// patience-sorting sense is returned, which keeps plans deterministic.
func LIS(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}

	tails := make([]int, 0, len(seq)) // tails[k] is the index ending the best subsequence of length k+1
	prev := make([]int, len(seq))
	for i, v := range seq {
		k := sort.Search(len(tails), func(j int) bool { return seq[tails[j]] >= v })
		if k > 0 {
			prev[i] = tails[k-1]
		} else {
			prev[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}

	out := make([]int, len(tails))
	for i, k := tails[len(tails)-1], len(tails)-1; k >= 0; i, k = prev[i], k-1 {
		out[k] = i
	}
	return out
}

// rankOf builds the 1-based rank map of desired after checking that both lists hold the same set.
func rankOf(current, desired []int) (map[int]int, error) {
	rank := make(map[int]int, len(desired))
	for i, id := range desired {
		if _, dup := rank[id]; dup {
			return nil, fmt.Errorf("%w: %w: id %d appears twice in desired order", shared.ErrSetMismatch, shared.ErrDuplicateItem, id)
		}
		rank[id] = i + 1
	}

	if len(current) != len(desired) {
		return nil, fmt.Errorf("%w: %d current items, %d desired", shared.ErrSetMismatch, len(current), len(desired))
	}

	seen := make(map[int]bool, len(current))
	for _, id := range current {
		if seen[id] {
			return nil, fmt.Errorf("%w: %w: id %d appears twice in current order", shared.ErrSetMismatch, shared.ErrDuplicateItem, id)
		}
		seen[id] = true
		if _, ok := rank[id]; !ok {
			return nil, fmt.Errorf("%w: id %d is not in the desired order", shared.ErrSetMismatch, id)
		}
	}
	return rank, nil
}
