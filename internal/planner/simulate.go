package planner

import (
	"fmt"
	"slices"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
)

// Apply replays ops against order the way the platform applies a position patch:
// the item is removed, reinserted at its 1-based target, and every other item is renumbered.
//
// order is not modified.
func Apply(order []int, ops []models.MoveOperation) ([]int, error) {
	out := slices.Clone(order)
	for i, op := range ops {
		from := slices.Index(out, op.ID)
		if from < 0 {
			return nil, fmt.Errorf("%w: move %d references unknown id %d", shared.ErrInvalidInput, i+1, op.ID)
		}
		if op.TargetPosition < 1 || op.TargetPosition > len(out) {
			return nil, fmt.Errorf("%w: move %d targets position %d of %d", shared.ErrInvalidInput, i+1, op.TargetPosition, len(out))
		}
		out = slices.Delete(out, from, from+1)
		out = slices.Insert(out, op.TargetPosition-1, op.ID)
	}
	return out, nil
}

// Verify checks that applying ops to current yields desired exactly.
func Verify(current, desired []int, ops []models.MoveOperation) error {
	got, err := Apply(current, ops)
	if err != nil {
		return err
	}
	if !slices.Equal(got, desired) {
		return fmt.Errorf("%w: plan produces %v, want %v", shared.ErrInvalidInput, got, desired)
	}
	return nil
}
